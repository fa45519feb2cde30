package brush

import (
	"errors"
	"sort"
)

// ErrNoKnots is returned when constructing a curve from an empty knot list.
var ErrNoKnots = errors.New("curve requires at least one knot")

// Knot is one control point of a piecewise-linear curve.
type Knot struct {
	X, Y float32
}

// Curve is a piecewise-linear function of one variable. Between knots the
// value is interpolated linearly; outside the knot range it is held constant
// at the nearest knot's value.
//
// Curves describe how stroke attributes evolve along a segment (blend and
// parameter ramps) and how pen pressure maps to brush parameters.
type Curve struct {
	knots []Knot
}

// NewCurve builds a curve from knots, sorting them by X.
// At least one knot is required.
func NewCurve(knots ...Knot) (*Curve, error) {
	if len(knots) == 0 {
		return nil, ErrNoKnots
	}
	sorted := make([]Knot, len(knots))
	copy(sorted, knots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })
	return &Curve{knots: sorted}, nil
}

// mustCurve is for statically known knot lists.
func mustCurve(knots ...Knot) *Curve {
	c, err := NewCurve(knots...)
	if err != nil {
		panic(err)
	}
	return c
}

// Evaluate returns the curve value at x, clamped to the knot range.
func (c *Curve) Evaluate(x float32) float32 {
	knots := c.knots
	// First knot with X > x.
	next := sort.Search(len(knots), func(i int) bool { return x < knots[i].X })
	if next == 0 {
		return knots[0].Y
	}
	if next == len(knots) {
		return knots[len(knots)-1].Y
	}
	prev := knots[next-1]
	nxt := knots[next]
	span := nxt.X - prev.X
	if span <= 0 {
		return prev.Y
	}
	t := (x - prev.X) / span
	return prev.Y + (nxt.Y-prev.Y)*t
}

// FirstKnot returns the knot with the smallest X.
func (c *Curve) FirstKnot() Knot {
	return c.knots[0]
}

// LastKnot returns the knot with the largest X.
func (c *Curve) LastKnot() Knot {
	return c.knots[len(c.knots)-1]
}

// mergeKnotXs returns the sorted union of all knot X positions of the given
// curves, without duplicates. Evaluating piecewise-linear curves at the
// merged positions captures them completely: between merged knots every
// curve is linear.
func mergeKnotXs(curves ...*Curve) []float32 {
	n := 0
	for _, c := range curves {
		n += len(c.knots)
	}
	xs := make([]float32, 0, n)
	for _, c := range curves {
		for _, k := range c.knots {
			xs = append(xs, k.X)
		}
	}
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	dedup := xs[:0]
	for i, x := range xs {
		if i == 0 || x != dedup[len(dedup)-1] {
			dedup = append(dedup, x)
		}
	}
	return dedup
}
