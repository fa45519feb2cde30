//go:build !nogpu

package wgpu

import (
	"github.com/gogpu/paint"
)

// init registers the accelerator on package import. Registration never
// blocks CPU rendering: a machine without a usable adapter gets an
// accelerator whose operations all fall back.
func init() {
	if err := paint.RegisterAccelerator(New()); err != nil {
		paint.Logger().Warn("wgpu accelerator registration failed", "error", err)
	}
}
