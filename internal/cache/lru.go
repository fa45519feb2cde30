package cache

// lruNode is one entry in an lruList. It carries the key so eviction
// can find the owning map entry in O(1).
type lruNode[K comparable] struct {
	key        K
	prev, next *lruNode[K]
}

// lruList keeps recency order as a circular doubly-linked list around a
// sentinel root: root.next is the most recently used node, root.prev
// the least. Not safe for concurrent use; the owning cache locks.
type lruList[K comparable] struct {
	root lruNode[K]
	size int
}

func newLRUList[K comparable]() *lruList[K] {
	l := &lruList[K]{}
	l.root.prev = &l.root
	l.root.next = &l.root
	return l
}

// Len returns the number of nodes.
func (l *lruList[K]) Len() int { return l.size }

// PushFront inserts a new node as most recently used and returns it.
func (l *lruList[K]) PushFront(key K) *lruNode[K] {
	node := &lruNode[K]{key: key}
	l.insertFront(node)
	return node
}

// MoveToFront marks a node most recently used. The node must be in the
// list; nil is ignored.
func (l *lruList[K]) MoveToFront(node *lruNode[K]) {
	if node == nil || l.root.next == node {
		return
	}
	l.unlink(node)
	l.insertFront(node)
}

// Remove unlinks a node. The node must be in the list; nil is ignored.
func (l *lruList[K]) Remove(node *lruNode[K]) {
	if node == nil {
		return
	}
	l.unlink(node)
}

// RemoveOldest unlinks and returns the least recently used key.
// Returns (zero, false) on an empty list.
func (l *lruList[K]) RemoveOldest() (K, bool) {
	if l.size == 0 {
		var zero K
		return zero, false
	}
	node := l.root.prev
	l.unlink(node)
	return node.key, true
}

// Oldest returns the least recently used key without unlinking it.
func (l *lruList[K]) Oldest() (K, bool) {
	if l.size == 0 {
		var zero K
		return zero, false
	}
	return l.root.prev.key, true
}

// Clear drops all nodes.
func (l *lruList[K]) Clear() {
	l.root.prev = &l.root
	l.root.next = &l.root
	l.size = 0
}

func (l *lruList[K]) insertFront(node *lruNode[K]) {
	node.prev = &l.root
	node.next = l.root.next
	node.prev.next = node
	node.next.prev = node
	l.size++
}

func (l *lruList[K]) unlink(node *lruNode[K]) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.prev = nil
	node.next = nil
	l.size--
}
