package util

type (
	// PathTree indexes values by hierarchical string paths
	PathTree[T any] struct {
		root *treeNode[T]
	}

	treeNode[T any] struct {
		value    T
		hasValue bool
		children map[string]*treeNode[T]
	}
)

// NewPathTree creates a new hierarchical path index
func NewPathTree[T any]() *PathTree[T] {
	return &PathTree[T]{root: newTreeNode[T]()}
}

func newTreeNode[T any]() *treeNode[T] {
	return &treeNode[T]{children: map[string]*treeNode[T]{}}
}

// Insert stores a value at the exact path
func (t *PathTree[T]) Insert(path []string, v T) {
	cur := t.root
	for _, seg := range path {
		next, ok := cur.children[seg]
		if !ok {
			next = newTreeNode[T]()
			cur.children[seg] = next
		}
		cur = next
	}
	cur.value = v
	cur.hasValue = true
}

// Remove clears the value at the exact path, pruning empty branches
func (t *PathTree[T]) Remove(path []string) {
	trail := make([]*treeNode[T], 0, len(path)+1)
	cur := t.root
	trail = append(trail, cur)
	for _, seg := range path {
		next, ok := cur.children[seg]
		if !ok {
			return
		}
		cur = next
		trail = append(trail, cur)
	}
	var zero T
	cur.value = zero
	cur.hasValue = false
	for i := len(path); i > 0; i-- {
		node := trail[i]
		if node.hasValue || len(node.children) > 0 {
			break
		}
		delete(trail[i-1].children, path[i-1])
	}
}

// Detach removes a prefix subtree and returns its values
func (t *PathTree[T]) Detach(prefix []string) []T {
	if len(prefix) == 0 {
		detached := t.root
		t.root = newTreeNode[T]()
		return detached.collect(nil)
	}
	parent := t.root
	for _, seg := range prefix[:len(prefix)-1] {
		next, ok := parent.children[seg]
		if !ok {
			return nil
		}
		parent = next
	}
	last := prefix[len(prefix)-1]
	sub, ok := parent.children[last]
	if !ok {
		return nil
	}
	delete(parent.children, last)
	return sub.collect(nil)
}

// DetachWith removes a prefix subtree, invoking fn on each detached value
func (t *PathTree[T]) DetachWith(prefix []string, fn func(T)) {
	for _, v := range t.Detach(prefix) {
		fn(v)
	}
}

func (n *treeNode[T]) collect(acc []T) []T {
	if n.hasValue {
		acc = append(acc, n.value)
	}
	for _, child := range n.children {
		acc = child.collect(acc)
	}
	return acc
}
