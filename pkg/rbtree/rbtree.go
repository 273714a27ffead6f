// Package rbtree implements an in-memory ordered map on a red-black tree.
package rbtree

import (
	"golang.org/x/exp/constraints"
)

// RBTree maps ordered keys to values. Every leaf pointer refers to a shared
// black sentinel node so the fixup code never tests for nil.
type RBTree[K constraints.Ordered, V any] struct {
	root *node[K, V]
	nil_ *node[K, V]
	size int
}

func New[K constraints.Ordered, V any]() *RBTree[K, V] {
	sentinel := &node[K, V]{color: NODE_BLACK}
	return &RBTree[K, V]{root: sentinel, nil_: sentinel}
}

func (tree *RBTree[K, V]) Len() int {
	return tree.size
}

func (tree *RBTree[K, V]) Get(key K) (V, bool) {
	n := tree.find(key)
	if n == tree.nil_ {
		var zero V
		return zero, false
	}
	return n.val, true
}

// Put inserts key or replaces its value. Reports whether the key is new.
func (tree *RBTree[K, V]) Put(key K, val V) bool {
	parent := tree.nil_
	cur := tree.root
	for cur != tree.nil_ {
		parent = cur
		switch {
		case key < cur.key:
			cur = cur.left
		case key > cur.key:
			cur = cur.right
		default:
			cur.val = val
			return false
		}
	}

	n := &node[K, V]{
		left:   tree.nil_,
		right:  tree.nil_,
		parent: parent,
		color:  NODE_RED,
		key:    key,
		val:    val,
	}
	switch {
	case parent == tree.nil_:
		tree.root = n
	case key < parent.key:
		parent.left = n
	default:
		parent.right = n
	}

	tree.size++
	tree.insertFixup(n)
	return true
}

// Delete removes key and returns its value.
func (tree *RBTree[K, V]) Delete(key K) (V, bool) {
	z := tree.find(key)
	if z == tree.nil_ {
		var zero V
		return zero, false
	}
	val := z.val

	var x *node[K, V]
	y := z
	yColor := y.color
	switch {
	case z.left == tree.nil_:
		x = z.right
		tree.transplant(z, z.right)
	case z.right == tree.nil_:
		x = z.left
		tree.transplant(z, z.left)
	default:
		y = tree.minimum(z.right)
		yColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			tree.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		tree.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yColor == NODE_BLACK {
		tree.deleteFixup(x)
	}

	tree.size--
	tree.nil_.parent = nil
	return val, true
}

// Min returns the smallest key.
func (tree *RBTree[K, V]) Min() (K, V, bool) {
	if tree.root == tree.nil_ {
		var (
			key K
			val V
		)
		return key, val, false
	}
	n := tree.minimum(tree.root)
	return n.key, n.val, true
}

// Ascend calls fn for every entry in key order until fn returns false. The
// tree must not be modified from fn.
func (tree *RBTree[K, V]) Ascend(fn func(key K, val V) bool) {
	var stack []*node[K, V]
	cur := tree.root
	for cur != tree.nil_ || len(stack) > 0 {
		for cur != tree.nil_ {
			stack = append(stack, cur)
			cur = cur.left
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur.key, cur.val) {
			return
		}
		cur = cur.right
	}
}

// Keys returns all keys in ascending order.
func (tree *RBTree[K, V]) Keys() []K {
	keys := make([]K, 0, tree.size)
	tree.Ascend(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func (tree *RBTree[K, V]) find(key K) *node[K, V] {
	cur := tree.root
	for cur != tree.nil_ {
		switch {
		case key < cur.key:
			cur = cur.left
		case key > cur.key:
			cur = cur.right
		default:
			return cur
		}
	}
	return tree.nil_
}

func (tree *RBTree[K, V]) minimum(n *node[K, V]) *node[K, V] {
	for n.left != tree.nil_ {
		n = n.left
	}
	return n
}

func (tree *RBTree[K, V]) rotateLeft(x *node[K, V]) {
	y := x.right
	x.right = y.left
	if y.left != tree.nil_ {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == tree.nil_:
		tree.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (tree *RBTree[K, V]) rotateRight(x *node[K, V]) {
	y := x.left
	x.left = y.right
	if y.right != tree.nil_ {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == tree.nil_:
		tree.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (tree *RBTree[K, V]) insertFixup(z *node[K, V]) {
	for z.parent.color == NODE_RED {
		gp := z.parent.parent
		if z.parent == gp.left {
			uncle := gp.right
			if uncle.color == NODE_RED {
				z.parent.color = NODE_BLACK
				uncle.color = NODE_BLACK
				gp.color = NODE_RED
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				tree.rotateLeft(z)
			}
			z.parent.color = NODE_BLACK
			z.parent.parent.color = NODE_RED
			tree.rotateRight(z.parent.parent)
		} else {
			uncle := gp.left
			if uncle.color == NODE_RED {
				z.parent.color = NODE_BLACK
				uncle.color = NODE_BLACK
				gp.color = NODE_RED
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				tree.rotateRight(z)
			}
			z.parent.color = NODE_BLACK
			z.parent.parent.color = NODE_RED
			tree.rotateLeft(z.parent.parent)
		}
	}
	tree.root.color = NODE_BLACK
}

func (tree *RBTree[K, V]) transplant(u, v *node[K, V]) {
	switch {
	case u.parent == tree.nil_:
		tree.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

func (tree *RBTree[K, V]) deleteFixup(x *node[K, V]) {
	for x != tree.root && x.color == NODE_BLACK {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == NODE_RED {
				w.color = NODE_BLACK
				x.parent.color = NODE_RED
				tree.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == NODE_BLACK && w.right.color == NODE_BLACK {
				w.color = NODE_RED
				x = x.parent
				continue
			}
			if w.right.color == NODE_BLACK {
				w.left.color = NODE_BLACK
				w.color = NODE_RED
				tree.rotateRight(w)
				w = x.parent.right
			}
			w.color = x.parent.color
			x.parent.color = NODE_BLACK
			w.right.color = NODE_BLACK
			tree.rotateLeft(x.parent)
			x = tree.root
		} else {
			w := x.parent.left
			if w.color == NODE_RED {
				w.color = NODE_BLACK
				x.parent.color = NODE_RED
				tree.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.right.color == NODE_BLACK && w.left.color == NODE_BLACK {
				w.color = NODE_RED
				x = x.parent
				continue
			}
			if w.left.color == NODE_BLACK {
				w.right.color = NODE_BLACK
				w.color = NODE_RED
				tree.rotateLeft(w)
				w = x.parent.left
			}
			w.color = x.parent.color
			x.parent.color = NODE_BLACK
			w.left.color = NODE_BLACK
			tree.rotateRight(x.parent)
			x = tree.root
		}
	}
	x.color = NODE_BLACK
}
