package rbtree

type color byte

const (
	NODE_RED color = iota
	NODE_BLACK
)

type node[K any, V any] struct {
	left   *node[K, V]
	right  *node[K, V]
	parent *node[K, V]
	color  color
	key    K
	val    V
}
