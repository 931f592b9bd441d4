// Package storage assembles the logical directory tree for a .msg file:
// root storage, recipient and attachment sub-storages, and the
// named-property map. It consumes the MAPI property codec and
// property-stream writer and hands its output tree to the CFB container
// writer.
package storage

import "sort"

// Node is one entry in the logical directory tree. A storage node carries
// ordered Children; a stream node carries Data. The CFB writer walks this
// tree to build directory entries and allocate sectors; it does not know
// or care about MAPI semantics.
type Node struct {
	Name     string
	IsStream bool
	Data     []byte
	Children []*Node // ordered; storage composer determines sibling order
}

// AddStream appends a leaf stream child.
func (n *Node) AddStream(name string, data []byte) {
	n.Children = append(n.Children, &Node{Name: name, IsStream: true, Data: data})
}

// AddStorage appends and returns a new storage child.
func (n *Node) AddStorage(name string) *Node {
	child := &Node{Name: name}
	n.Children = append(n.Children, child)
	return child
}

// addStreamsSorted merges a name->body map into n's children in sorted-name
// order, so output is deterministic regardless of Go's random map
// iteration order.
func (n *Node) addStreamsSorted(streams map[string][]byte) {
	names := make([]string, 0, len(streams))
	for name := range streams {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n.AddStream(name, streams[name])
	}
}
