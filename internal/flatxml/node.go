// Package flatxml normalizes nested XML parameter documents into a flat,
// positionally indexable table of path/value pairs. It makes no assumptions
// about the document schema: repeated sibling tags, mixed leaf/group
// children and arbitrary nesting depth are handled uniformly.
package flatxml

import "errors"

// Kind discriminates the shapes a parsed node can take
type Kind int

const (
	// KindNull marks an empty element. Empty and missing are
	// indistinguishable at this layer.
	KindNull Kind = iota
	// KindScalar holds trimmed leaf text
	KindScalar
	// KindGroup holds named children in document order
	KindGroup
)

// Node is the intermediate parse result of one XML element
type Node struct {
	Kind    Kind
	Text    string  // set for KindScalar
	Entries []Entry // set for KindGroup
}

// Entry holds all occurrences of one child tag of a group node.
// A tag that appears more than once among direct siblings always keeps
// every occurrence in Nodes; it is never collapsed. A singular tag has
// exactly one node.
type Entry struct {
	Tag   string
	Nodes []*Node
}

// Repeated reports whether the tag occurred more than once among siblings
func (e *Entry) Repeated() bool {
	return len(e.Nodes) > 1
}

var (
	ErrPathTooDeep = errors.New("flatxml: path deeper than configured index depth")
	ErrUnknownItem = errors.New("flatxml: unknown item")
)

// groupBuilder accumulates child nodes per tag during a single read pass.
// Occurrences are kept in an append-only list per tag, so whether a tag is
// singular or repeated is decided only when the group is finalized.
type groupBuilder struct {
	entryList []Entry
	byTag     map[string]int
}

func newGroupBuilder() *groupBuilder {
	return &groupBuilder{byTag: make(map[string]int)}
}

func (b *groupBuilder) add(tag string, n *Node) {
	if i, ok := b.byTag[tag]; ok {
		b.entryList[i].Nodes = append(b.entryList[i].Nodes, n)
		return
	}
	b.byTag[tag] = len(b.entryList)
	b.entryList = append(b.entryList, Entry{Tag: tag, Nodes: []*Node{n}})
}

// finalize collapses an empty group to a null node
func (b *groupBuilder) finalize() *Node {
	if len(b.entryList) == 0 {
		return &Node{Kind: KindNull}
	}
	return &Node{Kind: KindGroup, Entries: b.entryList}
}
