package flatxml

import "fmt"

// Pair is one flattened leaf value. Path holds the chain of tag names
// from the document root down to the leaf, without padding.
type Pair struct {
	Path  []string
	Value string
}

// Flatten converts a node tree into its flat path/value pairs, depth
// first in document order. Repeated sibling tags produce multiple pairs
// sharing the same path; their relative position is preserved only in
// the output ordering, not encoded in the path itself. Null subtrees
// produce no pairs. A node of unrecognized kind is a fatal error;
// the flattener never silently drops data.
func Flatten(node *Node) ([]Pair, error) {
	var pairs []Pair
	if err := flattenInto(nil, node, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

func flattenInto(prefix []string, node *Node, out *[]Pair) error {
	switch node.Kind {
	case KindNull:
		return nil
	case KindScalar:
		path := make([]string, len(prefix))
		copy(path, prefix)
		*out = append(*out, Pair{Path: path, Value: node.Text})
		return nil
	case KindGroup:
		for _, entry := range node.Entries {
			extended := make([]string, 0, len(prefix)+1)
			extended = append(extended, prefix...)
			extended = append(extended, entry.Tag)
			for _, child := range entry.Nodes {
				if err := flattenInto(extended, child, out); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return fmt.Errorf("%w: node kind %d at %v", ErrUnknownItem, node.Kind, prefix)
}
