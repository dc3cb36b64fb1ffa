package flatxml

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

// element is a schema-free XML element tree. Character data and child
// elements are both captured; when an element has children, its own text
// is ignored.
type element struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []element `xml:",any"`
}

// Parse reads an XML document from an io.Reader and returns the node tree
// of the root element. The root tag itself is not part of the tree; paths
// produced by Flatten start at the root's children, so that documents
// wrapped in different root tags by different tool versions flatten to
// comparable paths.
func Parse(reader io.Reader) (*Node, error) {
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	var root element
	if err := d.Decode(&root); err != nil {
		return nil, err
	}
	return readNode(&root), nil
}

// ParseFile reads an XML document from a file
func ParseFile(file string) (*Node, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// readNode transforms an element into a Node, uniformly handling the
// three child shapes: pure-text leaves, nested groups, and repeated
// sibling tags. Whitespace-only leaf text is never stored; it collapses
// to a null node, as does an element with no children at all.
func readNode(el *element) *Node {
	b := newGroupBuilder()
	for i := range el.Children {
		child := &el.Children[i]
		if len(child.Children) == 0 {
			if text := strings.TrimSpace(child.Text); text != "" {
				b.add(child.XMLName.Local, &Node{Kind: KindScalar, Text: text})
			} else {
				b.add(child.XMLName.Local, &Node{Kind: KindNull})
			}
		} else {
			b.add(child.XMLName.Local, readNode(child))
		}
	}
	return b.finalize()
}
