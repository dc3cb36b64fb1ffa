package flatxml

import (
	"fmt"
	"sort"
)

// placeholder pads paths shorter than the index depth. It sorts before
// any real tag name, so padded keys order consistently.
const placeholder = ""

// extendPath right-pads a path with placeholders up to target length.
// A path longer than the target is a configuration error: the caller
// picked too small a fixed depth for this document, and truncating
// would lose data.
func extendPath(path []string, target int) ([]string, error) {
	if len(path) > target {
		return nil, fmt.Errorf("%w: %v (depth %d, index depth %d)",
			ErrPathTooDeep, path, len(path), target)
	}
	padded := make([]string, target)
	copy(padded, path)
	return padded, nil
}

type indexEntry struct {
	key   []string
	value string
}

// Index is a sorted multi-level positional index over padded path
// tuples. Keys are not required to be unique; repeated sibling tags
// yield multiple entries with the same key, kept in document order.
type Index struct {
	depth   int
	entries []indexEntry
}

// NewIndex pads every pair's path to the given depth and builds the
// sorted index. Fails with ErrPathTooDeep if any path exceeds depth.
func NewIndex(pairs []Pair, depth int) (*Index, error) {
	entries := make([]indexEntry, 0, len(pairs))
	for _, pair := range pairs {
		key, err := extendPath(pair.Path, depth)
		if err != nil {
			return nil, err
		}
		entries = append(entries, indexEntry{key: key, value: pair.Value})
	}
	// Stable sort keeps document order among identical keys
	sort.SliceStable(entries, func(i, j int) bool {
		return comparePaths(entries[i].key, entries[j].key) < 0
	})
	return &Index{depth: depth, entries: entries}, nil
}

// Depth returns the fixed key length of the index
func (x *Index) Depth() int {
	return x.depth
}

// Len returns the number of indexed values
func (x *Index) Len() int {
	return len(x.entries)
}

// comparePaths is the explicit total order over path components used by
// the index. Components compare as strings; the padding placeholder is
// the empty string and therefore sorts first.
func comparePaths(a, b []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

// comparePrefix compares only the leading len(prefix) components of key
func comparePrefix(key, prefix []string) int {
	return comparePaths(key[:len(prefix)], prefix)
}

// Prefix returns all values whose key starts with the given components,
// in index order (sorted by the remaining key components, not original
// document order). A prefix matching nothing yields an empty result,
// which is not an error; the caller decides whether that is fatal.
func (x *Index) Prefix(parts ...string) Result {
	if len(parts) > x.depth {
		return Result{}
	}
	lo := sort.Search(len(x.entries), func(i int) bool {
		return comparePrefix(x.entries[i].key, parts) >= 0
	})
	hi := sort.Search(len(x.entries), func(i int) bool {
		return comparePrefix(x.entries[i].key, parts) > 0
	})
	if lo == hi {
		return Result{}
	}
	values := make([]string, 0, hi-lo)
	for i := lo; i < hi; i++ {
		values = append(values, x.entries[i].value)
	}
	return Result{Values: values}
}

// Lookup returns the values stored under the exact padded key. Parts
// shorter than the index depth are padded with placeholders, so a bare
// top-level leaf can be addressed by its single tag name. Parts longer
// than the depth match nothing.
func (x *Index) Lookup(parts ...string) Result {
	if len(parts) > x.depth {
		return Result{}
	}
	key, _ := extendPath(parts, x.depth)
	return x.Prefix(key...)
}

// Result holds the values matched by an index query, in index order.
// It is the squeeze variant of the query contract: zero matches is an
// empty result, a single match unwraps via Single, and multiple matches
// stay an ordered collection in Values.
type Result struct {
	Values []string
}

// Empty reports whether the query matched nothing
func (r Result) Empty() bool {
	return len(r.Values) == 0
}

// Len returns the number of matched values
func (r Result) Len() int {
	return len(r.Values)
}

// Single squeezes the result to its bare scalar. It returns false when
// the result is empty or holds more than one value; how to handle those
// cases is extractor policy, not enforced here.
func (r Result) Single() (string, bool) {
	if len(r.Values) != 1 {
		return "", false
	}
	return r.Values[0], true
}
