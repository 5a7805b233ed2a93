package confstore

import (
	"fmt"
	"strconv"
	"strings"
)

// The path grammar is dotted field access plus zero-based array indexing,
// composable: endpoint_data.endpoint_name, monitor_data[2].monitor_name.

type segment struct {
	field   string
	index   int
	isIndex bool
}

func (s segment) String() string {
	if s.isIndex {
		return fmt.Sprintf("[%d]", s.index)
	}
	return s.field
}

func parsePath(path string) ([]segment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty path")
	}

	var segs []segment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			if i == 0 || i == len(path)-1 || path[i+1] == '.' {
				return nil, fmt.Errorf("invalid path %q: empty segment", path)
			}
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("invalid path %q: unterminated index", path)
			}
			idx, err := strconv.Atoi(path[i+1 : i+end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid path %q: bad index %q", path, path[i+1:i+end])
			}
			segs = append(segs, segment{index: idx, isIndex: true})
			i += end + 1
		default:
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			segs = append(segs, segment{field: path[i:j]})
			i = j
		}
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("invalid path %q", path)
	}
	return segs, nil
}

// resolve walks the document along segs. The boolean reports whether every
// step resolved; a missing step is not an error, matching the "not found
// is a normal outcome" contract.
func resolve(root *Value, segs []segment) (*Value, bool) {
	cur := root
	for _, seg := range segs {
		if cur == nil {
			return nil, false
		}
		if seg.isIndex {
			item, ok := cur.Index(seg.index)
			if !ok {
				return nil, false
			}
			cur = item
			continue
		}
		val, ok := cur.Get(seg.field)
		if !ok {
			return nil, false
		}
		cur = val
	}
	return cur, true
}

// resolveParent walks to the node holding the final segment. Intermediate
// structure is never created; only the trailing key may be absent.
func resolveParent(root *Value, segs []segment) (*Value, segment, bool) {
	parent, ok := resolve(root, segs[:len(segs)-1])
	if !ok {
		return nil, segment{}, false
	}
	return parent, segs[len(segs)-1], true
}
