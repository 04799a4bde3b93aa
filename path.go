package tagtree

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup returns the value at path below root. A path is a sequence of keys
// separated by dots, each optionally followed by list indexes in brackets:
//
//	player.inventory[3].id
//	"key with spaces".x
//
// An empty path returns root itself. Missing keys and out-of-range indexes
// yield ErrKeyNotFound; stepping into a value of the wrong kind yields
// ErrTypeMismatch.
func Lookup(root *Compound, path string) (Value, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	var cur Value = root
	for i, seg := range segs {
		prefix := formatPath(segs[:i+1])
		if seg.index < 0 {
			c, ok := cur.(*Compound)
			if !ok {
				return nil, typeErr(formatPath(segs[:i]), KindCompound, cur.Kind())
			}
			v, found := c.Get(seg.key)
			if !found {
				return nil, keyNotFound(prefix)
			}
			cur = v
		} else {
			l, ok := cur.(*List)
			if !ok {
				return nil, typeErr(formatPath(segs[:i]), KindList, cur.Kind())
			}
			if seg.index >= l.Len() {
				return nil, keyNotFound(prefix)
			}
			cur = l.At(seg.index)
		}
	}
	return cur, nil
}

func parsePath(path string) ([]pathSeg, error) {
	var segs []pathSeg
	s := path
	for s != "" {
		if len(segs) > 0 && s[0] != '[' {
			if s[0] != '.' {
				return nil, fmt.Errorf("invalid path %q: expected '.' or '['", path)
			}
			s = s[1:]
		}
		if s == "" {
			return nil, fmt.Errorf("invalid path %q: trailing '.'", path)
		}
		switch s[0] {
		case '[':
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return nil, fmt.Errorf("invalid path %q: unterminated index", path)
			}
			idx, err := strconv.Atoi(s[1:end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid path %q: bad index %q", path, s[1:end])
			}
			segs = append(segs, pathSeg{index: idx})
			s = s[end+1:]
		case '"':
			quoted, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, fmt.Errorf("invalid path %q: %w", path, err)
			}
			key, _ := strconv.Unquote(quoted)
			segs = append(segs, pathSeg{key: key, index: -1})
			s = s[len(quoted):]
		default:
			end := strings.IndexAny(s, ".[")
			if end < 0 {
				end = len(s)
			} else if end == 0 {
				return nil, fmt.Errorf("invalid path %q: empty key", path)
			}
			segs = append(segs, pathSeg{key: s[:end], index: -1})
			s = s[end:]
		}
	}
	return segs, nil
}
