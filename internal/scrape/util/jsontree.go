package util

import "sort"

// MaxJSONDepth bounds the recursive searches below.
const MaxJSONDepth = 64

// FindKey searches a decoded JSON tree (map[string]any / []any) depth-first and
// returns the value of the first object member named key.
//
// At each object the key itself is checked before descending, and children are
// visited in sorted key order so the result does not depend on map iteration.
// This assumes key is unique enough across branches; if a schema nests the same
// key at several depths with different meanings, the shallowest-leftmost one wins.
func FindKey(tree any, key string) (any, bool) {
	return findKey(tree, key, 0)
}

func findKey(node any, key string, depth int) (any, bool) {
	if depth > MaxJSONDepth {
		return nil, false
	}
	switch n := node.(type) {
	case map[string]any:
		if v, ok := n[key]; ok {
			return v, true
		}
		for _, k := range sortedKeys(n) {
			if v, ok := findKey(n[k], key, depth+1); ok {
				return v, true
			}
		}
	case []any:
		for _, child := range n {
			if v, ok := findKey(child, key, depth+1); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// FindObject returns the first object (same traversal order as FindKey) for
// which match returns true.
func FindObject(tree any, match func(map[string]any) bool) (map[string]any, bool) {
	return findObject(tree, match, 0)
}

func findObject(node any, match func(map[string]any) bool, depth int) (map[string]any, bool) {
	if depth > MaxJSONDepth {
		return nil, false
	}
	switch n := node.(type) {
	case map[string]any:
		if match(n) {
			return n, true
		}
		for _, k := range sortedKeys(n) {
			if m, ok := findObject(n[k], match, depth+1); ok {
				return m, true
			}
		}
	case []any:
		for _, child := range n {
			if m, ok := findObject(child, match, depth+1); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// FindString is FindKey restricted to string values.
func FindString(tree any, key string) string {
	v, ok := FindKey(tree, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
