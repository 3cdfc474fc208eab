// Package binding expands `${path}` placeholders in metadata strings, e.g.
// a running header of "Draft ${revision}".
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholder = regexp.MustCompile(`\$\{([^{}]+)\}`)

// Interpolate replaces each `${path}` in text with the value found in data.
// Paths are dot separated and may index lists with `[n]`. Placeholders that
// do not resolve are left untouched.
func Interpolate(text string, data map[string]any) string {
	if len(data) == 0 || !strings.Contains(text, "${") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if path == "" {
			return match
		}
		val, ok := Lookup(data, path)
		if !ok || val == nil {
			return match
		}
		return fmt.Sprint(val)
	})
}

// Lookup resolves a single path against data.
func Lookup(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, segment := range strings.Split(path, ".") {
		name, indexes, ok := splitSegment(segment)
		if !ok {
			return nil, false
		}
		if name != "" {
			if current, ok = field(current, name); !ok {
				return nil, false
			}
		}
		for _, idx := range indexes {
			if current, ok = element(current, idx); !ok {
				return nil, false
			}
		}
	}
	return current, true
}

// splitSegment parses "name[1][2]" into its name and indexes.
func splitSegment(segment string) (string, []int, bool) {
	i := strings.IndexByte(segment, '[')
	if i < 0 {
		return segment, nil, segment != ""
	}
	name, rest := segment[:i], segment[i:]
	var indexes []int
	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return "", nil, false
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, false
		}
		indexes = append(indexes, n)
		rest = rest[end+1:]
	}
	return name, indexes, true
}

func field(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		v, ok := c[key]
		return v, ok
	case map[string]string:
		v, ok := c[key]
		return v, ok
	default:
		return nil, false
	}
}

func element(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
