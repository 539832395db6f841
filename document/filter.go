package document

import "strings"

// Filter narrows FindAll to elements whose attributes match.
type Filter func(Element) bool

// HasAttr matches elements carrying the attribute, whatever its value.
func HasAttr(name string) Filter {
	return func(e Element) bool {
		_, ok := e.Attr(name)
		return ok
	}
}

// AttrEquals matches a trimmed attribute value case-insensitively.
func AttrEquals(name, value string) Filter {
	return func(e Element) bool {
		v, ok := e.Attr(name)
		return ok && strings.EqualFold(strings.TrimSpace(v), value)
	}
}

// AttrContains matches a case-insensitive substring of the attribute value.
func AttrContains(name, substr string) Filter {
	substr = strings.ToLower(substr)
	return func(e Element) bool {
		v, ok := e.Attr(name)
		return ok && strings.Contains(strings.ToLower(v), substr)
	}
}

// AttrHasPrefix matches a case-insensitive prefix of the attribute value.
func AttrHasPrefix(name, prefix string) Filter {
	prefix = strings.ToLower(prefix)
	return func(e Element) bool {
		v, ok := e.Attr(name)
		return ok && strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), prefix)
	}
}
