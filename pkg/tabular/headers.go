package tabular

import (
	"strings"
	"unicode"
)

// HeaderConverter transforms header names as the header row is consumed.
type HeaderConverter func(string) string

// LowercaseHeader converts headers to lowercase.
func LowercaseHeader(s string) string {
	return strings.ToLower(s)
}

// UppercaseHeader converts headers to uppercase.
func UppercaseHeader(s string) string {
	return strings.ToUpper(s)
}

// SnakeCaseHeader converts headers to snake_case.
func SnakeCaseHeader(s string) string {
	var result strings.Builder
	prevWasSpace := false
	for i, ch := range s {
		if ch == ' ' {
			if result.Len() > 0 && !prevWasSpace {
				result.WriteRune('_')
			}
			prevWasSpace = true
			continue
		}
		if unicode.IsUpper(ch) && i > 0 && !prevWasSpace {
			result.WriteRune('_')
		}
		result.WriteRune(unicode.ToLower(ch))
		prevWasSpace = false
	}
	return result.String()
}

// ColumnSelector restricts which columns each yielded row carries. Selection
// by name requires a header row; selection by index works regardless.
type ColumnSelector struct {
	// Names selects columns by header name.
	Names []string
	// Indexes selects columns by 0-based position.
	Indexes []int
}

// ShouldInclude reports whether the column with the given name and index is
// selected. An empty selector includes everything.
func (c *ColumnSelector) ShouldInclude(name string, index int) bool {
	if len(c.Names) == 0 && len(c.Indexes) == 0 {
		return true
	}
	for _, n := range c.Names {
		if n == name {
			return true
		}
	}
	for _, i := range c.Indexes {
		if i == index {
			return true
		}
	}
	return false
}
