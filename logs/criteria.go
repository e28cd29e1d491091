package logs

import (
	"regexp"
	"strings"
	"time"
)

// MaxTextLength is the maximum text query length compiled as a regular
// expression, to prevent excessively complex patterns. Longer queries
// are matched as plain substrings.
const MaxTextLength = 256

// Criteria selects entries for Store.Query. All set fields must match
// (conjunction). Criteria values are transient; they are never stored.
type Criteria struct {
	// MinLevel is the severity floor. Nil means no floor.
	MinLevel *Level

	// Tag matches the entry tag exactly when non-empty. TagFold makes
	// the comparison case-insensitive.
	Tag     string
	TagFold bool

	// Text is a free-text query matched against message, tag, and
	// stack trace. Matching is case-insensitive unless CaseSensitive
	// is set. With Regex set, Text is compiled as a regular
	// expression; an invalid pattern silently degrades to a plain
	// substring match for the literal text.
	Text          string
	CaseSensitive bool
	Regex         bool

	// Since and Until bound the entry timestamp, inclusive on both
	// ends. Zero values leave the range open.
	Since time.Time
	Until time.Time

	// Limit and Offset paginate results. When either is set, results
	// are ordered newest-first; otherwise insertion order is kept.
	Limit  int
	Offset int
}

// IsEmpty returns true if no filtering fields are set
func (c Criteria) IsEmpty() bool {
	return c.MinLevel == nil && c.Tag == "" && c.Text == "" &&
		c.Since.IsZero() && c.Until.IsZero()
}

// paginated reports whether newest-first pagination was requested
func (c Criteria) paginated() bool {
	return c.Limit > 0 || c.Offset > 0
}

// Matcher is a compiled form of Criteria, built once per query or
// live stream and reused for every entry
type Matcher struct {
	criteria Criteria
	regex    *regexp.Regexp
	text     string
}

// NewMatcher compiles the criteria's filtering fields
func NewMatcher(c Criteria) Matcher {
	m := Matcher{criteria: c, text: c.Text}

	if c.Regex && c.Text != "" && len(c.Text) <= MaxTextLength {
		if re, err := regexp.Compile(c.Text); err == nil {
			m.regex = re
		}
		// An invalid pattern leaves m.regex nil and the query falls
		// back to substring matching; malformed user input must not
		// surface as an error.
	}

	if m.regex == nil && !c.CaseSensitive {
		m.text = strings.ToLower(c.Text)
	}

	return m
}

// Matches returns true if the entry satisfies every set criterion
func (m Matcher) Matches(e Entry) bool {
	c := m.criteria

	if c.MinLevel != nil && e.Level < *c.MinLevel {
		return false
	}

	if c.Tag != "" {
		if c.TagFold {
			if !strings.EqualFold(e.Tag, c.Tag) {
				return false
			}
		} else if e.Tag != c.Tag {
			return false
		}
	}

	if !c.Since.IsZero() && e.Timestamp.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && e.Timestamp.After(c.Until) {
		return false
	}

	if c.Text != "" && !m.matchesText(e) {
		return false
	}

	return true
}

func (m Matcher) matchesText(e Entry) bool {
	if m.regex != nil {
		return m.regex.MatchString(e.Message) ||
			m.regex.MatchString(e.Tag) ||
			m.regex.MatchString(e.Stack)
	}

	if m.criteria.CaseSensitive {
		return strings.Contains(e.Message, m.text) ||
			strings.Contains(e.Tag, m.text) ||
			strings.Contains(e.Stack, m.text)
	}

	return strings.Contains(strings.ToLower(e.Message), m.text) ||
		strings.Contains(strings.ToLower(e.Tag), m.text) ||
		strings.Contains(strings.ToLower(e.Stack), m.text)
}

// FilterEntries returns the entries matching the criteria's filtering
// fields, ignoring pagination
func FilterEntries(entries []Entry, c Criteria) []Entry {
	if c.IsEmpty() {
		result := make([]Entry, len(entries))
		copy(result, entries)
		return result
	}

	m := NewMatcher(c)
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if m.Matches(e) {
			result = append(result, e)
		}
	}
	return result
}
