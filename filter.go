package docpaging

import "strings"

// HighSentinel is the highest Unicode code point the store orders after any
// user text. Appending it to a prefix turns ">= prefix AND <= prefix+sentinel"
// into a prefix match.
const HighSentinel = ""

// FilterSet maps field names to a single filter value each. An absent field
// or an empty value means "no constraint on this field". Values are only ever
// interpreted as prefix (or equality) predicates on text fields.
type FilterSet map[string]string

// NormalizeFilters canonicalizes a raw, user-entered filter set: values are
// whitespace-trimmed and case-folded, and fields that are empty after
// trimming are dropped. The input is not modified. Planner.Normalize is the
// schema-aware variant that preserves case on equality fields.
func NormalizeFilters(raw FilterSet) FilterSet {
	normalized := make(FilterSet, len(raw))
	for field, value := range raw {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		normalized[field] = value
	}
	return normalized
}

// IsEmpty reports whether the set constrains no fields.
func (f FilterSet) IsEmpty() bool {
	return len(f) == 0
}

// Clone returns an independent copy of the set.
func (f FilterSet) Clone() FilterSet {
	c := make(FilterSet, len(f))
	for field, value := range f {
		c[field] = value
	}
	return c
}

// PrefixPredicates expands a single filter value into the conjunctive range
// pair the store evaluates as a prefix match on field.
func PrefixPredicates(field, value string) []Predicate {
	return []Predicate{
		{Field: field, Op: OpGreaterOrEqual, Value: value},
		{Field: field, Op: OpLessOrEqual, Value: value + HighSentinel},
	}
}

// MatchesPrefix reports whether the record's field value starts with the
// filter value, comparing case-insensitively. Used by the client-side
// filtering strategy.
func MatchesPrefix(rec Record, field, value string) bool {
	return strings.HasPrefix(strings.ToLower(rec.Field(field)), value)
}
