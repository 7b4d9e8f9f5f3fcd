package vectorstore

import "time"

// FilterOp is the comparison a single Filter predicate applies.
type FilterOp string

const (
	OpEquals   FilterOp = "eq"
	OpIn       FilterOp = "in"
	OpNotIn    FilterOp = "not_in"
	OpRange    FilterOp = "range"
	OpNegation FilterOp = "not"
)

// Predicate is one ordered filter condition. Range predicates are only
// meaningful for timestamp-like fields and carry their bounds in
// GteTime/LteTime, which filterToQdrant sends as Unix seconds.
type Predicate struct {
	Field  string
	Op     FilterOp
	Value  string
	Values []string
	GteTime *time.Time
	LteTime *time.Time
}

// Filter is an ordered list of predicates, all implicitly AND-ed
// together. Ordering is preserved identically across every sub-query
// of an RRF fusion so the same documents are excluded from both the
// dense and sparse result lists.
type Filter struct {
	Predicates []Predicate
}

// Equals adds an equality predicate.
func (f Filter) Equals(field, value string) Filter {
	f.Predicates = append(f.Predicates, Predicate{Field: field, Op: OpEquals, Value: value})
	return f
}

// In adds a set-membership predicate.
func (f Filter) In(field string, values []string) Filter {
	f.Predicates = append(f.Predicates, Predicate{Field: field, Op: OpIn, Values: values})
	return f
}

// TimestampRange adds a timestamp range predicate.
func (f Filter) TimestampRange(field string, gte, lte *time.Time) Filter {
	f.Predicates = append(f.Predicates, Predicate{Field: field, Op: OpRange, GteTime: gte, LteTime: lte})
	return f
}

// Intersect concatenates two filters' predicate lists, preserving
// each one's internal ordering — used to combine a caller-supplied
// filter with an intent-derived one before a search.
func Intersect(a, b Filter) Filter {
	out := Filter{Predicates: make([]Predicate, 0, len(a.Predicates)+len(b.Predicates))}
	out.Predicates = append(out.Predicates, a.Predicates...)
	out.Predicates = append(out.Predicates, b.Predicates...)
	return out
}
