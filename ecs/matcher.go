package ecs

import "fmt"

// MatcherKey is the comparable identity of a Matcher.
type MatcherKey struct {
	All  BitSet32
	Any  BitSet32
	None BitSet32
}

// Matcher is a query over component presence: every id in All, at least one
// id in Any, and no id in None. An empty category is always satisfied.
//
// Each AllOf/AnyOf/NoneOf call replaces its category rather than adding to
// it.
type Matcher struct {
	key   MatcherKey
	mix   BitSet32
	dirty bool
}

// NewMatcher returns a matcher with every category empty. It matches every
// entity.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// AllOf returns a matcher requiring every id.
func AllOf(ids ...int) *Matcher { return NewMatcher().AllOf(ids...) }

// AnyOf returns a matcher requiring at least one id.
func AnyOf(ids ...int) *Matcher { return NewMatcher().AnyOf(ids...) }

// NoneOf returns a matcher rejecting every id.
func NoneOf(ids ...int) *Matcher { return NewMatcher().NoneOf(ids...) }

func (m *Matcher) AllOf(ids ...int) *Matcher {
	m.key.All = MergeIDs(ids...)
	m.dirty = true
	return m
}

func (m *Matcher) AnyOf(ids ...int) *Matcher {
	m.key.Any = MergeIDs(ids...)
	m.dirty = true
	return m
}

func (m *Matcher) NoneOf(ids ...int) *Matcher {
	m.key.None = MergeIDs(ids...)
	m.dirty = true
	return m
}

// AllOfMatchers requires every id referenced by any of ms.
func (m *Matcher) AllOfMatchers(ms ...*Matcher) *Matcher {
	m.key.All = mergeMatchers(ms)
	m.dirty = true
	return m
}

// AnyOfMatchers requires at least one id referenced by any of ms.
func (m *Matcher) AnyOfMatchers(ms ...*Matcher) *Matcher {
	m.key.Any = mergeMatchers(ms)
	m.dirty = true
	return m
}

// NoneOfMatchers rejects every id referenced by any of ms.
func (m *Matcher) NoneOfMatchers(ms ...*Matcher) *Matcher {
	m.key.None = mergeMatchers(ms)
	m.dirty = true
	return m
}

func mergeMatchers(ms []*Matcher) BitSet32 {
	var b BitSet32
	for _, other := range ms {
		b |= other.Mix()
	}
	return b
}

func (m *Matcher) All() BitSet32  { return m.key.All }
func (m *Matcher) Any() BitSet32  { return m.key.Any }
func (m *Matcher) None() BitSet32 { return m.key.None }

// Key returns the (All, Any, None) triple that identifies the matcher.
func (m *Matcher) Key() MatcherKey { return m.key }

// Mix returns the union of the three categories: every id whose change can
// flip the matcher's verdict.
func (m *Matcher) Mix() BitSet32 {
	if m.dirty {
		m.mix = m.key.All | m.key.Any | m.key.None
		m.dirty = false
	}
	return m.mix
}

// Equal reports whether both matchers select the same entities by
// construction.
func (m *Matcher) Equal(other *Matcher) bool {
	return other != nil && m.key == other.key
}

// Clone returns an independent copy.
func (m *Matcher) Clone() *Matcher {
	c := *m
	return &c
}

// MatchesMask evaluates the matcher against a set of present ids.
func (m *Matcher) MatchesMask(mask BitSet32) bool {
	return (m.key.All == 0 || mask.ContainsAll(m.key.All)) &&
		(m.key.Any == 0 || mask.ContainsAny(m.key.Any)) &&
		(m.key.None == 0 || !mask.ContainsAny(m.key.None))
}

// Matches evaluates the matcher against an entity's present components.
func (m *Matcher) Matches(e *Entity) bool {
	return m.MatchesMask(e.Mask())
}

func (m *Matcher) String() string {
	return fmt.Sprintf("matcher(all=%s, any=%s, none=%s)", m.key.All, m.key.Any, m.key.None)
}
