// Package record defines the input records consumed by the riskviz core.
//
// A [Case] is one risk estimate with its confidence interval; an [Attribution]
// is one signed feature contribution for a case. Both are plain values: the
// ingestion layer (pkg/io) validates and builds them, the core only reads them.
//
// [Index] groups attributions by case ID once per batch so per-case lookups do
// not rescan the attribution table.
package record

import "slices"

// Case is a single risk estimate.
type Case struct {
	ID       int     `json:"id" yaml:"id"`
	RiskMean float64 `json:"risk_mean" yaml:"risk_mean"`
	CILow    float64 `json:"ci_low" yaml:"ci_low"`
	CIHigh   float64 `json:"ci_high" yaml:"ci_high"`
	Label    string  `json:"label" yaml:"label"`
}

// Width returns the width of the confidence interval.
func (c Case) Width() float64 { return c.CIHigh - c.CILow }

// Attribution is a signed per-feature contribution to a case's estimate.
// The magnitude is the importance, the sign is the direction.
type Attribution struct {
	CaseID  int     `json:"case_id" yaml:"case_id"`
	Feature string  `json:"feature" yaml:"feature"`
	Value   float64 `json:"value" yaml:"value"`
}

// Index maps a case ID to its attribution records in input order.
type Index map[int][]Attribution

// NewIndex groups attrs by CaseID, preserving the relative input order within
// each case.
func NewIndex(attrs []Attribution) Index {
	idx := make(Index)
	for _, a := range attrs {
		idx[a.CaseID] = append(idx[a.CaseID], a)
	}
	return idx
}

// For returns the attributions of a case. The returned slice is a copy and may
// be modified by the caller. Unknown IDs yield nil.
func (idx Index) For(caseID int) []Attribution {
	return slices.Clone(idx[caseID])
}

// Len returns the total number of indexed attributions.
func (idx Index) Len() int {
	n := 0
	for _, attrs := range idx {
		n += len(attrs)
	}
	return n
}

// FindCase returns the case with the given ID.
func FindCase(cases []Case, id int) (Case, bool) {
	i := slices.IndexFunc(cases, func(c Case) bool { return c.ID == id })
	if i < 0 {
		return Case{}, false
	}
	return cases[i], true
}
