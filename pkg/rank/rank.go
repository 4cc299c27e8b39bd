// Package rank orders attribution records by magnitude.
//
// Ordering is by |Value| and stable, so records with equal magnitude keep
// their input order. Requesting the single top feature of an empty set fails
// with EMPTY_ATTRIBUTION_SET instead of indexing past the end.
package rank

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/record"
)

// Order selects the sort direction.
type Order int

const (
	// Ascending puts the smallest magnitude first. Bar charts drawn bottom-up
	// use it so the largest bar ends on top.
	Ascending Order = iota
	// Descending puts the largest magnitude first.
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// ParseOrder parses "asc"/"ascending" or "desc"/"descending".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "invalid order %q (must be ascending or descending)", s)
}

// Rank sorts records by absolute value.
//
// If topK > 0 only the topK largest-magnitude records are returned, still in
// the requested order: the head of a descending sort or the tail of an
// ascending one. topK larger than len(records) returns everything.
//
// An empty record set with topK > 0 fails with EMPTY_ATTRIBUTION_SET; with
// topK == 0 it yields an empty slice.
func Rank(records []record.Attribution, order Order, topK int) ([]record.Attribution, error) {
	if topK < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "top_k must not be negative, got %d", topK)
	}
	if len(records) == 0 {
		if topK > 0 {
			return nil, errors.New(errors.ErrCodeEmptyAttributionSet, "no attribution records to select the top %d from", topK)
		}
		return []record.Attribution{}, nil
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b record.Attribution) int {
		if order == Descending {
			return cmp.Compare(math.Abs(b.Value), math.Abs(a.Value))
		}
		return cmp.Compare(math.Abs(a.Value), math.Abs(b.Value))
	})

	if topK == 0 || topK >= len(sorted) {
		return sorted, nil
	}
	if order == Descending {
		return sorted[:topK], nil
	}
	return sorted[len(sorted)-topK:], nil
}

// Top returns the record with the largest magnitude. Among equal magnitudes
// the one appearing first in records wins.
func Top(records []record.Attribution) (record.Attribution, error) {
	ranked, err := Rank(records, Descending, 1)
	if err != nil {
		return record.Attribution{}, err
	}
	return ranked[0], nil
}

// Format renders a record as "feature=+0.123" for log lines.
func Format(a record.Attribution) string {
	return fmt.Sprintf("%s=%+.3f", a.Feature, a.Value)
}
