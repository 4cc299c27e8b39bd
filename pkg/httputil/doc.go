// Package httputil fetches remote case and attribution tables.
//
// [Fetch] downloads a table over HTTP(S), retrying transient failures
// (network errors, 5xx and 429 responses) with exponential backoff through
// [Retry]:
//
//	data, err := httputil.Fetch(ctx, nil, "https://example.org/cohort/cases.csv")
//
// A 404 is reported as FILE_NOT_FOUND so that a missing remote table reads
// like a missing local one. Bodies larger than [MaxBodySize] are rejected.
package httputil
