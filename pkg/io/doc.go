// Package io reads case and attribution tables and writes rendered artifacts.
//
// This is the validation boundary of riskviz: records leave this package as
// fixed-shape [record.Case] and [record.Attribution] values whose fields have
// been type-checked and range-checked. An inverted interval (ci_high below
// ci_low) is not rejected here; it reaches the core, which fails that one case
// with INVALID_RANGE while the rest of the batch renders.
//
// # Formats
//
// CSV files need a header row. Column names are matched case-insensitively and
// the names used by the original prediction exports are accepted as aliases:
//
//	cases:        id | patient_id | case_id, risk_mean, ci_low, ci_high, label
//	attributions: case_id | patient_id | id, feature, value | shap_value
//
// A missing label column defaults each label to "id<ID>".
//
// JSON files hold an array of objects using the same column names as keys.
//
// [ImportCases] and [ImportAttributions] pick the decoder from the file
// extension (.csv or .json).
package io
