package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/record"
)

var (
	caseIDColumns    = []string{"id", "patient_id", "case_id"}
	attrIDColumns    = []string{"case_id", "patient_id", "id"}
	attrValueColumns = []string{"value", "shap_value"}
)

// ReadCasesCSV decodes a case table from r.
func ReadCasesCSV(r io.Reader) ([]record.Case, error) {
	rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows, caseFromRow, "case row", 2)
}

// ReadAttributionsCSV decodes an attribution table from r.
func ReadAttributionsCSV(r io.Reader) ([]record.Attribution, error) {
	rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows, attributionFromRow, "attribution row", 2)
}

// ReadCasesJSON decodes a JSON array of case objects from r.
func ReadCasesJSON(r io.Reader) ([]record.Case, error) {
	rows, err := readJSONRows(r)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows, caseFromRow, "case", 0)
}

// ReadAttributionsJSON decodes a JSON array of attribution objects from r.
func ReadAttributionsJSON(r io.Reader) ([]record.Attribution, error) {
	rows, err := readJSONRows(r)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows, attributionFromRow, "attribution", 0)
}

// ImportCases reads the case table at path.
func ImportCases(path string) ([]record.Case, error) {
	return importFile(path, ReadCasesCSV, ReadCasesJSON)
}

// ImportAttributions reads the attribution table at path.
func ImportAttributions(path string) ([]record.Attribution, error) {
	return importFile(path, ReadAttributionsCSV, ReadAttributionsJSON)
}

// ReadCases decodes a case table from r, choosing the decoder from the
// extension of name (.csv or .json).
func ReadCases(r io.Reader, name string) ([]record.Case, error) {
	read, err := decoderFor(name, ReadCasesCSV, ReadCasesJSON)
	if err != nil {
		return nil, err
	}
	return read(r)
}

// ReadAttributions decodes an attribution table from r, choosing the decoder
// from the extension of name (.csv or .json).
func ReadAttributions(r io.Reader, name string) ([]record.Attribution, error) {
	read, err := decoderFor(name, ReadAttributionsCSV, ReadAttributionsJSON)
	if err != nil {
		return nil, err
	}
	return read(r)
}

func decoderFor[T any](name string, fromCSV, fromJSON func(io.Reader) ([]T, error)) (func(io.Reader) ([]T, error), error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return fromCSV, nil
	case ".json":
		return fromJSON, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported table format %q (must be .csv or .json)", ext)
	}
}

func importFile[T any](path string, fromCSV, fromJSON func(io.Reader) ([]T, error)) ([]T, error) {
	read, err := decoderFor(path, fromCSV, fromJSON)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// decodeRows converts every row, stopping at the first invalid one. first is
// the position reported for rows[0] (2 for CSV, after the header line).
func decodeRows[T any](rows []row, conv func(row) (T, error), what string, first int) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, r := range rows {
		v, err := conv(r)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "%s %d", what, i+first)
		}
		out = append(out, v)
	}
	return out, nil
}

// row is a single table row keyed by lower-cased column name.
type row map[string]string

func (r row) lookup(names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := r[n]; ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (r row) float(names ...string) (float64, error) {
	s, ok := r.lookup(names...)
	if !ok {
		return 0, fmt.Errorf("missing column %s", names[0])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not a number", names[0], s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("column %s: %q is not finite", names[0], s)
	}
	return v, nil
}

func (r row) int(names ...string) (int, error) {
	s, ok := r.lookup(names...)
	if !ok {
		return 0, fmt.Errorf("missing column %s", names[0])
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	// Spreadsheet exports sometimes write integer IDs as "3.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("column %s: %q is not an integer", names[0], s)
	}
	return int(f), nil
}

func caseFromRow(r row) (record.Case, error) {
	id, err := r.int(caseIDColumns...)
	if err != nil {
		return record.Case{}, err
	}
	c := record.Case{ID: id}
	fields := []struct {
		name string
		dst  *float64
	}{
		{"risk_mean", &c.RiskMean},
		{"ci_low", &c.CILow},
		{"ci_high", &c.CIHigh},
	}
	for _, f := range fields {
		v, err := r.float(f.name)
		if err != nil {
			return record.Case{}, err
		}
		if err := errors.ValidateProbability(f.name, v); err != nil {
			return record.Case{}, err
		}
		*f.dst = v
	}
	c.Label, _ = r.lookup("label")
	if c.Label == "" {
		c.Label = fmt.Sprintf("id%d", id)
	}
	return c, nil
}

func attributionFromRow(r row) (record.Attribution, error) {
	id, err := r.int(attrIDColumns...)
	if err != nil {
		return record.Attribution{}, err
	}
	a := record.Attribution{CaseID: id}
	a.Feature, _ = r.lookup("feature")
	if err := errors.ValidateFeatureName(a.Feature); err != nil {
		return record.Attribution{}, err
	}
	if a.Value, err = r.float(attrValueColumns...); err != nil {
		return record.Attribution{}, err
	}
	return a, nil
}

func readTable(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode csv")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "csv has no header row")
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	rows := make([]row, 0, len(records)-1)
	for _, rec := range records[1:] {
		r := make(row, len(header))
		for i, v := range rec {
			r[header[i]] = v
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func readJSONRows(r io.Reader) ([]row, error) {
	var raw []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode json")
	}
	rows := make([]row, 0, len(raw))
	for _, obj := range raw {
		r := make(row, len(obj))
		for k, v := range obj {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				s = string(v) // numbers keep their JSON text
			}
			r[strings.ToLower(k)] = s
		}
		rows = append(rows, r)
	}
	return rows, nil
}
