package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/matzehuels/riskviz/pkg/httputil"
	"github.com/matzehuels/riskviz/pkg/io"
	"github.com/matzehuels/riskviz/pkg/record"
)

// Load reads the case table and, when attrsSrc is set, the attribution
// table, and indexes the attributions by case ID. Sources are file paths or
// http(s) URLs.
func Load(ctx context.Context, casesSrc, attrsSrc string) ([]record.Case, record.Index, error) {
	cases, err := loadTable(ctx, casesSrc, io.ImportCases, func(b []byte, name string) ([]record.Case, error) {
		return io.ReadCases(bytes.NewReader(b), name)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load cases: %w", err)
	}
	if attrsSrc == "" {
		return cases, record.Index{}, nil
	}
	attrs, err := loadTable(ctx, attrsSrc, io.ImportAttributions, func(b []byte, name string) ([]record.Attribution, error) {
		return io.ReadAttributions(bytes.NewReader(b), name)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load attributions: %w", err)
	}
	return cases, record.NewIndex(attrs), nil
}

func loadTable[T any](ctx context.Context, src string, fromFile func(string) ([]T, error), fromBytes func([]byte, string) ([]T, error)) ([]T, error) {
	if !httputil.IsRemote(src) {
		return fromFile(src)
	}
	data, err := httputil.Fetch(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	out, err := fromBytes(data, httputil.Name(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return out, nil
}
