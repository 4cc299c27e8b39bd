package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/riskviz/pkg/buildinfo"
	"github.com/matzehuels/riskviz/pkg/errors"
)

// MaxBodySize caps the size of a fetched table.
const MaxBodySize = 64 << 20

// DefaultClient is used by [Fetch] when no client is given.
var DefaultClient = &http.Client{Timeout: 30 * time.Second}

// IsRemote reports whether src is an http or https URL.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Name returns the file name part of a URL path, used to pick a table decoder
// ("https://host/data/cases.csv?rev=2" gives "cases.csv").
func Name(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	return u.Path[strings.LastIndex(u.Path, "/")+1:]
}

// Fetch downloads src and returns the response body.
func Fetch(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if client == nil {
		client = DefaultClient
	}

	var body []byte
	err := RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "bad url %q", src)
		}
		req.Header.Set("User-Agent", "riskviz/"+buildinfo.Version)

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &RetryableError{Err: fmt.Errorf("get %s: %w", src, err)}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return errors.New(errors.ErrCodeFileNotFound, "%s: not found", src)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &RetryableError{Err: fmt.Errorf("get %s: %s", src, resp.Status)}
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("get %s: %s", src, resp.Status)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("read %s: %w", src, err)}
		}
		if len(data) > MaxBodySize {
			return errors.New(errors.ErrCodeInvalidInput, "%s: table larger than %d bytes", src, MaxBodySize)
		}
		body = data
		return nil
	})
	return body, err
}
