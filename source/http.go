package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"tblview/table"
)

const (
	defaultTimeout = 30 * time.Second

	// headers carrying full table size in responses
	rowsHeader    = "X-Table-Rows"
	columnsHeader = "X-Table-Columns"
)

// HTTP requests chunks from a remote service rendering them on demand.
type HTTP struct {
	log    *zap.Logger
	base   *url.URL
	token  string
	client *http.Client
	fp     Fingerprint
}

// NewHTTP prepares remote source. No requests are made until first fetch.
func NewHTTP(rawURL string, opts Options, log *zap.Logger) (*HTTP, error) {
	if log == nil {
		log = zap.NewNop()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad source url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported source url scheme %q", u.Scheme)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTP{
		log:    log.With(zap.String("url", u.Redacted())),
		base:   u,
		token:  opts.Token,
		client: &http.Client{Timeout: timeout},
		fp:     newFingerprint("http", u.String()),
	}, nil
}

func (h *HTTP) request(ctx context.Context, method string, query url.Values) (*http.Response, error) {
	u := *h.base
	q := u.Query()
	for k, v := range query {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	if len(h.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var ue *url.Error
		if errors.As(err, &ue) && !ue.Timeout() {
			// connection level failure, service is gone
			return nil, &UnreachableError{Err: err}
		}
		return nil, err
	}
	return resp, nil
}

// FetchChunk implements loader.Fetcher.
func (h *HTTP) FetchChunk(ctx context.Context, region table.ChunkRegion, excludeRowHeader, excludeColumnHeader bool) (string, error) {
	resp, err := h.request(ctx, http.MethodGet, url.Values{
		"first_row":          {strconv.Itoa(region.FirstRow)},
		"first_col":          {strconv.Itoa(region.FirstColumn)},
		"rows":               {strconv.Itoa(region.Rows)},
		"cols":               {strconv.Itoa(region.Columns)},
		"exclude_row_header": {strconv.FormatBool(excludeRowHeader)},
		"exclude_col_header": {strconv.FormatBool(excludeColumnHeader)},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := status(resp); err != nil {
		return "", err
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("unable to detect chunk encoding: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("unable to read chunk: %w", err)
	}
	h.log.Debug("Chunk received", zap.Stringer("region", region), zap.Int("size", len(data)))
	return string(data), nil
}

// Size asks service for table dimensions with HEAD request. Services which do
// not report them yield -1.
func (h *HTTP) Size(ctx context.Context) (int, int, error) {
	resp, err := h.request(ctx, http.MethodHead, nil)
	if err != nil {
		return -1, -1, err
	}
	defer resp.Body.Close()

	if err := status(resp); err != nil {
		return -1, -1, err
	}
	return headerInt(resp.Header, rowsHeader), headerInt(resp.Header, columnsHeader), nil
}

func headerInt(h http.Header, name string) int {
	i, err := strconv.Atoi(strings.TrimSpace(h.Get(name)))
	if err != nil || i < 0 {
		return -1
	}
	return i
}

func status(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		return ErrRegionOutOfBounds
	}

	// short excerpt is enough for diagnostics
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	err := fmt.Errorf("unexpected response status %q: %s", resp.Status, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusGone {
		return &UnreachableError{Err: err}
	}
	return err
}

// Fingerprint depends on service url.
func (h *HTTP) Fingerprint() Fingerprint { return h.fp }

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
