package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"tblview/loader"
	"tblview/source"
	"tblview/table"
)

func TestHTTP_FetchChunk(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(tableHTML))
	}))
	defer srv.Close()

	src, err := source.NewHTTP(srv.URL+"/table?name=t", source.Options{Token: "s3cret"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	markup, err := src.FetchChunk(context.Background(), table.ChunkRegion{FirstRow: 10, FirstColumn: 2, Rows: 5, Columns: 3}, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if markup != tableHTML {
		t.Error("unexpected chunk markup")
	}

	want := map[string]string{
		"name":               "t",
		"first_row":          "10",
		"first_col":          "2",
		"rows":               "5",
		"cols":               "3",
		"exclude_row_header": "true",
		"exclude_col_header": "false",
	}
	for k, v := range want {
		if query[k] != v {
			t.Errorf("query %s = %q, want %q", k, query[k], v)
		}
	}
}

func TestHTTP_Status(t *testing.T) {
	tests := []struct {
		status      int
		outOfBounds bool
		unreachable bool
	}{
		{http.StatusRequestedRangeNotSatisfiable, true, false},
		{http.StatusGone, false, true},
		{http.StatusInternalServerError, false, false},
		{http.StatusForbidden, false, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no", tt.status)
			}))
			defer srv.Close()

			src, err := source.NewHTTP(srv.URL, source.Options{}, zaptest.NewLogger(t))
			if err != nil {
				t.Fatal(err)
			}
			_, err = src.FetchChunk(context.Background(), table.ChunkRegion{Rows: 1, Columns: 1}, false, false)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, source.ErrRegionOutOfBounds); got != tt.outOfBounds {
				t.Errorf("out of bounds = %t, want %t (%v)", got, tt.outOfBounds, err)
			}
			if got := loader.IsUnreachable(err); got != tt.unreachable {
				t.Errorf("unreachable = %t, want %t (%v)", got, tt.unreachable, err)
			}
		})
	}
}

func TestHTTP_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src, err := source.NewHTTP(url, source.Options{Timeout: time.Second}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = src.FetchChunk(context.Background(), table.ChunkRegion{Rows: 1, Columns: 1}, false, false)
	if !loader.IsUnreachable(err) {
		t.Errorf("closed server must be reported as unreachable, got %v", err)
	}

	var ue *source.UnreachableError
	if !errors.As(err, &ue) {
		t.Errorf("expected UnreachableError, got %T", err)
	}
}

func TestHTTP_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src, err := source.NewHTTP(srv.URL, source.Options{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = src.FetchChunk(ctx, table.ChunkRegion{Rows: 1, Columns: 1}, false, false)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context error, got %v", err)
	}
	if loader.IsUnreachable(err) {
		t.Error("cancellation must not be reported as unreachable")
	}
}

func TestHTTP_Size(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Query().Has("rows") {
			w.Header().Set("X-Table-Rows", "1000")
			w.Header().Set("X-Table-Columns", "12")
		}
	}))
	defer srv.Close()

	src, err := source.NewHTTP(srv.URL+"?rows=1", source.Options{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if rows, cols, err := src.Size(context.Background()); err != nil || rows != 1000 || cols != 12 {
		t.Errorf("Size() = %d, %d, %v", rows, cols, err)
	}

	src, err = source.NewHTTP(srv.URL, source.Options{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if rows, cols, err := src.Size(context.Background()); err != nil || rows != -1 || cols != -1 {
		t.Errorf("Size() without headers = %d, %d, %v", rows, cols, err)
	}
}

func TestNewHTTP_BadURL(t *testing.T) {
	for _, u := range []string{"ftp://example.com/t", "http://[::1"} {
		if _, err := source.NewHTTP(u, source.Options{}, nil); err == nil {
			t.Errorf("NewHTTP(%q) must fail", u)
		}
	}
}
