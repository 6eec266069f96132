package family

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/nao1215/infostats/internal/model"
)

func TestSearchResolve(t *testing.T) {
	t.Parallel()

	t.Run("pages through results", func(t *testing.T) {
		t.Parallel()

		all := []model.Page{
			{Link: "/check-uk-visa", Title: "Check if you need a UK visa"},
			{Link: "/calculate-state-pension", Title: "State Pension calculator"},
			{Link: "/maternity-paternity-calculator", Title: "Maternity pay"},
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("filter_format") != model.FormatSmartAnswer {
				t.Errorf("filter_format = %q", q.Get("filter_format"))
			}
			start, _ := strconv.Atoi(q.Get("start"))
			count, _ := strconv.Atoi(q.Get("count"))
			end := min(start+count, len(all))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": all[start:end],
				"total":   len(all),
			})
		}))
		defer srv.Close()

		s := NewSearch(srv.URL, nil, WithPageSize(2), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		pages, err := s.Resolve(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(pages))
		}
		for _, p := range pages {
			if p.Format != model.FormatSmartAnswer {
				t.Errorf("%s: format = %q", p.Link, p.Format)
			}
		}
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		if _, err := NewSearch(srv.URL, nil).Resolve(context.Background()); err == nil {
			t.Error("expected an error")
		}
	})
}
