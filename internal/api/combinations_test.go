package api

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erazemk/znamke/internal/combo"
)

func TestSearchErrorStatus(t *testing.T) {
	live := httptest.NewRequest("GET", "/api/combinations", nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"too large", &combo.EnumerationTooLargeError{Total: big.NewInt(31), Limit: 10}, http.StatusUnprocessableEntity},
		{"invalid config", fmt.Errorf("%w: min above max", combo.ErrInvalidConfig), http.StatusBadRequest},
		{"deadline", fmt.Errorf("loading inventory: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"cancelled while client waits", context.Canceled, http.StatusInternalServerError},
		{"other", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		searchError(rec, live, tt.err)
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, rec.Code)
		}
	}
}

func TestSearchErrorClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest("GET", "/api/combinations", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	searchError(rec, r, fmt.Errorf("searching: %w", context.Canceled))
	if rec.Body.Len() != 0 || rec.Header().Get("Content-Type") != "" {
		t.Errorf("expected nothing written for a departed client, got %q", rec.Body.String())
	}
}
