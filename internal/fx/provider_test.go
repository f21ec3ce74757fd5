package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"nakit/internal/core"
)

func TestProviderCurrent(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("from") {
		case "EUR":
			w.Write([]byte(`{"rates":{"TRY":36.50}}`))
		case "USD":
			w.Write([]byte(`{"rates":{"TRY":32.00}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, nil)
	rates := p.Current(context.Background())

	if got := rates[core.EUR]; !got.Equal(dec("36.50")) {
		t.Errorf("EUR rate = %s, want 36.50", got)
	}
	if got := rates[core.USD]; !got.Equal(dec("32.00")) {
		t.Errorf("USD rate = %s, want 32.00", got)
	}

	// Second call must be served from cache.
	before := hits.Load()
	p.Current(context.Background())
	if hits.Load() != before {
		t.Errorf("expected cached rates, upstream hit %d more times", hits.Load()-before)
	}
}

func TestProviderFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	fallback := Rates{core.EUR: dec("36.50")}
	p := NewProvider(srv.URL, fallback)
	rates := p.Current(context.Background())

	if got := rates[core.EUR]; !got.Equal(dec("36.50")) {
		t.Errorf("EUR fallback rate = %s, want 36.50", got)
	}
	if _, ok := rates[core.USD]; ok {
		t.Error("USD has no quote and no fallback, should be absent")
	}
}

func TestProviderRefreshDropsCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"rates":{"TRY":36.50}}`))
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, nil)
	p.Current(context.Background())
	before := hits.Load()
	p.Refresh(context.Background())
	if hits.Load() == before {
		t.Error("Refresh() should re-fetch quotes")
	}
}
