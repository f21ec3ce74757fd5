// Package http exposes the dashboard's JSON API: record CRUD, the projection
// endpoint, spreadsheet import, exchange rates, AI insights and backup.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	gocache "github.com/patrickmn/go-cache"

	"nakit/internal/core"
	"nakit/internal/fx"
	"nakit/internal/insights"
	"nakit/internal/middleware/trace"
	"nakit/internal/projection"
	"nakit/internal/storage"
)

// Repository is the persistence surface the API needs.
type Repository interface {
	SaveAsset(ctx context.Context, a core.Asset) error
	ListAssets(ctx context.Context) ([]core.Asset, error)
	DeleteAsset(ctx context.Context, id string) error

	SaveCheck(ctx context.Context, c core.Check) error
	ListChecks(ctx context.Context) ([]core.Check, error)
	DeleteCheck(ctx context.Context, id string) error

	SaveRule(ctx context.Context, r core.RecurringRule) error
	ListRules(ctx context.Context) ([]core.RecurringRule, error)
	DeleteRule(ctx context.Context, id string) error

	SaveTransaction(ctx context.Context, t core.Transaction) error
	SaveTransactions(ctx context.Context, txs []core.Transaction) error
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	SaveTab(ctx context.Context, tab core.CustomTab) error
	ListTabs(ctx context.Context) ([]core.CustomTab, error)
	DeleteTab(ctx context.Context, id string) error

	SaveAnalysisReport(ctx context.Context, report storage.AnalysisReport) error
	LatestAnalysisReport(ctx context.Context) (storage.AnalysisReport, error)

	Export(ctx context.Context) (storage.Snapshot, error)
	Restore(ctx context.Context, snap storage.Snapshot) error
}

// RateSource serves the current exchange rate table.
type RateSource interface {
	Current(ctx context.Context) fx.Rates
	Refresh(ctx context.Context) fx.Rates
}

// RefreshPublisher notifies the worker that the underlying data changed.
// Optional; a nil publisher disables notifications.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, reason string) error
}

// Insights is the AI commentary surface. Optional.
type Insights interface {
	AnalyzeCashFlow(ctx context.Context, periods []projection.FlowPeriod) (string, error)
	Chat(ctx context.Context, message string, assets []core.Asset, periods []projection.FlowPeriod) (string, error)
	MarketInsights(ctx context.Context) (insights.MarketReport, error)
}

// Deps bundles the server's collaborators.
type Deps struct {
	Repo      Repository
	Rates     RateSource
	Publisher RefreshPublisher
	Analyst   Insights
	CacheTTL  time.Duration
}

type Server struct {
	http.Server

	repo      Repository
	rates     RateSource
	publisher RefreshPublisher
	analyst   Insights

	// Projection responses keyed by granularity and currency. Flushed on
	// every data write so a stale timeline is never served.
	projectionCache *gocache.Cache

	tracer       *trace.Middleware
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Server{
		repo:            deps.Repo,
		rates:           deps.Rates,
		publisher:       deps.Publisher,
		analyst:         deps.Analyst,
		projectionCache: gocache.New(ttl, 2*ttl),
		rateLimiter:     newRateLimiter(),
	}

	s.tracer = trace.NewMiddleware(clientIP)

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(s.withSecurityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/assets", s.handleListAssets)
		r.Post("/assets", s.handleSaveAsset)
		r.Delete("/assets/{id}", s.handleDeleteAsset)

		r.Get("/checks", s.handleListChecks)
		r.Post("/checks", s.handleSaveCheck)
		r.Delete("/checks/{id}", s.handleDeleteCheck)

		r.Get("/recurring-rules", s.handleListRules)
		r.Post("/recurring-rules", s.handleSaveRule)
		r.Delete("/recurring-rules/{id}", s.handleDeleteRule)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleSaveTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/tabs", s.handleListTabs)
		r.Post("/tabs", s.handleSaveTab)
		r.Delete("/tabs/{id}", s.handleDeleteTab)

		r.Get("/projection", s.handleProjection)

		r.Get("/rates", s.handleRates)
		r.Post("/rates/refresh", s.handleRefreshRates)

		r.Post("/import/preview", s.handleImportPreview)
		r.Post("/import/commit", s.handleImportCommit)

		r.Post("/insights/analysis", s.handleAnalysis)
		r.Get("/insights/analysis", s.handleLatestAnalysis)
		r.Post("/insights/chat", s.handleChat)
		r.Get("/insights/market", s.handleMarketInsights)

		r.Get("/backup", s.handleBackup)
		r.Post("/backup", s.handleRestoreBackup)
	})

	s.Server = http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Shutdown stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// invalidate flushes cached projections and, when a publisher is wired,
// nudges the worker. Called after every successful write.
func (s *Server) invalidate(ctx context.Context, reason string) {
	s.projectionCache.Flush()
	if s.publisher != nil {
		// Best effort; the API response does not depend on the broker.
		_ = s.publisher.PublishRefresh(ctx, reason)
	}
}

func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.ListTabs(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.tracer.GetMetrics())
}

// Simple in-memory rate limiter for mutating requests.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[ip]
	if !exists {
		rl.clients[ip] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}
