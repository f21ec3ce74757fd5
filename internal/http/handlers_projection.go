package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nakit/internal/core"
	"nakit/internal/fx"
	"nakit/internal/importer"
	"nakit/internal/projection"
	"nakit/internal/storage"
)

const maxImportSize = 20 << 20 // 20 MiB upload cap

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	granularity, currency := projectionParams(r)

	cacheKey := string(granularity) + "|" + string(currency)
	if cached, ok := s.projectionCache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	periods, err := s.project(r.Context(), granularity, currency)
	if err != nil {
		respondProjectionError(w, err)
		return
	}

	s.projectionCache.SetDefault(cacheKey, periods)
	respondJSON(w, http.StatusOK, periods)
}

// project assembles the full projection input from storage and runs it.
func (s *Server) project(ctx context.Context, granularity core.Granularity, currency core.Currency) ([]projection.FlowPeriod, error) {
	assets, err := s.repo.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	checks, err := s.repo.ListChecks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}

	return projection.Project(projection.Input{
		Granularity:  granularity,
		Today:        time.Now(),
		ViewCurrency: currency,
		Rates:        s.rates.Current(ctx),
		Assets:       assets,
		Checks:       checks,
		Transactions: txs,
		Rules:        rules,
	}, nil)
}

func projectionParams(r *http.Request) (core.Granularity, core.Currency) {
	granularity := core.Granularity(r.URL.Query().Get("granularity"))
	if granularity == "" {
		granularity = core.WeeklyView
	}
	currency := core.Currency(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = core.LocalCurrency
	}
	return granularity, currency
}

func respondProjectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidGranularity), errors.Is(err, core.ErrUnknownCurrency):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, fx.ErrMissingRate), errors.Is(err, fx.ErrInvalidRate):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "projection failed")
	}
}

// --- exchange rates ---

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.rates.Current(r.Context()))
}

func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	rates := s.rates.Refresh(r.Context())
	s.projectionCache.Flush()
	respondJSON(w, http.StatusOK, rates)
}

// --- spreadsheet import ---

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	opts := importer.Options{
		TabID:          r.FormValue("tabId"),
		CustomerColumn: r.FormValue("customerColumn"),
		DateColumn:     r.FormValue("dateColumn"),
		AmountColumn:   r.FormValue("amountColumn"),
		ApplyBoschRule: r.FormValue("boschRule") == "true",
	}
	if v := r.FormValue("valorDays"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			respondError(w, http.StatusBadRequest, "invalid valorDays")
			return
		}
		opts.ValorDays = days
	}

	preview, err := importer.ParseReceivables(file, opts)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse workbook: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, preview)
}

type importCommitRequest struct {
	TabID string         `json:"tabId"`
	Rows  []importer.Row `json:"rows"`
}

func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	var req importCommitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TabID == "" {
		respondError(w, http.StatusBadRequest, "missing tabId")
		return
	}
	if len(req.Rows) == 0 {
		respondError(w, http.StatusBadRequest, "nothing to import")
		return
	}

	txs := importer.Preview{Rows: req.Rows}.Transactions(req.TabID)
	if err := s.repo.SaveTransactions(r.Context(), txs); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save imported transactions")
		return
	}

	s.invalidate(r.Context(), "import")
	respondJSON(w, http.StatusOK, map[string]int{"imported": len(txs)})
}

// --- AI insights ---

type insightsRequest struct {
	Granularity core.Granularity `json:"granularity"`
	Currency    core.Currency    `json:"currency"`
	Message     string           `json:"message,omitempty"`
}

func (req *insightsRequest) applyDefaults() {
	if req.Granularity == "" {
		req.Granularity = core.WeeklyView
	}
	if req.Currency == "" {
		req.Currency = core.LocalCurrency
	}
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		respondError(w, http.StatusServiceUnavailable, "AI insights are not configured")
		return
	}

	var req insightsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.applyDefaults()

	periods, err := s.project(r.Context(), req.Granularity, req.Currency)
	if err != nil {
		respondProjectionError(w, err)
		return
	}

	text, err := s.analyst.AnalyzeCashFlow(r.Context(), periods)
	if err != nil {
		respondError(w, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}

	report := storage.AnalysisReport{
		ViewCurrency: req.Currency,
		Granularity:  string(req.Granularity),
		Content:      text,
	}
	if err := s.repo.SaveAnalysisReport(r.Context(), report); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store analysis")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := s.repo.LatestAnalysisReport(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no analysis yet")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		respondError(w, http.StatusServiceUnavailable, "AI insights are not configured")
		return
	}

	var req insightsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.applyDefaults()
	if sanitizeInput(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	periods, err := s.project(r.Context(), req.Granularity, req.Currency)
	if err != nil {
		respondProjectionError(w, err)
		return
	}
	assets, err := s.repo.ListAssets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list assets")
		return
	}

	reply, err := s.analyst.Chat(r.Context(), sanitizeInput(req.Message), assets, periods)
	if err != nil {
		respondError(w, http.StatusBadGateway, "chat failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"text": reply})
}

func (s *Server) handleMarketInsights(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		respondError(w, http.StatusServiceUnavailable, "AI insights are not configured")
		return
	}

	report, err := s.analyst.MarketInsights(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "market insights failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// --- backup ---

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.repo.Export(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := fmt.Sprintf("nakit-backup-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	respondJSON(w, http.StatusOK, snap)
}

// handleRestoreBackup replays an exported snapshot back into storage. The
// whole file is rejected on the first invalid record so a restore is never
// half-applied.
func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var snap storage.Snapshot
	if err := decodeJSON(r, &snap); err != nil {
		respondError(w, http.StatusBadRequest, "invalid backup file: "+err.Error())
		return
	}
	if err := validateSnapshot(snap); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Hand-edited backups may lack the stored collection dates.
	for i := range snap.Checks {
		if snap.Checks[i].EffectiveDate == "" {
			if err := snap.Checks[i].ResolveEffectiveDate(); err != nil {
				respondError(w, http.StatusBadRequest, "check "+snap.Checks[i].ID+": "+err.Error())
				return
			}
		}
	}

	if err := s.repo.Restore(r.Context(), snap); err != nil {
		respondError(w, http.StatusInternalServerError, "restore failed")
		return
	}

	s.invalidate(r.Context(), "backup restore")
	respondJSON(w, http.StatusOK, map[string]int{
		"assets":       len(snap.Assets),
		"checks":       len(snap.Checks),
		"rules":        len(snap.Rules),
		"transactions": len(snap.Transactions),
		"tabs":         len(snap.Tabs),
	})
}

func validateSnapshot(snap storage.Snapshot) error {
	for _, a := range snap.Assets {
		if a.ID == "" {
			return fmt.Errorf("asset %q: missing id", a.Name)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("asset %s: %w", a.ID, err)
		}
	}
	for _, c := range snap.Checks {
		if c.ID == "" {
			return fmt.Errorf("check %q: missing id", c.Description)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("check %s: %w", c.ID, err)
		}
	}
	for _, rule := range snap.Rules {
		if rule.ID == "" {
			return fmt.Errorf("recurring rule %q: missing id", rule.Description)
		}
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("recurring rule %s: %w", rule.ID, err)
		}
	}
	for _, t := range snap.Transactions {
		if t.ID == "" {
			return fmt.Errorf("transaction %q: missing id", t.Description)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}
	for _, tab := range snap.Tabs {
		if tab.ID == "" || strings.TrimSpace(tab.Name) == "" {
			return fmt.Errorf("tab %q: missing id or name", tab.ID)
		}
	}
	return nil
}
