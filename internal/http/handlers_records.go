package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nakit/internal/core"
	"nakit/internal/storage"
)

// --- assets ---

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.repo.ListAssets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list assets")
		return
	}
	respondJSON(w, http.StatusOK, assets)
}

func (s *Server) handleSaveAsset(w http.ResponseWriter, r *http.Request) {
	var asset core.Asset
	if err := decodeJSON(r, &asset); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	asset.Name = sanitizeInput(asset.Name)
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if err := asset.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.SaveAsset(r.Context(), asset); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save asset")
		return
	}

	s.invalidate(r.Context(), "assets")
	respondJSON(w, http.StatusOK, asset)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, "assets", s.repo.DeleteAsset)
}

// --- checks ---

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := s.repo.ListChecks(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list checks")
		return
	}
	respondJSON(w, http.StatusOK, checks)
}

func (s *Server) handleSaveCheck(w http.ResponseWriter, r *http.Request) {
	var check core.Check
	if err := decodeJSON(r, &check); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	check.Description = sanitizeInput(check.Description)
	if check.ID == "" {
		check.ID = uuid.NewString()
	}
	if err := check.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The collection date is fixed at save time, never recomputed on read.
	if err := check.ResolveEffectiveDate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.SaveCheck(r.Context(), check); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save check")
		return
	}

	s.invalidate(r.Context(), "checks")
	respondJSON(w, http.StatusOK, check)
}

func (s *Server) handleDeleteCheck(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, "checks", s.repo.DeleteCheck)
}

// --- recurring rules ---

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.repo.ListRules(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list recurring rules")
		return
	}
	respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleSaveRule(w http.ResponseWriter, r *http.Request) {
	var rule core.RecurringRule
	if err := decodeJSON(r, &rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rule.Description = sanitizeInput(rule.Description)
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if err := rule.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.SaveRule(r.Context(), rule); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save recurring rule")
		return
	}

	s.invalidate(r.Context(), "recurring-rules")
	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, "recurring-rules", s.repo.DeleteRule)
}

// --- transactions ---

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.repo.ListTransactions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tx.Description = sanitizeInput(tx.Description)
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Source == "" {
		tx.Source = core.SourceManual
	}
	if err := tx.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.SaveTransaction(r.Context(), tx); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}

	s.invalidate(r.Context(), "transactions")
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, "transactions", s.repo.DeleteTransaction)
}

// --- custom tabs ---

func (s *Server) handleListTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := s.repo.ListTabs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tabs")
		return
	}
	respondJSON(w, http.StatusOK, tabs)
}

func (s *Server) handleSaveTab(w http.ResponseWriter, r *http.Request) {
	var tab core.CustomTab
	if err := decodeJSON(r, &tab); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tab.Name = sanitizeInput(tab.Name)
	if tab.Name == "" {
		respondError(w, http.StatusBadRequest, "tab name is required")
		return
	}
	if tab.ID == "" {
		tab.ID = uuid.NewString()
	}

	if err := s.repo.SaveTab(r.Context(), tab); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save tab")
		return
	}
	respondJSON(w, http.StatusOK, tab)
}

func (s *Server) handleDeleteTab(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, "tabs", s.repo.DeleteTab)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, reason string, del func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing id")
		return
	}

	if err := del(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	s.invalidate(r.Context(), reason)
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
