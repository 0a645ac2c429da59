package api

import (
	"net/http"
	"strconv"

	"github.com/defi-dashboard/internal/service"
	"github.com/gorilla/mux"
)

// SyncRequest is the POST /api/portfolio/sync body
type SyncRequest struct {
	Address string `json:"address"`
}

// handleGetPortfolio handles GET /api/portfolio/{address}
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	account, err := s.engine.GetPortfolio(r.Context(), address)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, account)
}

// handleListTransactions handles GET /api/portfolio/{address}/transactions.
// An optional limit query parameter trims the window; the API caps it at the
// engine default since the engine itself honors any limit.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be an integer", nil)
			return
		}
		limit = parsed
	}
	if limit <= 0 || limit > service.DefaultTransactionLimit {
		limit = service.DefaultTransactionLimit
	}

	transactions, err := s.engine.ListTransactions(r.Context(), address, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, transactions)
}

// handleSync handles POST /api/portfolio/sync
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body", nil)
		return
	}

	result, err := s.engine.SyncTransactions(r.Context(), req.Address)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, result)
}
