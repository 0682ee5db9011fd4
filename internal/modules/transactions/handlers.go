package transactions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/api"
	"github.com/portfolio-management-app/money-master/internal/domain"
	"github.com/portfolio-management-app/money-master/internal/modules/fund"
)

// Handler handles transaction and invest-fund HTTP requests
type Handler struct {
	service  *Service
	fundRepo *fund.Repository
	log      zerolog.Logger
}

// NewHandler creates a new transactions handler
func NewHandler(service *Service, fundRepo *fund.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		fundRepo: fundRepo,
		log:      log.With().Str("handler", "transactions").Logger(),
	}
}

// HandleApply handles POST /{portfolioId}/transactions
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")

	var req domain.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	rec, err := h.service.Apply(portfolioID, req)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusCreated, rec)
}

// HandleHistory handles GET /{portfolioId}/{assetType}/{assetId}/transactions
//
// Query parameters: pageSize, pageNumber, type (all|in|out), startDate,
// endDate (unix seconds).
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")
	assetType, err := domain.ParseAssetType(chi.URLParam(r, "assetType"), true)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	assetID, err := strconv.ParseInt(chi.URLParam(r, "assetId"), 10, 64)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid asset id", nil)
		return
	}

	q := r.URL.Query()
	req := ListRequest{
		PortfolioID: portfolioID,
		AssetType:   string(assetType),
		AssetID:     assetID,
		Type:        q.Get("type"),
	}
	if v := q.Get("pageSize"); v != "" {
		req.PageSize, _ = strconv.Atoi(v)
	}
	if v := q.Get("pageNumber"); v != "" {
		req.PageNumber, _ = strconv.Atoi(v)
	}
	if v := q.Get("startDate"); v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			ts := time.Unix(sec, 0).UTC()
			req.StartDate = &ts
		}
	}
	if v := q.Get("endDate"); v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			ts := time.Unix(sec, 0).UTC()
			req.EndDate = &ts
		}
	}

	page, err := h.service.History(req)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Failed to read transaction history")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, page)
}

// HandlePortfolioHistory handles GET /{portfolioId}/transactions
func (h *Handler) HandlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")

	trail, err := h.service.PortfolioHistory(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Failed to read transaction trail")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, trail)
}

// HandleGetFund handles GET /{portfolioId}/fund
func (h *Handler) HandleGetFund(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")

	f, err := h.fundRepo.Get(portfolioID)
	if err != nil {
		if errors.Is(err, fund.ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, "invest fund not found", nil)
			return
		}
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, f)
}

// HandleMoveToFund handles POST /{portfolioId}/fund
func (h *Handler) HandleMoveToFund(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")

	var req MoveToFundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	rec, err := h.service.MoveToFund(portfolioID, req)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusCreated, rec)
}
