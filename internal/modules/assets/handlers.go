package assets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/api"
	"github.com/portfolio-management-app/money-master/internal/domain"
)

// AssetCreator persists a new asset, debiting the named money source in
// the same transaction. Implemented by the transactions service; the
// indirection keeps this package free of a dependency on it.
type AssetCreator interface {
	CreateAssetWithSource(portfolioID string, asset domain.Asset, source MoneySource,
		fee, tax decimal.Decimal) (domain.Asset, domain.Transaction, error)
}

// Handler handles asset HTTP requests
type Handler struct {
	service *Service
	creator AssetCreator
	log     zerolog.Logger
}

// NewHandler creates a new assets handler
func NewHandler(service *Service, creator AssetCreator, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		creator: creator,
		log:     log.With().Str("handler", "assets").Logger(),
	}
}

func parseAssetParams(r *http.Request) (string, domain.AssetType, int64, error) {
	portfolioID := chi.URLParam(r, "portfolioId")
	assetType, err := domain.ParseAssetType(chi.URLParam(r, "assetType"), false)
	if err != nil {
		return "", "", 0, err
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "assetId"), 10, 64)
	if err != nil {
		return "", "", 0, errors.New("invalid asset id")
	}
	return portfolioID, assetType, id, nil
}

// HandleList handles GET /{portfolioId}/{assetType}
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")
	assetType, err := domain.ParseAssetType(chi.URLParam(r, "assetType"), false)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	list, err := h.service.List(portfolioID, assetType)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Failed to list assets")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, list)
}

// HandleGet handles GET /{portfolioId}/{assetType}/{assetId}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	portfolioID, assetType, id, err := parseAssetParams(r)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	a, err := h.service.Get(portfolioID, assetType, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, "asset not found", nil)
			return
		}
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, a)
}

// HandleCreate handles POST /{portfolioId}/{assetType}
//
// When the payload names a money source (fund or a cash asset), the
// debit and the insert commit together.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")
	assetType, err := domain.ParseAssetType(chi.URLParam(r, "assetType"), false)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := h.service.Validate(assetType, req); err != nil {
		api.RespondServiceError(w, err)
		return
	}
	asset, err := h.service.Build(portfolioID, assetType, req)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}

	created, _, err := h.creator.CreateAssetWithSource(portfolioID, asset, req.MoneySource, req.Fee, req.Tax)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /{portfolioId}/{assetType}/{assetId}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	portfolioID, assetType, id, err := parseAssetParams(r)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	updated, err := h.service.Update(portfolioID, assetType, id, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, "asset not found", nil)
			return
		}
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /{portfolioId}/{assetType}/{assetId}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	portfolioID, assetType, id, err := parseAssetParams(r)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := h.service.Delete(portfolioID, assetType, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, "asset not found", nil)
			return
		}
		h.log.Error().Err(err).Int64("asset", id).Msg("Failed to delete asset")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, map[string]int64{"id": id})
}
