package market

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/api"
	"github.com/portfolio-management-app/money-master/internal/domain"
)

// Handler handles market data HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleStockQuote handles GET /stock/{symbol}
func (h *Handler) HandleStockQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := h.service.StockQuote(r.Context(), symbol)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Stock quote lookup failed")
		api.RespondError(w, http.StatusBadGateway, err.Error(), nil)
		return
	}
	api.RespondData(w, http.StatusOK, quote)
}

// HandleCryptoQuote handles GET /crypto/{coinCode}
func (h *Handler) HandleCryptoQuote(w http.ResponseWriter, r *http.Request) {
	coinCode := chi.URLParam(r, "coinCode")

	quote, err := h.service.CryptoQuote(r.Context(), coinCode)
	if err != nil {
		h.log.Warn().Err(err).Str("coin", coinCode).Msg("Crypto quote lookup failed")
		api.RespondError(w, http.StatusBadGateway, err.Error(), nil)
		return
	}
	api.RespondData(w, http.StatusOK, quote)
}

// HandleSearch handles GET /search/{assetType}?q=text
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	assetType, err := domain.ParseAssetType(chi.URLParam(r, "assetType"), false)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	results, err := h.service.Search(r.Context(), assetType, r.URL.Query().Get("q"))
	if err != nil {
		api.RespondError(w, http.StatusBadGateway, err.Error(), nil)
		return
	}
	api.RespondData(w, http.StatusOK, results)
}
