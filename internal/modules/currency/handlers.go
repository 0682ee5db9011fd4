package currency

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/api"
)

// Handler handles currency HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "currency").Logger(),
	}
}

// HandleList handles GET /currencies
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	api.RespondData(w, http.StatusOK, h.service.List())
}

// HandleConvert handles GET /currencies/convert?amount=&from=&to=
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid amount", nil)
		return
	}

	converted, err := h.service.Convert(r.Context(), amount, q.Get("from"), q.Get("to"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	api.RespondData(w, http.StatusOK, map[string]interface{}{
		"amount":   converted,
		"currency": q.Get("to"),
	})
}
