package charts

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/api"
)

// Handler handles chart projection HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandlePieChart handles GET /{portfolioId}/pieChart
func (h *Handler) HandlePieChart(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")

	items, err := h.service.PieChart(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Failed to build pie chart")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, items)
}

// HandleSankey handles GET /{portfolioId}/sankey
func (h *Handler) HandleSankey(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")

	graph, err := h.service.Sankey(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Failed to build sankey graph")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, graph)
}

// HandleProfitLoss handles GET /{portfolioId}/profitLoss?interval=day|month|year
func (h *Handler) HandleProfitLoss(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")

	interval, err := ParseInterval(r.URL.Query().Get("interval"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	points, err := h.service.ProfitLoss(portfolioID, interval)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Failed to build profit/loss series")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, points)
}
