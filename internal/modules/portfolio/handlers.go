package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/api"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleList handles GET / - list all portfolios with aggregate sums
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, portfolios)
}

// HandleGet handles GET /{portfolioId}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "portfolioId")

	p, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, "portfolio not found", nil)
			return
		}
		h.log.Error().Err(err).Str("portfolio", id).Msg("Failed to get portfolio")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, p)
}

// HandleCreate handles POST /
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	p, err := h.service.Create(req)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusCreated, p)
}

// HandleRename handles PUT /{portfolioId}
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "portfolioId")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := h.service.Rename(id, req.Name); err != nil {
		if errors.Is(err, ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, "portfolio not found", nil)
			return
		}
		api.RespondServiceError(w, err)
		return
	}

	p, err := h.service.Get(id)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /{portfolioId}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "portfolioId")

	if err := h.service.Delete(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			api.RespondError(w, http.StatusNotFound, "portfolio not found", nil)
			return
		}
		h.log.Error().Err(err).Str("portfolio", id).Msg("Failed to delete portfolio")
		api.RespondServiceError(w, err)
		return
	}
	api.RespondData(w, http.StatusOK, map[string]string{"id": id})
}
