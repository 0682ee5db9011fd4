// Package api holds the response envelope helpers shared by all HTTP
// handlers. Every response body is {"isError": bool, "data": ...} so
// clients can branch on one field.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

type envelope struct {
	IsError bool        `json:"isError"`
	Data    interface{} `json:"data"`
}

type errorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// RespondData writes a success envelope.
func RespondData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{IsError: false, Data: data})
}

// RespondError writes an error envelope with an optional field map.
func RespondError(w http.ResponseWriter, status int, message string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		IsError: true,
		Data:    errorPayload{Message: message, Fields: fields},
	})
}

// RespondServiceError maps known error kinds onto HTTP statuses.
func RespondServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}
	if errors.Is(err, domain.ErrInsufficientFunds) {
		RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	RespondError(w, http.StatusInternalServerError, err.Error(), nil)
}
