package domain

import "encoding/json"

// Envelope is the wire contract shared by every endpoint: callers treat
// isError as the sole failure signal, not the HTTP status code.
type Envelope struct {
	IsError bool            `json:"isError"`
	Data    json.RawMessage `json:"data"`
}

// ErrorPayload is the data carried by an error envelope.
type ErrorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorMessage extracts the server-provided message from an error envelope,
// falling back to the given default when the payload has none.
func (e Envelope) ErrorMessage(fallback string) string {
	if !e.IsError {
		return ""
	}
	var payload ErrorPayload
	if err := json.Unmarshal(e.Data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}
