package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/dmitrijs2005/talenthub/internal/server/services"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every API response.
type envelope struct {
	Success      bool          `json:"success"`
	StatusCode   int           `json:"statusCode"`
	Message      string        `json:"message"`
	Data         any           `json:"data,omitempty"`
	ErrorDetails *errorDetails `json:"errorDetails,omitempty"`
}

type errorDetails struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (h *handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn(r.Context(), "response encode failed", "error", err)
	}
}

func (h *handlers) success(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	h.writeJSON(w, r, status, envelope{Success: true, StatusCode: status, Message: message, Data: data})
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, status int, message string, details *errorDetails) {
	h.writeJSON(w, r, status, envelope{StatusCode: status, Message: message, ErrorDetails: details})
}

// failErr renders a service error. Only the client-safe message and field are
// exposed.
func (h *handlers) failErr(w http.ResponseWriter, r *http.Request, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		h.fail(w, r, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	var details *errorDetails
	if se.Field != "" {
		details = &errorDetails{Field: se.Field, Message: se.Message}
	}

	switch {
	case errors.Is(se, common.ErrorValidation):
		h.fail(w, r, http.StatusBadRequest, "Validation error occurred.", details)
	case errors.Is(se, common.ErrorAlreadyExists):
		h.fail(w, r, http.StatusBadRequest, se.Message, details)
	case errors.Is(se, common.ErrorUnauthorized):
		h.fail(w, r, http.StatusUnauthorized, se.Message, details)
	default:
		h.fail(w, r, http.StatusInternalServerError, se.Message, nil)
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}
