package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/akolanti/DocTalk/internal/adapter"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/telemetry"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already out, nothing left to tell the client
		slog.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	writeJsonResponse(w, httpCode, adapter.ToErrorResponse(message))
}

// StatusFor maps a pipeline error onto the HTTP status and the message the
// client sees. Remote error details stay in the logs.
func StatusFor(err error) (int, string) {
	var ragErr *ragErrors.RagError
	switch {
	case errors.As(err, &ragErr) && ragErr.Kind == ragErrors.KindValidation:
		return http.StatusBadRequest, ragErr.Error()
	case errors.As(err, &ragErr) && ragErr.Kind == ragErrors.KindNotFound:
		return http.StatusNotFound, ragErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, "Request timed out."
	case errors.As(err, &ragErr) && ragErr.Kind == ragErrors.KindExternal:
		return http.StatusInternalServerError, fmt.Sprintf("The %s service failed.", ragErr.Stage)
	case errors.As(err, &ragErr) && ragErr.Kind == ragErrors.KindPersistence:
		return http.StatusInternalServerError, "Document index is unavailable."
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := StatusFor(err)
	log := h.logger.WithContext(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error("Request failed", "path", r.URL.Path, "error", err)
		telemetry.CaptureError(r.Context(), err)
	} else {
		log.Warn("Request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	WriteErrorResponse(w, code, message)
}
