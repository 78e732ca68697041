package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kadirpekel/corpus/pkg/rag"
	"github.com/kadirpekel/corpus/pkg/session"
)

// Result is the uniform response envelope. Every API response carries it,
// success or failure, so clients never have to parse a raw error.
type Result struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Content any    `json:"content"`
}

func writeJSON(w http.ResponseWriter, code int, result Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(result)
}

func writeOK(w http.ResponseWriter, message string, content any) {
	writeJSON(w, http.StatusOK, Result{
		Status:  true,
		Message: message,
		Content: content,
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatusCode(err), Result{
		Status:  false,
		Message: err.Error(),
	})
}

// errorStatusCode maps domain errors to HTTP status codes. Anything
// unrecognized is an internal failure.
func errorStatusCode(err error) int {
	switch {
	case errors.Is(err, rag.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, rag.ErrDuplicateCategory):
		return http.StatusConflict
	case errors.Is(err, rag.ErrUnsupportedFormat),
		errors.Is(err, rag.ErrNotConfigured),
		errors.Is(err, rag.ErrEmptyQuery),
		errors.Is(err, session.ErrIndexOutOfRange),
		errors.Is(err, session.ErrInvalidParameter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
