package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	pkgerrors "github.com/matzehuels/pkgindex/pkg/errors"
	"github.com/matzehuels/pkgindex/pkg/store"
)

// APIVersion is reported in every envelope.
const APIVersion = "2.0.0"

type envelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{APIVersion: APIVersion, Data: data})
}

func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{
		APIVersion: APIVersion,
		Error:      &errorBody{Code: status, Message: message},
	})
}

// writeError maps err to the error envelope. Only errors carrying an HTTP
// status reach the client verbatim.
func writeError(w http.ResponseWriter, r *http.Request, logger *log.Logger, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeErrorStatus(w, http.StatusNotFound, "not found")
		return
	}
	if he, ok := pkgerrors.AsHTTPError(err); ok {
		writeErrorStatus(w, he.Status, he.Message)
		return
	}
	logger.Error("unhandled error", "method", r.Method, "path", r.URL.Path, "request_id", requestID(r.Context()), "err", err)
	writeErrorStatus(w, http.StatusInternalServerError, "internal server error")
}

// forbidden answers every request that matches no route.
func forbidden(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusForbidden, errorBody{Code: http.StatusForbidden, Message: "forbidden"})
}
