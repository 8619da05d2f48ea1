// Package api contains helpers for http handlers: response writers and common middlewares.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Error ...
// swagger:model
type Error struct {
	Error string `json:"error"`
}

// WriteOK writes object as json with the status code.
func WriteOK(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) // nolint:errcheck
}

// WriteError writes error message as json with the status code.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteOK(w, status, Error{Error: message})
}

// WriteInternalError logs the error and writes opaque internal error response.
func WriteInternalError(ctx context.Context, w http.ResponseWriter, message string) {
	GetLogger(ctx).Error(message)
	WriteError(w, http.StatusInternalServerError, "internal error")
}

// WriteInternalErrorf is WriteInternalError with formatting.
func WriteInternalErrorf(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	WriteInternalError(ctx, w, fmt.Sprintf(format, args...))
}
