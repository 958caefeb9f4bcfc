package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/assets"
	"github.com/sinhabinayak2207/extrawork/internal/auth"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
	"github.com/sinhabinayak2207/extrawork/internal/service"
	"github.com/sinhabinayak2207/extrawork/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrSlugTaken), errors.Is(err, remote.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidItem), errors.Is(err, store.ErrEmptyImageURL),
		errors.Is(err, store.ErrWrongCollection), errors.Is(err, service.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownCollection):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNoAssetHost):
		return http.StatusServiceUnavailable
	case errors.Is(err, remote.ErrUnavailable), errors.Is(err, assets.ErrUpload):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	respond(w, status, errorBody{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	respond(w, http.StatusBadRequest, errorBody{Error: msg})
}
