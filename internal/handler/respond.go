package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
	"github.com/templui/estatedesk/internal/service/ai"
	"github.com/templui/estatedesk/internal/service/social"
	"github.com/templui/estatedesk/internal/service/video"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 32 << 20
)

var errInvalidJSON = errors.New("request body must be valid JSON")

type errorResponse struct {
	Error string `json:"error"`
}

type pageMeta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

type paginated struct {
	Data any      `json:"data"`
	Meta pageMeta `json:"meta"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a JSON request body into v.
// An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{errInvalidJSON, http.StatusBadRequest},
	{service.ErrInvalidEmail, http.StatusBadRequest},
	{service.ErrInvalidCurrentPassword, http.StatusBadRequest},
	{service.ErrPasswordless, http.StatusBadRequest},
	{service.ErrFacebookNotConnected, http.StatusBadRequest},
	{service.ErrFacebookPageNotConnected, http.StatusBadRequest},

	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidMagicLink, http.StatusUnauthorized},

	{service.ErrInsufficientCredits, http.StatusPaymentRequired},

	{service.ErrPropertyLimitReached, http.StatusForbidden},
	{service.ErrFeatureNotAvailable, http.StatusForbidden},
	{service.ErrUploadTokenInactive, http.StatusForbidden},
	{service.ErrUploadTokenExpired, http.StatusForbidden},
	{service.ErrUploadTokenUsedUp, http.StatusForbidden},
	{service.ErrUploadTokenScope, http.StatusForbidden},

	{repository.ErrPropertyNotFound, http.StatusNotFound},
	{repository.ErrAgentNotFound, http.StatusNotFound},
	{repository.ErrCustomFieldNotFound, http.StatusNotFound},
	{repository.ErrUploadTokenNotFound, http.StatusNotFound},
	{repository.ErrCurrencyNotFound, http.StatusNotFound},
	{service.ErrPhotoNotFound, http.StatusNotFound},
	{service.ErrNoVideo, http.StatusNotFound},
	{service.ErrLegalPageNotFound, http.StatusNotFound},

	{service.ErrCustomFieldLimit, http.StatusConflict},
	{service.ErrCustomFieldKey, http.StatusConflict},
	{service.ErrUsernameTaken, http.StatusConflict},
	{service.ErrActiveSubscription, http.StatusConflict},
	{repository.ErrDuplicateEmail, http.StatusConflict},

	{ai.ErrNotConfigured, http.StatusServiceUnavailable},
	{video.ErrNotConfigured, http.StatusServiceUnavailable},
	{social.ErrNotConfigured, http.StatusServiceUnavailable},
}

// classify maps service and repository errors to an HTTP status and the message
// the client may see. Wrapping context never leaves the server.
func classify(err error) (int, string) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Error()
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			if e.err == errInvalidJSON {
				return e.status, err.Error()
			}
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeServiceError answers with the status mapped from err.
// Server errors are logged with msg and attrs.
func writeServiceError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, append([]any{"error", err}, attrs...)...)
	}
	writeError(w, status, message)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
