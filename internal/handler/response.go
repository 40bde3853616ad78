package handler

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"image-manager/internal/model"
	"image-manager/pkg/apierror"
)

const maxJSONBodyBytes = 64 * 1024

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "unexpected server error",
	}

	var apiErr *apierror.APIError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
		if status >= http.StatusInternalServerError {
			slog.Error("request failed", "code", apiErr.Code, "error", apiErr.Cause())
		}
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
		body.Code = "PAYLOAD_TOO_LARGE"
		body.Message = "request body exceeds the upload limit"
	case errors.Is(err, fs.ErrPermission):
		status = http.StatusForbidden
		body.Code = "ACCESS_DENIED"
		body.Message = "permission denied"
	case errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "path not found"
	default:
		slog.Error("unhandled error in writeError", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// decodeJSON reads a small JSON body into dst. An empty body leaves dst
// untouched so callers can fall back to query parameters.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apierror.InvalidInput("invalid JSON body", "")
	}

	return nil
}

// pathFromRequest takes "path" from the JSON body, or from the query string
// when the body does not carry one.
func pathFromRequest(r *http.Request) (string, error) {
	var payload model.PathRequest
	if err := decodeJSON(r, &payload); err != nil {
		return "", err
	}

	if strings.TrimSpace(payload.Path) != "" {
		return payload.Path, nil
	}

	return r.URL.Query().Get("path"), nil
}
