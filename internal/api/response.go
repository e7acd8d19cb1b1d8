package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/erazemk/izposoja/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodySize limits JSON request bodies.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	var (
		verr *model.ValidationError
		nerr *model.NotFoundError
		cerr *model.CapacityExceededError
		derr *model.DeliveryError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &nerr):
		return http.StatusNotFound
	case errors.As(err, &cerr):
		return http.StatusConflict
	case errors.As(err, &derr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Unexpected errors are logged and
// hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", RequestID(r.Context()), "error", err)
		jsonError(w, status, "internal error")
		return
	}

	resp := errorResponse{Error: err.Error()}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	jsonResponse(w, status, resp)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(target)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, target any) error {
	err := decodeJSON(w, r, target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, model.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
