package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/izposoja/internal/model"
)

// fail redirects back to target with a message describing err. Unexpected
// errors are logged and shown generically.
func fail(w http.ResponseWriter, r *http.Request, target string, err error) {
	redirectWithFlash(w, r, target, flashError, errorMessage(r, err))
}

func errorMessage(r *http.Request, err error) string {
	var (
		verr  *model.ValidationError
		nf    *model.NotFoundError
		full  *model.CapacityExceededError
		deliv *model.DeliveryError
	)
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		return "Invalid input: " + strings.Join(parts, "; ") + "."
	case errors.As(err, &nf):
		return "Not found: " + nf.Error() + "."
	case errors.As(err, &full):
		return "No units of this item are available."
	case errors.As(err, &deliv):
		return "The message could not be sent: " + deliv.Err.Error() + "."
	default:
		slog.Error("web request failed", "path", r.URL.Path, "error", err)
		return "Something went wrong. Please try again."
	}
}

func pathID(r *http.Request) (int64, bool) {
	return parseID(r.PathValue("id"))
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id, err == nil && id > 0
}
