package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"io"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/formulary/internal/errors"
	"github.com/hpungsan/formulary/internal/logging"
)

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderSuccess writes {"success": true, ...fields} with HTTP 200.
func renderSuccess(w http.ResponseWriter, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	renderJSON(w, http.StatusOK, body)
}

// renderError writes {"success": false, "error": message} with the mapped status.
// Server-side failures are logged; the message still reaches the client.
func renderError(w http.ResponseWriter, r *http.Request, log *logging.Logger, err error) {
	appErr := errors.As(err)

	if appErr.Status >= http.StatusInternalServerError {
		log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", string(appErr.Code),
			"error", appErr.Message,
			"request_id", RequestIDFrom(r.Context()),
		)
	}

	renderJSON(w, appErr.Status, map[string]any{
		"success": false,
		"error":   appErr.Message,
	})
}

// decodeJSON reads the request body into dst. An empty body decodes as {}
// so that missing fields surface as validation errors.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxErr):
			return errors.NewPayloadTooLarge(maxErr.Limit)
		case stderrors.Is(err, io.EOF):
			return nil
		default:
			return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
		}
	}
	return nil
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is omitted.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTMLEscapeString(md)
	}
	return buf.String()
}
