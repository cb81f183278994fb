// Package endpoints contains one file per HTTP endpoint. Each endpoint
// implements api.Endpoint, pairing the HTTP route with a CLI command that
// calls it over HTTP.
package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// All returns every endpoint in registration order.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Template endpoints
		&ListTemplatesEndpoint{},
		&CreateTemplateEndpoint{},
		&GetTemplateEndpoint{},
		&UpdateTemplateEndpoint{},
		&DeleteTemplateEndpoint{},
		&TemplateHistoryEndpoint{},
		&RevertTemplateEndpoint{},

		// Generation endpoints
		&GenerateEndpoint{},
		&AskEndpoint{},
		&AnalyzeEndpoint{},
	}
}

// ErrorResponse is the machine-readable error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a plain error payload with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeAppError maps a classified error to its stable external status and
// payload. Unclassified errors become opaque 500s - callers never see
// internals or stack traces.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		writeJSON(w, ae.Kind.HTTPStatus(), ErrorResponse{Error: ae.Message, Details: ae.Details})
		if ae.Kind == apperr.KindInternal {
			svcctx.LoggerFrom(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		}
		return
	}

	svcctx.LoggerFrom(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}

// readPayloadArg loads a JSON payload for CLI commands from a file path,
// or from stdin when path is "-".
func readPayloadArg(path string, v any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
