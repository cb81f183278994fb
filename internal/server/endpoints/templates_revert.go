package endpoints

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// RevertTemplateRequest is the request body for reverting a template.
type RevertTemplateRequest struct {
	Version string `json:"version"`
	Author  string `json:"author,omitempty"`
}

// RevertTemplateEndpoint handles POST /api/templates/{id}/revert. Reverting
// appends a new version carrying the target version's content rather than
// rewriting history.
type RevertTemplateEndpoint struct{}

func (e *RevertTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/templates/{id}/revert", e.handler
}

func (e *RevertTemplateEndpoint) RequiresInit() bool { return true }

func (e *RevertTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "template id is required")
		return
	}

	var req RevertTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.Version == "" {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "template store not initialized")
		return
	}

	tmpl, err := st.Revert(r.Context(), id, req.Version, req.Author)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

func (e *RevertTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <id> <version>",
		Short: "Revert a template to an earlier version's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var tmpl store.Template
			path := "/api/templates/" + url.PathEscape(args[0]) + "/revert"
			if err := client.Post(cmd.Context(), path, RevertTemplateRequest{Version: args[1]}, &tmpl); err != nil {
				return err
			}
			return api.Output(tmpl)
		},
	}
}
