package endpoints

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// TemplateHistoryResponse is the response for the version history endpoint.
type TemplateHistoryResponse struct {
	TemplateID     string              `json:"templateId"`
	CurrentVersion string              `json:"currentVersion"`
	Versions       []store.VersionInfo `json:"versions"`
}

// TemplateHistoryEndpoint handles GET /api/templates/{id}/history.
type TemplateHistoryEndpoint struct{}

func (e *TemplateHistoryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/templates/{id}/history", e.handler
}

func (e *TemplateHistoryEndpoint) RequiresInit() bool { return true }

func (e *TemplateHistoryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "template id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "template store not initialized")
		return
	}

	versions, err := st.History(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resolved, err := st.Get(r.Context(), id, "")
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resp := TemplateHistoryResponse{
		TemplateID:     id,
		CurrentVersion: resolved.CurrentVersion,
		Versions:       versions,
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *TemplateHistoryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show a template's version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TemplateHistoryResponse
			if err := client.Get(cmd.Context(), "/api/templates/"+url.PathEscape(args[0])+"/history", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
