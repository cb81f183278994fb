package endpoints

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// GetTemplateEndpoint handles GET /api/templates/{id}.
type GetTemplateEndpoint struct{}

func (e *GetTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/templates/{id}", e.handler
}

func (e *GetTemplateEndpoint) RequiresInit() bool { return true }

func (e *GetTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	resolved, err := st.Get(r.Context(), id, r.URL.Query().Get("version"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resolved)
}

func (e *GetTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a template by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/templates/" + url.PathEscape(args[0])
			if version != "" {
				path += "?version=" + url.QueryEscape(version)
			}

			client := api.NewClient(getServerURL())
			var resolved store.Resolved
			if err := client.Get(cmd.Context(), path, &resolved); err != nil {
				return err
			}
			return api.Output(resolved)
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "Specific version to fetch (defaults to current)")
	return cmd
}
