package endpoints

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// DeleteTemplateEndpoint handles DELETE /api/templates/{id}.
type DeleteTemplateEndpoint struct{}

func (e *DeleteTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/templates/{id}", e.handler
}

func (e *DeleteTemplateEndpoint) RequiresInit() bool { return true }

func (e *DeleteTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	if err := st.Delete(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "templateId": id})
}

func (e *DeleteTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a template and its full version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/templates/" + url.PathEscape(args[0])); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
