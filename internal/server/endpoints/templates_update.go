package endpoints

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// UpdateTemplateRequest is the request body for updating a template. Omitted
// fields keep their current values; supplying content appends a new version.
type UpdateTemplateRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Type        *string        `json:"type,omitempty"`
	Status      *string        `json:"status,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Content     *store.Content `json:"currentContent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Changelog   string         `json:"changelog,omitempty"`
	Author      string         `json:"author,omitempty"`

	// ExpectedVersion rejects the update with 409 when the template has
	// moved past the version the caller last read.
	ExpectedVersion string `json:"expectedVersion,omitempty"`
}

// UpdateTemplateEndpoint handles PUT /api/templates/{id}.
type UpdateTemplateEndpoint struct{}

func (e *UpdateTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/templates/{id}", e.handler
}

func (e *UpdateTemplateEndpoint) RequiresInit() bool { return true }

func (e *UpdateTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "template id is required")
		return
	}

	var req UpdateTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "template store not initialized")
		return
	}

	tmpl, err := st.Update(r.Context(), id, store.UpdateInput{
		Name:            req.Name,
		Description:     req.Description,
		Type:            req.Type,
		Status:          req.Status,
		Tags:            req.Tags,
		Content:         req.Content,
		Metadata:        req.Metadata,
		Changelog:       req.Changelog,
		Author:          req.Author,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

func (e *UpdateTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var changelog string
	cmd := &cobra.Command{
		Use:   "update <id> <file>",
		Short: "Update a template from a JSON file (use - for stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req UpdateTemplateRequest
			if err := readPayloadArg(args[1], &req); err != nil {
				return err
			}
			if changelog != "" {
				req.Changelog = changelog
			}

			client := api.NewClient(getServerURL())
			var tmpl store.Template
			if err := client.Put(cmd.Context(), "/api/templates/"+url.PathEscape(args[0]), req, &tmpl); err != nil {
				return err
			}
			return api.Output(tmpl)
		},
	}
	cmd.Flags().StringVar(&changelog, "changelog", "", "Changelog entry for the new version")
	return cmd
}
