package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// CreateTemplateRequest is the request body for creating a template.
type CreateTemplateRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type,omitempty"`
	Status      string         `json:"status,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Content     store.Content  `json:"currentContent"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Author      string         `json:"author,omitempty"`
}

// CreateTemplateEndpoint handles POST /api/templates.
type CreateTemplateEndpoint struct{}

func (e *CreateTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/templates", e.handler
}

func (e *CreateTemplateEndpoint) RequiresInit() bool { return true }

func (e *CreateTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "template store not initialized")
		return
	}

	tmpl, err := st.Create(r.Context(), store.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		Tags:        req.Tags,
		Content:     req.Content,
		Metadata:    req.Metadata,
		Author:      req.Author,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tmpl)
}

func (e *CreateTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "create <file>",
		Short: "Create a template from a JSON file (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req CreateTemplateRequest
			if err := readPayloadArg(args[0], &req); err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var tmpl store.Template
			if err := client.Post(cmd.Context(), "/api/templates", req, &tmpl); err != nil {
				return err
			}
			return api.Output(tmpl)
		},
	}
}
