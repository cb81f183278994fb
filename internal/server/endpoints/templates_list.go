package endpoints

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/store"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// ListTemplatesResponse is the response for listing templates.
type ListTemplatesResponse struct {
	Templates []store.Summary `json:"templates"`
	Count     int             `json:"count"`
}

// ListTemplatesEndpoint handles GET /api/templates.
type ListTemplatesEndpoint struct{}

func (e *ListTemplatesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/templates", e.handler
}

func (e *ListTemplatesEndpoint) RequiresInit() bool { return true }

func (e *ListTemplatesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "template store not initialized")
		return
	}

	q := r.URL.Query()
	f := store.Filter{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Search: q.Get("search"),
	}
	if tags := q.Get("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}

	summaries, err := st.List(r.Context(), f)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}

	writeJSON(w, http.StatusOK, ListTemplatesResponse{Templates: summaries, Count: len(summaries)})
}

func (e *ListTemplatesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status, templateType, tags, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if status != "" {
				params.Set("status", status)
			}
			if templateType != "" {
				params.Set("type", templateType)
			}
			if tags != "" {
				params.Set("tags", tags)
			}
			if search != "" {
				params.Set("search", search)
			}
			path := "/api/templates"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			client := api.NewClient(getServerURL())
			var resp ListTemplatesResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (draft, published, archived)")
	cmd.Flags().StringVar(&templateType, "type", "", "Filter by template type")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags (all must match)")
	cmd.Flags().StringVar(&search, "search", "", "Substring search over name, description, and tags")
	return cmd
}
