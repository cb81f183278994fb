package endpoints

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/generate"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// AskRequest is the request body for the ask endpoint.
type AskRequest struct {
	Question string `json:"question"`
}

// AskEndpoint handles POST /api/ask: a free-form question answered with
// retrieved reference context.
type AskEndpoint struct{}

func (e *AskEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/ask", e.handler
}

func (e *AskEndpoint) RequiresInit() bool { return true }

func (e *AskEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	pipeline := svcctx.PipelineFrom(r.Context())
	if pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "generation pipeline not initialized")
		return
	}

	answer, err := pipeline.Ask(r.Context(), req.Question)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (e *AskEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a design question grounded in reference documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var answer generate.Answer
			req := AskRequest{Question: strings.Join(args, " ")}
			if err := client.Post(cmd.Context(), "/api/ask", req, &answer); err != nil {
				return err
			}
			return api.Output(answer)
		},
	}
}
