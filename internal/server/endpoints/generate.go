package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/generate"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// GenerateEndpoint handles POST /api/generate.
type GenerateEndpoint struct{}

func (e *GenerateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generate", e.handler
}

func (e *GenerateEndpoint) RequiresInit() bool { return true }

func (e *GenerateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req generate.Request
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	pipeline := svcctx.PipelineFrom(r.Context())
	if pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "generation pipeline not initialized")
		return
	}

	result, err := pipeline.Generate(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *GenerateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <file>",
		Short: "Generate a review document from a request JSON file (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req generate.Request
			if err := readPayloadArg(args[0], &req); err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var result generate.Result
			if err := client.Post(cmd.Context(), "/api/generate", req, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
}
