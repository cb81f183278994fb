package endpoints

import (
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/internal/generate"
	"github.com/mrlynn/design-reviewer-backend/internal/svcctx"
)

// AnalyzeRequest is the request body for the analyze endpoint.
type AnalyzeRequest struct {
	Transcript string `json:"transcript"`
}

// AnalyzeEndpoint handles POST /api/analyze: turns a review-session
// transcript into a structured design-review document.
type AnalyzeEndpoint struct{}

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	pipeline := svcctx.PipelineFrom(r.Context())
	if pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "generation pipeline not initialized")
		return
	}

	analysis, err := pipeline.Analyze(r.Context(), req.Transcript)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a transcript file into a structured review (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var transcript []byte
			var err error
			if args[0] == "-" {
				transcript, err = io.ReadAll(os.Stdin)
			} else {
				transcript, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var analysis generate.Analysis
			req := AnalyzeRequest{Transcript: string(transcript)}
			if err := client.Post(cmd.Context(), "/api/analyze", req, &analysis); err != nil {
				return err
			}
			return api.Output(analysis)
		},
	}
}
