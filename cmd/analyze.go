package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hairvision-ai/hairvision/internal/analysis"
	"github.com/hairvision-ai/hairvision/internal/client"
	"github.com/hairvision-ai/hairvision/internal/datauri"
	"github.com/hairvision-ai/hairvision/internal/models"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		photos    = map[models.PhotoAngle]*string{}
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Send four photos to a running server and stream the analysis",
		Example: `  hairvision analyze --front front.jpg --top top.jpg --left left.jpg --right right.jpg

  # Print the full result as JSON
  hairvision analyze --front f.jpg --top t.jpg --left l.jpg --right r.jpg --json > result.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := &models.PhotoSet{}
			for _, angle := range models.Angles {
				uri, err := readPhoto(*photos[angle])
				if err != nil {
					return fmt.Errorf("failed to read %s photo: %w", angle, err)
				}
				switch angle {
				case models.AngleFront:
					set.Front = uri
				case models.AngleTop:
					set.Top = uri
				case models.AngleLeft:
					set.Left = uri
				case models.AngleRight:
					set.Right = uri
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("Connecting..."),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			c := client.NewClient(a.cfg.ServerURL)
			final, err := c.Analyze(cmd.Context(), analysis.Request{SessionID: sessionID, Photos: set}, func(e analysis.Event) {
				switch e.Type {
				case analysis.EventStatus:
					bar.Describe(e.Message)
				case analysis.EventChunk:
					if err := bar.Set(e.TotalChars); err != nil {
						slog.Debug("Failed to update progress", "err", err)
					}
				}
			})
			_ = bar.Finish()
			if err != nil {
				if final != nil && final.Raw != nil {
					slog.Debug("Model reply", "raw", *final.Raw)
				}
				return err
			}
			if final.Type == analysis.EventError {
				return fmt.Errorf("analysis failed: %s", final.Error)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(final.Data)
			}
			printSummary(cmd, final)
			return nil
		},
	}

	for _, angle := range models.Angles {
		photos[angle] = cmd.Flags().String(string(angle), "", fmt.Sprintf("%s photo (JPEG or PNG)", angle))
		_ = cmd.MarkFlagRequired(string(angle))
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Client session id (default: random)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")

	return cmd
}

func readPhoto(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return datauri.Format(http.DetectContentType(data), data), nil
}

func printSummary(cmd *cobra.Command, e *analysis.Event) {
	out := cmd.OutOrStdout()
	r := e.Data
	g := r.GeometricAnalysis
	fmt.Fprintf(out, "Face shape:   %s\n", g.FaceShape)
	fmt.Fprintf(out, "Hair:         %s, %s\n", g.Texture(), g.Density())
	for i, rec := range r.Recommendations {
		fmt.Fprintf(out, "%d. %s (%.0f%%)\n", i+1, rec.Name, rec.SuitabilityScore)
		if rec.GeometricReasoning != "" {
			fmt.Fprintf(out, "   %s\n", rec.GeometricReasoning)
		}
	}
	if e.SessionCode != "" {
		fmt.Fprintf(out, "\nDisplay code: %s\n", e.SessionCode)
	}
}
