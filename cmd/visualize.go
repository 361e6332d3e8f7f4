package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hairvision-ai/hairvision/internal/client"
	"github.com/hairvision-ai/hairvision/internal/datauri"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
	"github.com/hairvision-ai/hairvision/internal/visualize"
)

func newVisualizeCmd(a *app) *cobra.Command {
	var (
		resultPath string
		photoPath  string
		angle      string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "visualize CODE REC_ID",
		Short: "Render a preview of one recommendation and attach it to a session",
		Long: `Asks the server for a preview of recommendation REC_ID drawn on a photo.

The prompt comes from the analysis result written by "analyze --json": the
model's own prompt for REC_ID when it sent one, otherwise one built from the
recommendation. The preview is attached to the display session CODE; pass
"-" as CODE to skip that.`,
		Example: `  hairvision analyze --front f.jpg --top t.jpg --left l.jpg --right r.jpg --json > result.json
  hairvision visualize ABC234 rec_1 --result result.json --photo f.jpg --output preview.png`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, recID := args[0], args[1]

			result, err := readResult(resultPath)
			if err != nil {
				return err
			}
			prompt, ok := result.PromptFor(recID)
			if !ok {
				return fmt.Errorf("recommendation %q is not in %s", recID, resultPath)
			}

			photo, err := readPhoto(photoPath)
			if err != nil {
				return fmt.Errorf("failed to read photo: %w", err)
			}
			if img, err := datauri.Parse(photo); err == nil {
				if w, h, err := img.Dimensions(); err == nil {
					slog.Debug("Source photo", "path", photoPath, "width", w, "height", h)
				}
			}

			req := visualize.Request{
				RecommendationID:     recID,
				OriginalPhotoDataURL: photo,
				OriginalPhotoAngle:   models.PhotoAngle(angle),
				Prompt:               &prompt,
			}
			if code != "-" {
				req.SessionCode = sessioncode.Normalize(code)
			}

			res, err := client.NewClient(a.cfg.ServerURL).Visualize(cmd.Context(), req)
			if err != nil {
				return err
			}

			if output == "" {
				output = recID + extension(datauri.MIMEType(res.GeneratedImageURL, "image/png"))
			}
			img, err := datauri.Parse(res.GeneratedImageURL)
			if err != nil {
				return fmt.Errorf("server returned an unreadable image: %w", err)
			}
			if err := os.WriteFile(output, img.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write preview: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Preview:  %s\n", output)
			if req.SessionCode != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Attached: %s\n", req.SessionCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resultPath, "result", "", "Analysis result JSON from analyze --json")
	cmd.Flags().StringVar(&photoPath, "photo", "", "Photo to draw the preview on (JPEG or PNG)")
	cmd.Flags().StringVar(&angle, "angle", string(models.AngleFront), "Angle of --photo (front, top, left, right)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the preview (default: REC_ID plus the image extension)")
	_ = cmd.MarkFlagRequired("result")
	_ = cmd.MarkFlagRequired("photo")

	return cmd
}

func readResult(path string) (*models.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis result: %w", err)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis result %s: %w", path, err)
	}
	return &result, nil
}

// extension maps an image MIME type to a file extension.
func extension(mimeType string) string {
	sub := strings.TrimPrefix(mimeType, "image/")
	if sub == "jpeg" {
		return ".jpg"
	}
	return "." + sub
}
