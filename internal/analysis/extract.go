package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hairvision-ai/hairvision/internal/models"
)

var (
	ErrNoJSON                = errors.New("failed to parse AI response as JSON")
	ErrTooFewRecommendations = errors.New("AI did not return 2 recommendations")
)

// Recommendations is how many recommendations a result carries.
const Recommendations = 2

// ExtractJSON returns the span from the first '{' to the last '}'. Braces
// inside string values or trailing commentary can break it; it is kept as a
// fallback for models without a JSON response mode.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// Output is the shape the model is asked to produce. Unknown fields are
// ignored and nothing beyond the recommendation count is validated.
type Output struct {
	GeometricAnalysis    models.GeometricAnalysis         `json:"geometricAnalysis"`
	CompatibilityMatrix  []models.StyleCompatibility      `json:"compatibilityMatrix"`
	Recommendations      []models.HairstyleRecommendation `json:"recommendations"`
	VisualizationPrompts []models.VisualizationPrompt     `json:"visualizationPrompts"`
}

// Parse extracts and decodes the model output, keeping the first two
// non-null recommendations.
func Parse(text string) (*Output, error) {
	span, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Output
		Recommendations []*models.HairstyleRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	out := raw.Output
	out.Recommendations = make([]models.HairstyleRecommendation, 0, Recommendations)
	for _, rec := range raw.Recommendations {
		// null entries do not count
		if rec == nil {
			continue
		}
		out.Recommendations = append(out.Recommendations, *rec)
		if len(out.Recommendations) == Recommendations {
			break
		}
	}
	if len(out.Recommendations) < Recommendations {
		return nil, ErrTooFewRecommendations
	}
	return &out, nil
}

// head returns the first n runes of s.
func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
