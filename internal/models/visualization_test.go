package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptFor(t *testing.T) {
	r := &AnalysisResult{
		Recommendations: []HairstyleRecommendation{
			{ID: "rec_1", Name: "Textured Crop", BarberInstructions: BarberInstructions{
				Top:  BarberTop{LengthCm: 7.5},
				Back: BarberBack{NecklineShape: "tapered"},
			}},
			{ID: "rec_2", Name: "Side Part"},
		},
		VisualizationPrompts: []VisualizationPrompt{
			{RecommendationID: "rec_2", Task: VisualizationTask{Type: "inpainting", Strength: 0.6}},
		},
	}

	own, ok := r.PromptFor("rec_2")
	require.True(t, ok)
	assert.Equal(t, "inpainting", own.Task.Type)

	built, ok := r.PromptFor("rec_1")
	require.True(t, ok)
	assert.Equal(t, "rec_1", built.RecommendationID)
	assert.Equal(t, "Textured Crop", built.TargetModification.HairStyle)
	assert.Equal(t, 0.7, built.Task.Strength.Float64())
	assert.Contains(t, built.TargetModification.KeyElements, "7.5cm on top")
	assert.Contains(t, built.TargetModification.KeyElements, "tapered neckline")

	_, ok = r.PromptFor("rec_9")
	assert.False(t, ok)

	var none *AnalysisResult
	_, ok = none.PromptFor("rec_1")
	assert.False(t, ok)
}
