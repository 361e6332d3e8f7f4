package models

import (
	"strconv"
	"time"
)

type VisualizationTask struct {
	Type                     string   `json:"type"` // inpainting, image_to_image
	Strength                 Number   `json:"strength"`
	FocusArea                string   `json:"focusArea"`
	PreserveOriginalFeatures []string `json:"preserveOriginalFeatures"`
}

type Lighting struct {
	Source    string `json:"source"`
	Direction string `json:"direction"`
}

type GlobalContext struct {
	SceneDescription string   `json:"sceneDescription"`
	Lighting         Lighting `json:"lighting"`
}

type TargetModification struct {
	HairStyle   string   `json:"hairStyle"`
	KeyElements []string `json:"keyElements"`
}

// VisualizationPrompt describes the style transformation requested from the
// image model.
type VisualizationPrompt struct {
	RecommendationID          string             `json:"recommendationId,omitempty"`
	Task                      VisualizationTask  `json:"task"`
	GlobalContext             GlobalContext      `json:"globalContext"`
	TargetModification        TargetModification `json:"targetModification"`
	MicroDetails              []string           `json:"microDetails"`
	NegativePromptConstraints []string           `json:"negativePromptConstraints"`
}

// VisualizationResult pairs a recommendation with its preview image, which is
// the original photo when the model produced no image.
type VisualizationResult struct {
	RecommendationID   string              `json:"recommendationId"`
	OriginalPhotoAngle PhotoAngle          `json:"originalPhotoAngle"`
	GeneratedImageURL  string              `json:"generatedImageUrl"`
	Prompt             VisualizationPrompt `json:"prompt"`
	CreatedAt          time.Time           `json:"createdAt"`
}

// DefaultVisualizationPrompt builds the prompt the result flow sends for a
// recommendation.
func DefaultVisualizationPrompt(rec HairstyleRecommendation) VisualizationPrompt {
	bi := rec.BarberInstructions
	return VisualizationPrompt{
		Task: VisualizationTask{
			Type:                     "image_to_image",
			Strength:                 0.7,
			FocusArea:                "Hair and head region",
			PreserveOriginalFeatures: []string{"Face identity", "Skin tone", "Background"},
		},
		GlobalContext: GlobalContext{
			SceneDescription: "Professional portrait",
			Lighting:         Lighting{Source: "Natural", Direction: "Front"},
		},
		TargetModification: TargetModification{
			HairStyle: rec.Name,
			KeyElements: []string{
				bi.FadeLabel("clean sides"),
				formatCm(bi.Top.LengthCm.Float64()) + "cm on top",
				bi.Back.NecklineShape + " neckline",
			},
		},
		MicroDetails: bi.Styling.Products,
		NegativePromptConstraints: []string{
			"No distortion of facial features",
			"No unnatural hair colors",
		},
	}
}

func formatCm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
