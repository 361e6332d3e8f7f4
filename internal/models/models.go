package models

import "time"

// PhotoAngle is one of the four fixed capture perspectives.
type PhotoAngle string

const (
	AngleFront PhotoAngle = "front"
	AngleTop   PhotoAngle = "top"
	AngleLeft  PhotoAngle = "left"
	AngleRight PhotoAngle = "right"
)

// Angles lists the capture perspectives in the order they are sent upstream.
var Angles = []PhotoAngle{AngleFront, AngleTop, AngleLeft, AngleRight}

// Valid reports whether a is one of the four capture angles.
func (a PhotoAngle) Valid() bool {
	for _, known := range Angles {
		if a == known {
			return true
		}
	}
	return false
}

// PhotoSet holds one data URI per angle.
type PhotoSet struct {
	Front string `json:"front"`
	Top   string `json:"top"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Get returns the data URI stored for the given angle.
func (p PhotoSet) Get(angle PhotoAngle) string {
	switch angle {
	case AngleFront:
		return p.Front
	case AngleTop:
		return p.Top
	case AngleLeft:
		return p.Left
	case AngleRight:
		return p.Right
	}
	return ""
}

// Missing returns the first angle without a photo, or "" when all four are present.
func (p PhotoSet) Missing() PhotoAngle {
	for _, angle := range Angles {
		if p.Get(angle) == "" {
			return angle
		}
	}
	return ""
}

type FaceShape string
type HairTexture string
type HairDensity string

// FaceProportions is only produced by the newer analysis schema.
type FaceProportions struct {
	ForeheadToFaceRatioPercent Number `json:"foreheadToFaceRatioPercent"`
	JawToForeheadRatioPercent  Number `json:"jawToForeheadRatioPercent"`
	FaceLengthToWidthRatio     Number `json:"faceLengthToWidthRatio"`
	SymmetryScorePercent       Number `json:"symmetryScorePercent"`
	ChinProminence             string `json:"chinProminence"`      // recessed, balanced, prominent
	CheekboneDefinition        string `json:"cheekboneDefinition"` // subtle, moderate, pronounced
}

// HairAnalysis supersedes the top-level hairTexture/hairDensity fields.
type HairAnalysis struct {
	Texture                  HairTexture `json:"texture,omitempty"`
	TextureConfidencePercent Number      `json:"textureConfidencePercent,omitempty"`
	Density                  HairDensity `json:"density,omitempty"`
	DensityConfidencePercent Number      `json:"densityConfidencePercent,omitempty"`
	GrowthPattern            string      `json:"growthPattern,omitempty"`
	HairlineType             string      `json:"hairlineType,omitempty"`
	NaturalPartSide          string      `json:"naturalPartSide,omitempty"`
}

// GeometricAnalysis is the canonical (richer) schema. Fields added by the newer
// schema are optional and fall back to the legacy top-level fields.
type GeometricAnalysis struct {
	FaceShape                  FaceShape        `json:"faceShape"`
	FaceShapeConfidencePercent *Number          `json:"faceShapeConfidencePercent,omitempty"`
	FaceProportions            *FaceProportions `json:"faceProportions,omitempty"`
	HairAnalysis               *HairAnalysis    `json:"hairAnalysis,omitempty"`
	HairTexture                HairTexture      `json:"hairTexture"`
	HairDensity                HairDensity      `json:"hairDensity"`
	JawlineWidth               string           `json:"jawlineWidth"`
	ForeheadWidth              string           `json:"foreheadWidth"`
	CheekboneHeight            string           `json:"cheekboneHeight"`
	ProblemAreas               []string         `json:"problemAreas"`
}

// Texture returns hairAnalysis.texture, falling back to hairTexture.
func (g GeometricAnalysis) Texture() HairTexture {
	if g.HairAnalysis != nil && g.HairAnalysis.Texture != "" {
		return g.HairAnalysis.Texture
	}
	return g.HairTexture
}

// Density returns hairAnalysis.density, falling back to hairDensity.
func (g GeometricAnalysis) Density() HairDensity {
	if g.HairAnalysis != nil && g.HairAnalysis.Density != "" {
		return g.HairAnalysis.Density
	}
	return g.HairDensity
}

// StyleCompatibility is one row of the compatibility matrix.
type StyleCompatibility struct {
	StyleName         string   `json:"styleName"`
	MatchScorePercent Number   `json:"matchScorePercent"`
	KeyReasons        []string `json:"keyReasons"`
	Concerns          []string `json:"concerns"`
}

// HairstyleRecommendation is one of the two detailed recommendations.
type HairstyleRecommendation struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Description        string             `json:"description,omitempty"`
	GeometricReasoning string             `json:"geometricReasoning"`
	WhyItWorks         []string           `json:"whyItWorks,omitempty"`
	BarberInstructions BarberInstructions `json:"barberInstructions"`
	SuitabilityScore   Number             `json:"suitabilityScore"`
}

// AnalysisResult is immutable after creation except for Visualizations.
type AnalysisResult struct {
	ID                  string                    `json:"id"`
	SessionID           string                    `json:"sessionId"`
	GeometricAnalysis   GeometricAnalysis         `json:"geometricAnalysis"`
	CompatibilityMatrix []StyleCompatibility      `json:"compatibilityMatrix,omitempty"`
	Recommendations     []HairstyleRecommendation `json:"recommendations"`

	// VisualizationPrompts are the model's own image prompts, when it sent any.
	VisualizationPrompts []VisualizationPrompt `json:"visualizationPrompts,omitempty"`
	Visualizations       map[string]string     `json:"visualizations,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
}

// Recommendation returns the recommendation with the given id, or nil.
func (r *AnalysisResult) Recommendation(id string) *HairstyleRecommendation {
	if r == nil {
		return nil
	}
	for i := range r.Recommendations {
		if r.Recommendations[i].ID == id {
			return &r.Recommendations[i]
		}
	}
	return nil
}

// PromptFor returns the model's prompt for a recommendation, falling back to
// DefaultVisualizationPrompt. ok is false for an unknown id.
func (r *AnalysisResult) PromptFor(id string) (p VisualizationPrompt, ok bool) {
	if r == nil {
		return p, false
	}
	for _, vp := range r.VisualizationPrompts {
		if vp.RecommendationID == id {
			return vp, true
		}
	}
	rec := r.Recommendation(id)
	if rec == nil {
		return p, false
	}
	p = DefaultVisualizationPrompt(*rec)
	p.RecommendationID = id
	return p, true
}

// Primary returns the first recommendation, or nil if there is none.
func (r *AnalysisResult) Primary() *HairstyleRecommendation {
	if r == nil || len(r.Recommendations) == 0 {
		return nil
	}
	return &r.Recommendations[0]
}
