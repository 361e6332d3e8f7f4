package models

import (
	"encoding/json"
	"fmt"
)

// ClipperGuard is a guard number, always carried as a string.
type ClipperGuard string

var clipperGuards = map[ClipperGuard]bool{
	"0": true, "0.5": true, "1": true, "1.5": true, "2": true, "2.5": true,
	"3": true, "3.5": true, "4": true, "5": true, "6": true, "7": true, "8": true,
}

// Valid reports whether g is one of the discrete guard sizes.
func (g ClipperGuard) Valid() bool { return clipperGuards[g] }

// UnmarshalJSON accepts both "1.5" and 1.5; models are told to send strings
// but do not always comply.
func (g *ClipperGuard) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*g = ClipperGuard(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("clipper guard must be a string or number: %w", err)
	}
	*g = ClipperGuard(n.String())
	return nil
}

// FadeType is nil in BarberSides when no fade is used.
type FadeType string

const (
	FadeSkin   FadeType = "skin_fade"
	FadeLow    FadeType = "low_fade"
	FadeMid    FadeType = "mid_fade"
	FadeHigh   FadeType = "high_fade"
	FadeDrop   FadeType = "drop_fade"
	FadeTaper  FadeType = "taper_fade"
	FadeBurst  FadeType = "burst_fade"
	FadeTemple FadeType = "temple_fade"
)

// Valid reports whether f is a known fade.
func (f FadeType) Valid() bool {
	switch f {
	case FadeSkin, FadeLow, FadeMid, FadeHigh, FadeDrop, FadeTaper, FadeBurst, FadeTemple:
		return true
	}
	return false
}

type TexturizingTechnique string

const (
	TechniquePointCutting      TexturizingTechnique = "point_cutting"
	TechniqueSlideCutting      TexturizingTechnique = "slide_cutting"
	TechniqueRazorCutting      TexturizingTechnique = "razor_cutting"
	TechniqueThinningShears    TexturizingTechnique = "thinning_shears"
	TechniqueTexturizingShears TexturizingTechnique = "texturizing_shears"
	TechniqueTwistCutting      TexturizingTechnique = "twist_cutting"
)

// Valid reports whether t is a known texturizing technique.
func (t TexturizingTechnique) Valid() bool {
	switch t {
	case TechniquePointCutting, TechniqueSlideCutting, TechniqueRazorCutting,
		TechniqueThinningShears, TechniqueTexturizingShears, TechniqueTwistCutting:
		return true
	}
	return false
}

type BarberSides struct {
	ClipperGuard  ClipperGuard `json:"clipperGuard"`
	FadeType      *FadeType    `json:"fadeType"`
	BlendingNotes string       `json:"blendingNotes"`
}

type BarberTop struct {
	LengthCm      Number `json:"lengthCm"`
	LengthInches  Number `json:"lengthInches"`
	Technique     string `json:"technique"`
	LayeringNotes string `json:"layeringNotes"`
}

type BarberBack struct {
	NecklineShape string       `json:"necklineShape"` // squared, rounded, tapered, natural
	ClipperGuard  ClipperGuard `json:"clipperGuard"`
	BlendingNotes string       `json:"blendingNotes"`
}

type BarberTexture struct {
	Techniques []TexturizingTechnique `json:"techniques"`
	Notes      string                 `json:"notes"`
}

type BarberStyling struct {
	Products         []string `json:"products"`
	ApplicationSteps []string `json:"applicationSteps"`
	MaintenanceTips  []string `json:"maintenanceTips"`
}

// BarberInstructions is the cutting blueprint attached to a recommendation.
type BarberInstructions struct {
	StyleName string        `json:"styleName"`
	Sides     BarberSides   `json:"sides"`
	Top       BarberTop     `json:"top"`
	Back      BarberBack    `json:"back"`
	Texture   BarberTexture `json:"texture"`
	Styling   BarberStyling `json:"styling"`
}

// FadeLabel returns the fade type or fallback when the sides carry no fade.
func (b BarberInstructions) FadeLabel(fallback string) string {
	if b.Sides.FadeType == nil || *b.Sides.FadeType == "" {
		return fallback
	}
	return string(*b.Sides.FadeType)
}
