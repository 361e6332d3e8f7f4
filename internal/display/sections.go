package display

import (
	"errors"
	"fmt"
)

// Section is the shared cursor between a control device and a display.
type Section string

const (
	SectionLoading             Section = "loading"
	SectionScanComplete        Section = "scan_complete"
	SectionProfileAnalysis     Section = "profile_analysis"
	SectionCompatibilityMatrix Section = "compatibility_matrix"
	SectionRecommendation1     Section = "recommendation_1"
	SectionRecommendation2     Section = "recommendation_2"
	SectionProducts            Section = "products"
	SectionOverview            Section = "overview"
	SectionStyleComparison     Section = "style_comparison"
)

// Sequence is the canonical order; index is position.
var Sequence = []Section{
	SectionLoading,
	SectionScanComplete,
	SectionProfileAnalysis,
	SectionCompatibilityMatrix,
	SectionRecommendation1,
	SectionRecommendation2,
	SectionProducts,
	SectionOverview,
	SectionStyleComparison,
}

// LegacySequence is the older seven member set, a prefix of Sequence.
var LegacySequence = Sequence[:7]

// FirstContent is where the display lands once the scan-complete animation ends.
const FirstContent = SectionProfileAnalysis

var ErrInvalidSection = errors.New("invalid section")

// Index returns the position of s in Sequence, or -1.
func (s Section) Index() int {
	for i, known := range Sequence {
		if s == known {
			return i
		}
	}
	return -1
}

func (s Section) Valid() bool { return s.Index() >= 0 }

func (s Section) String() string { return string(s) }

// Parse validates a raw section name.
func Parse(raw string) (Section, error) {
	s := Section(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSection, raw)
	}
	return s, nil
}

// ValidSections lists every accepted section name in order.
func ValidSections() []string {
	out := make([]string, len(Sequence))
	for i, s := range Sequence {
		out[i] = string(s)
	}
	return out
}

// Title is the heading shown for a section.
func (s Section) Title() string {
	switch s {
	case SectionLoading:
		return "Preparing your results"
	case SectionScanComplete:
		return "Scan complete"
	case SectionProfileAnalysis:
		return "Your profile"
	case SectionCompatibilityMatrix:
		return "Style compatibility"
	case SectionRecommendation1:
		return "Top recommendation"
	case SectionRecommendation2:
		return "Alternative"
	case SectionProducts:
		return "Products & styling"
	case SectionOverview:
		return "Overview"
	case SectionStyleComparison:
		return "Side by side"
	}
	return string(s)
}

// step moves idx by delta, clamped to Sequence bounds.
func step(idx, delta int) int {
	idx += delta
	if idx < 0 {
		return 0
	}
	if idx >= len(Sequence) {
		return len(Sequence) - 1
	}
	return idx
}
