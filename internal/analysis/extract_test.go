package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRecs = `{
  "geometricAnalysis": {"faceShape": "oval", "hairTexture": "wavy", "hairDensity": "medium"},
  "recommendations": [
    {"id": "rec_1", "name": "Textured Crop", "barberInstructions": {"sides": {"clipperGuard": 1.5}}},
    {"id": "rec_2", "name": "Modern Undercut", "barberInstructions": {"sides": {"clipperGuard": "1"}}}
  ]
}`

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "greedy", in: `x {"a":{"b":2}} y`, want: `{"a":{"b":2}}`},
		{name: "no braces", in: "no json here", wantErr: true},
		{name: "reversed", in: "} then {", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	out, err := Parse("Here you go:\n" + twoRecs + "\nHope it helps")
	require.NoError(t, err)
	assert.Equal(t, "oval", string(out.GeometricAnalysis.FaceShape))
	require.Len(t, out.Recommendations, 2)
	assert.Equal(t, "1.5", string(out.Recommendations[0].BarberInstructions.Sides.ClipperGuard))
	assert.Equal(t, "1", string(out.Recommendations[1].BarberInstructions.Sides.ClipperGuard))
}

func TestParseTruncatesExtraRecommendations(t *testing.T) {
	text := strings.Replace(twoRecs, `"1"}}}`, `"1"}}}, {"id": "rec_3", "name": "Buzz"}`, 1)
	out, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 2)
	assert.Equal(t, "rec_2", out.Recommendations[1].ID)
}

func TestParseTooFew(t *testing.T) {
	_, err := Parse(`{"geometricAnalysis": {}, "recommendations": [{"id": "rec_1"}]}`)
	assert.ErrorIs(t, err, ErrTooFewRecommendations)
}

func TestParseSkipsNullRecommendations(t *testing.T) {
	tests := []struct {
		name    string
		recs    string
		wantIDs []string
		wantErr error
	}{
		{name: "all null", recs: `[null, null]`, wantErr: ErrTooFewRecommendations},
		{name: "one null", recs: `[null, {"id": "rec_1"}]`, wantErr: ErrTooFewRecommendations},
		{name: "null between", recs: `[{"id": "rec_1"}, null, {"id": "rec_2"}]`, wantIDs: []string{"rec_1", "rec_2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Parse(`{"geometricAnalysis": {}, "recommendations": ` + tt.recs + `}`)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, out.Recommendations, len(tt.wantIDs))
			for i, id := range tt.wantIDs {
				assert.Equal(t, id, out.Recommendations[i].ID)
			}
		})
	}
}

func TestParseQuotedNumbers(t *testing.T) {
	out, err := Parse(`{
  "geometricAnalysis": {"faceShape": "oval", "faceShapeConfidencePercent": "87%"},
  "compatibilityMatrix": [{"styleName": "Crop", "matchScorePercent": "94"}],
  "recommendations": [
    {"id": "rec_1", "suitabilityScore": "85", "barberInstructions": {"top": {"lengthCm": "7"}}},
    {"id": "rec_2", "suitabilityScore": 80}
  ],
  "visualizationPrompts": [{"recommendationId": "rec_1", "task": {"strength": "0.7"}}]
}`)
	require.NoError(t, err)
	require.NotNil(t, out.GeometricAnalysis.FaceShapeConfidencePercent)
	assert.Equal(t, 87.0, out.GeometricAnalysis.FaceShapeConfidencePercent.Float64())
	assert.Equal(t, 94.0, out.CompatibilityMatrix[0].MatchScorePercent.Float64())
	assert.Equal(t, 85.0, out.Recommendations[0].SuitabilityScore.Float64())
	assert.Equal(t, 7.0, out.Recommendations[0].BarberInstructions.Top.LengthCm.Float64())
	assert.Equal(t, 80.0, out.Recommendations[1].SuitabilityScore.Float64())
	assert.Equal(t, 0.7, out.VisualizationPrompts[0].Task.Strength.Float64())
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse(`{"recommendations": [}`)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestHeadTail(t *testing.T) {
	assert.Equal(t, "héll", head("héllo", 4))
	assert.Equal(t, "llo", tail("héllo", 3))
	assert.Equal(t, "ab", head("ab", 10))
	assert.Equal(t, "ab", tail("ab", 10))
}
