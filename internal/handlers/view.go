package handlers

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"strconv"

	"github.com/hairvision-ai/hairvision/internal/datauri"
	"github.com/hairvision-ai/hairvision/internal/display"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
)

//go:embed templates/view.html
var viewHTML string

var viewTemplate = template.Must(template.New("view").Parse(viewHTML))

type viewSection struct {
	Name   string
	Title  string
	Active bool
}

type viewMatch struct {
	Style   string
	Score   string
	Reasons []string
}

type viewRecommendation struct {
	Rank      int
	ID        string
	Name      string
	Reasoning string
	Why       []string
	Score     string
	Sides     string
	Top       string
	Back      string
	Products  []string
	Steps     []string
	Tips      []string
	Image     template.URL
}

type viewResult struct {
	FaceShape       string
	Confidence      string
	Texture         string
	Density         string
	Problems        []string
	Matrix          []viewMatch
	Recommendations []viewRecommendation
}

type viewPage struct {
	Code      string
	Demo      bool
	Message   string
	Section   string
	Sections  []viewSection
	Result    *viewResult
	EventsURL string
}

// HandleView renders the customer display for a code. The demo code never
// touches the store.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	code := codeParam(r)
	page := viewPage{Code: code, EventsURL: "/session/" + code + "/events"}

	var session *models.Session
	switch {
	case sessioncode.IsDemo(code):
		page.Demo = true
		session = display.DemoSession()
	case h.store == nil:
		page.Message = "The remote display is not configured on this server."
		h.renderView(w, r, http.StatusServiceUnavailable, page)
		return
	default:
		s, err := h.store.Get(r.Context(), code)
		if err != nil {
			loggerFrom(r.Context()).Warn("Display could not load session", "session_code", code, "err", err)
			page.Message = "Could not connect to session " + code + "."
			h.renderView(w, r, http.StatusNotFound, page)
			return
		}
		session = s
	}

	current := display.Section(session.CurrentSection)
	if !current.Valid() {
		current = display.SectionLoading
	}
	page.Section = string(current)
	for _, s := range display.Sequence {
		page.Sections = append(page.Sections, viewSection{Name: string(s), Title: s.Title(), Active: s == current})
	}
	page.Result = h.viewResult(session.AnalysisResult)

	h.renderView(w, r, http.StatusOK, page)
}

func (h *Handler) renderView(w http.ResponseWriter, r *http.Request, status int, page viewPage) {
	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, page); err != nil {
		h.writeError(w, r, "Unable to render display: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		loggerFrom(r.Context()).Error("Unable to write display page", "err", err)
	}
}

// viewResult flattens a result for the template. Every model supplied string
// is stripped of markup; the template does the escaping.
func (h *Handler) viewResult(result *models.AnalysisResult) *viewResult {
	if result == nil {
		return nil
	}
	clean := func(s string) string {
		return html.UnescapeString(h.policy.Sanitize(s))
	}
	cleanAll := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = clean(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	geo := result.GeometricAnalysis
	v := &viewResult{
		FaceShape: clean(string(geo.FaceShape)),
		Texture:   clean(string(geo.Texture())),
		Density:   clean(string(geo.Density())),
		Problems:  cleanAll(geo.ProblemAreas),
	}
	if geo.FaceShapeConfidencePercent != nil {
		v.Confidence = percent(geo.FaceShapeConfidencePercent.Float64())
	}
	for _, m := range result.CompatibilityMatrix {
		v.Matrix = append(v.Matrix, viewMatch{
			Style:   clean(m.StyleName),
			Score:   percent(m.MatchScorePercent.Float64()),
			Reasons: cleanAll(m.KeyReasons),
		})
	}
	for i, rec := range result.Recommendations {
		bi := rec.BarberInstructions
		vr := viewRecommendation{
			Rank:      i + 1,
			ID:        rec.ID,
			Name:      clean(rec.Name),
			Reasoning: clean(rec.GeometricReasoning),
			Why:       cleanAll(rec.WhyItWorks),
			Score:     strconv.FormatFloat(rec.SuitabilityScore.Float64(), 'f', -1, 64),
			Sides:     clean(fmt.Sprintf("#%s guard, %s", bi.Sides.ClipperGuard, bi.FadeLabel("no fade"))),
			Top:       clean(fmt.Sprintf("%scm, %s", strconv.FormatFloat(bi.Top.LengthCm.Float64(), 'f', -1, 64), bi.Top.Technique)),
			Back:      clean(fmt.Sprintf("%s neckline, #%s guard", bi.Back.NecklineShape, bi.Back.ClipperGuard)),
			Products:  cleanAll(bi.Styling.Products),
			Steps:     cleanAll(bi.Styling.ApplicationSteps),
			Tips:      cleanAll(bi.Styling.MaintenanceTips),
		}
		if img, ok := result.Visualizations[rec.ID]; ok {
			if _, err := datauri.Parse(img); err == nil {
				vr.Image = template.URL(img)
			}
		}
		v.Recommendations = append(v.Recommendations, vr)
	}
	return v
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64) + "%"
}
