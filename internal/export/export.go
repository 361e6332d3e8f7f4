// Package export writes stored sessions to Parquet or JSONL for offline
// analysis and reads them back.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/hairvision-ai/hairvision/internal/models"
)

// Row is one exported session, flattened.
type Row struct {
	SessionCode     string  `parquet:"session_code" json:"session_code"`
	ID              string  `parquet:"id" json:"id"`
	CurrentSection  string  `parquet:"current_section" json:"current_section"`
	Version         int64   `parquet:"version" json:"version"`
	ResultID        string  `parquet:"result_id" json:"result_id"`
	FaceShape       string  `parquet:"face_shape" json:"face_shape"`
	HairTexture     string  `parquet:"hair_texture" json:"hair_texture"`
	HairDensity     string  `parquet:"hair_density" json:"hair_density"`
	Recommendation1 string  `parquet:"recommendation_1" json:"recommendation_1"`
	Score1          float64 `parquet:"score_1" json:"score_1"`
	Recommendation2 string  `parquet:"recommendation_2" json:"recommendation_2"`
	Score2          float64 `parquet:"score_2" json:"score_2"`
	Visualizations  int32   `parquet:"visualizations" json:"visualizations"`
	CreatedAtMs     int64   `parquet:"created_at_ms" json:"created_at_ms"`
	ExpiresAtMs     int64   `parquet:"expires_at_ms" json:"expires_at_ms"`
	AnalysisJSON    string  `parquet:"analysis_json" json:"analysis_json"`
}

// NewRow flattens a session. The full result is kept as JSON.
func NewRow(s models.Session) (Row, error) {
	row := Row{
		SessionCode:    s.SessionCode,
		ID:             s.ID,
		CurrentSection: s.CurrentSection,
		Version:        s.Version,
		CreatedAtMs:    s.CreatedAt.UnixMilli(),
		ExpiresAtMs:    s.ExpiresAt.UnixMilli(),
	}
	r := s.AnalysisResult
	if r == nil {
		return row, nil
	}

	row.ResultID = r.ID
	row.FaceShape = string(r.GeometricAnalysis.FaceShape)
	row.HairTexture = string(r.GeometricAnalysis.Texture())
	row.HairDensity = string(r.GeometricAnalysis.Density())
	row.Visualizations = int32(len(r.Visualizations))
	if len(r.Recommendations) > 0 {
		row.Recommendation1 = r.Recommendations[0].Name
		row.Score1 = r.Recommendations[0].SuitabilityScore.Float64()
	}
	if len(r.Recommendations) > 1 {
		row.Recommendation2 = r.Recommendations[1].Name
		row.Score2 = r.Recommendations[1].SuitabilityScore.Float64()
	}

	b, err := json.Marshal(r)
	if err != nil {
		return row, fmt.Errorf("failed to marshal analysis for %s: %w", s.SessionCode, err)
	}
	row.AnalysisJSON = string(b)
	return row, nil
}

func format(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".parquet", ".jsonl":
		return ext, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// WriteFile writes sessions to path, picking the format from its extension.
func WriteFile(path string, sessions []models.Session) (int, error) {
	ext, err := format(path)
	if err != nil {
		return 0, err
	}

	rows := make([]Row, 0, len(sessions))
	for _, s := range sessions {
		row, err := NewRow(s)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if ext == ".parquet" {
		err = WriteParquet(file, rows)
	} else {
		err = WriteJSONL(file, rows)
	}
	if err != nil {
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("failed to close export file: %w", err)
	}
	slog.Info("Exported sessions", "path", path, "rows", len(rows))
	return len(rows), nil
}

func WriteParquet(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func WriteJSONL(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write jsonl row: %w", err)
		}
	}
	return bw.Flush()
}

// ReadFile loads rows previously written by WriteFile.
func ReadFile(path string) ([]Row, error) {
	ext, err := format(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	if ext == ".jsonl" {
		return readJSONL(file)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return rows, nil
}

func readJSONL(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	// results carry inline images
	const maxCapacity = 16 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	var rows []Row
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var row Row
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading export: %w", err)
	}
	return rows, nil
}
