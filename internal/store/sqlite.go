package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
	"modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	session_code    TEXT NOT NULL UNIQUE,
	analysis_result TEXT,
	current_section TEXT NOT NULL DEFAULT 'loading',
	version         INTEGER NOT NULL DEFAULT 1,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL,
	expires_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

const selectColumns = `id, session_code, analysis_result, current_section, version, created_at, updated_at, expires_at`

// SQLite is a Store backed by a database file. Other processes writing the
// same file are picked up by its Watcher.
type SQLite struct {
	db  *sql.DB
	hub *Hub
	ttl time.Duration
	now func() time.Time
}

// OpenDB opens path with WAL, a busy timeout and NORMAL sync, then applies
// the schema. The caller must close the handle.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		// applied per connection, so every pooled handle gets them
		dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: exec schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return db, nil
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string, hub *Hub) (*SQLite, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if hub == nil {
		hub = NewHub()
	}
	return &SQLite{db: db, hub: hub, ttl: DefaultTTL, now: time.Now}, nil
}

// DB exposes the handle for the watcher.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Hub() *Hub { return s.hub }

func (s *SQLite) Insert(ctx context.Context, code string, result *models.AnalysisResult, section string) (*models.Session, error) {
	code = sessioncode.Normalize(code)
	if section == "" {
		section = DefaultSection
	}
	payload, err := encodeResult(result)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := &models.Session{
		ID:             uuid.NewString(),
		SessionCode:    code,
		AnalysisResult: result,
		CurrentSection: section,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.SessionCode, payload, session.CurrentSection, session.Version,
		session.CreatedAt.UnixMilli(), session.UpdatedAt.UnixMilli(), session.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	s.hub.Publish(Change{Session: *session, ResultIncluded: true})
	return session, nil
}

func (s *SQLite) Get(ctx context.Context, code string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM sessions WHERE session_code = ? AND expires_at > ?`,
		sessioncode.Normalize(code), s.now().UnixMilli())
	return scanSession(row)
}

func (s *SQLite) PatchSection(ctx context.Context, code, section string, expectVersion int64) (*models.Session, error) {
	code = sessioncode.Normalize(code)
	now := s.now()

	query := `UPDATE sessions SET current_section = ?, version = version + 1, updated_at = ?
		WHERE session_code = ? AND expires_at > ?`
	args := []any{section, now.UnixMilli(), code, now.UnixMilli()}
	if expectVersion > 0 {
		query += ` AND version = ?`
		args = append(args, expectVersion)
	}
	query += ` RETURNING ` + selectColumns

	session, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, ErrNotFound) && expectVersion > 0 {
		if _, getErr := s.Get(ctx, code); getErr == nil {
			return nil, ErrVersionConflict
		}
	}
	if err != nil {
		return nil, err
	}

	// the section write does not carry the result to subscribers
	change := *session
	change.AnalysisResult = nil
	s.hub.Publish(Change{Session: change})
	return session, nil
}

// attachAttempts bounds the read-modify-write loop in AttachVisualization.
const attachAttempts = 8

// AttachVisualization merges the image into the stored result. The write only
// lands if the row still has the version that was read; otherwise it reloads
// and tries again, so concurrent section moves are never overwritten.
func (s *SQLite) AttachVisualization(ctx context.Context, code, recommendationID, imageURL string) (*models.Session, error) {
	code = sessioncode.Normalize(code)
	for attempt := 0; attempt < attachAttempts; attempt++ {
		current, err := s.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		if current.AnalysisResult == nil {
			return nil, ErrNoResult
		}

		payload, err := encodeResult(withVisualization(current.AnalysisResult, recommendationID, imageURL))
		if err != nil {
			return nil, err
		}
		session, err := scanSession(s.db.QueryRowContext(ctx,
			`UPDATE sessions SET analysis_result = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?
			RETURNING `+selectColumns,
			payload, s.now().UnixMilli(), current.ID, current.Version))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}

		s.hub.Publish(Change{Session: *session, ResultIncluded: true})
		return session, nil
	}
	return nil, fmt.Errorf("%w: session %s kept changing", ErrVersionConflict, code)
}

func (s *SQLite) Subscribe(ctx context.Context, code string) (<-chan Change, error) {
	return s.hub.Subscribe(ctx, code), nil
}

func (s *SQLite) List(ctx context.Context) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *session)
	}
	return out, rows.Err()
}

// DeleteExpired removes rows past their expiry and returns how many went.
func (s *SQLite) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		session                        models.Session
		payload                        sql.NullString
		createdAt, updatedAt, expireAt int64
	)
	err := row.Scan(&session.ID, &session.SessionCode, &payload, &session.CurrentSection,
		&session.Version, &createdAt, &updatedAt, &expireAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	session.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	session.ExpiresAt = time.UnixMilli(expireAt).UTC()

	if payload.Valid && payload.String != "" {
		var result models.AnalysisResult
		if err := json.Unmarshal([]byte(payload.String), &result); err != nil {
			return nil, fmt.Errorf("failed to decode analysis_result for %s: %w", session.SessionCode, err)
		}
		session.AnalysisResult = &result
	}
	return &session, nil
}

func encodeResult(result *models.AnalysisResult) (sql.NullString, error) {
	if result == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode analysis_result: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
