package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lapse/internal/config"
)

// Store manages session history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const recordColumns = `id, session_id, workspace, started_at, finished_at,
    outcome, frame_count, artifact_path, codec, error_message`

// Begin inserts a row for a session that just started.
func (s *Store) Begin(ctx context.Context, sessionID, workspace string, startedAt time.Time) (*Record, error) {
	timestamp := startedAt.UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (session_id, workspace, started_at, frame_count) VALUES (?, ?, ?, 0)`,
		sessionID,
		workspace,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session insert id: %w", err)
	}
	return &Record{
		ID:        id,
		SessionID: sessionID,
		Workspace: workspace,
		StartedAt: startedAt.UTC(),
	}, nil
}

// FinishParams carries a session's terminal details.
type FinishParams struct {
	Outcome      Outcome
	FrameCount   int
	ArtifactPath string
	Codec        string
	ErrorMessage string
}

// Finish records a session's terminal outcome.
func (s *Store) Finish(ctx context.Context, sessionID string, finishedAt time.Time, params FinishParams) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET finished_at = ?, outcome = ?, frame_count = ?,
            artifact_path = ?, codec = ?, error_message = ?
         WHERE session_id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano),
		string(params.Outcome),
		params.FrameCount,
		nullableString(params.ArtifactPath),
		nullableString(params.Codec),
		nullableString(params.ErrorMessage),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish session: unknown session %s", sessionID)
	}
	return nil
}

// GetByID returns the record for a session UUID, or nil when absent.
func (s *Store) GetByID(ctx context.Context, sessionID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM sessions WHERE session_id = ?`, sessionID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return record, nil
}

// List returns sessions newest first, capped at limit when positive.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM sessions ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return records, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		record       Record
		startedAt    string
		finishedAt   sql.NullString
		outcome      sql.NullString
		artifactPath sql.NullString
		codec        sql.NullString
		errorMessage sql.NullString
	)
	if err := scanner.Scan(
		&record.ID,
		&record.SessionID,
		&record.Workspace,
		&startedAt,
		&finishedAt,
		&outcome,
		&record.FrameCount,
		&artifactPath,
		&codec,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	record.StartedAt = started

	if finishedAt.Valid && strings.TrimSpace(finishedAt.String) != "" {
		finished, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		record.FinishedAt = &finished
	}
	if outcome.Valid {
		record.Outcome = Outcome(outcome.String)
	}
	record.ArtifactPath = artifactPath.String
	record.Codec = codec.String
	record.ErrorMessage = errorMessage.String
	return &record, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
