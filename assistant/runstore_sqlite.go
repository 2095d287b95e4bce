package assistant

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chatbot-gateway/bot/dispatch/domain"
)

//go:embed schema.sql
var schema string

// SQLiteRunStore persiste runs e mensagens num arquivo SQLite.
type SQLiteRunStore struct {
	db *sql.DB
}

func OpenSQLiteRunStore(path string) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open runs db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init runs schema: %w", err)
	}

	slog.Info("runs database opened", "path", path)
	return &SQLiteRunStore{db: db}, nil
}

func (s *SQLiteRunStore) Close() error { return s.db.Close() }

func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (Run, error) {
	var (
		run   Run
		paper sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, profile, paper_json, created_at, updated_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.UserID, &run.Profile, &paper, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}

	if paper.Valid && paper.String != "" {
		var ref domain.PaperRef
		if err := json.Unmarshal([]byte(paper.String), &ref); err != nil {
			return Run{}, fmt.Errorf("get run %s: decode paper: %w", id, err)
		}
		run.Paper = &ref
	}
	return run, nil
}

func (s *SQLiteRunStore) SaveRun(ctx context.Context, run Run) error {
	var paper sql.NullString
	if run.Paper != nil {
		b, err := json.Marshal(run.Paper)
		if err != nil {
			return fmt.Errorf("save run %s: encode paper: %w", run.ID, err)
		}
		paper = sql.NullString{String: string(b), Valid: true}
	}

	now := time.Now().UTC()
	created := run.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, user_id, profile, paper_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			profile = excluded.profile,
			paper_json = excluded.paper_json,
			updated_at = excluded.updated_at
	`, run.ID, run.UserID, run.Profile, paper, created, now)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteRunStore) AppendMessages(ctx context.Context, runID string, msgs ...StoredMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append messages: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		at := m.CreatedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_messages (run_id, role, content, created_at) VALUES (?, ?, ?, ?)
		`, runID, string(m.Role), m.Content, at); err != nil {
			return fmt.Errorf("append messages: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteRunStore) RecentMessages(ctx context.Context, runID string, n int) ([]StoredMessage, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM run_messages
		WHERE run_id = ?
		ORDER BY id DESC LIMIT ?
	`, runID, n)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var (
			m    StoredMessage
			role string
		)
		if err := rows.Scan(&role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("recent messages: %w", err)
		}
		m.Role = Role(role)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}

	// ordem cronológica
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
