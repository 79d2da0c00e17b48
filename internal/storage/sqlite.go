package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "remindbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Create(ctx context.Context, recipient, task string, dueAt time.Time) (Reminder, error) {
	if s == nil || s.db == nil {
		return Reminder{}, ErrDisabled
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(recipient, task, due_at, delivered, created_at)
		 VALUES(?,?,?,0,?)`,
		recipient, task, dueAt.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return Reminder{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Reminder{}, err
	}
	return Reminder{
		ID:        id,
		Recipient: recipient,
		Task:      task,
		DueAt:     dueAt,
		CreatedAt: now,
	}, nil
}

func (s *sqliteStore) FindDuePending(ctx context.Context, now time.Time) ([]Reminder, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient, task, due_at, delivered, created_at
		 FROM reminders
		 WHERE delivered = 0 AND due_at <= ?
		 ORDER BY id`,
		now.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		var due, created int64
		var delivered int
		if err := rows.Scan(&r.ID, &r.Recipient, &r.Task, &due, &delivered, &created); err != nil {
			return nil, err
		}
		r.DueAt = time.UnixMilli(due).UTC()
		r.CreatedAt = time.UnixMilli(created).UTC()
		r.Delivered = delivered != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) MarkDelivered(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	// Compare-and-set: only the first caller transitions the flag.
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET delivered = 1 WHERE id = ? AND delivered = 0`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// No transition: either already delivered (idempotent success) or unknown.
	var delivered int
	err = s.db.QueryRowContext(ctx, `SELECT delivered FROM reminders WHERE id = ?`, id).Scan(&delivered)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
