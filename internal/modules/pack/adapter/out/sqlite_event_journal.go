package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"memestickers/internal/modules/pack/domain"
	packout "memestickers/internal/modules/pack/port/out"

	_ "modernc.org/sqlite"
)

const journalTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteEventJournal records every lifecycle transition. It is a listener
// like any other; a failed insert is reported to the manager and dropped.
type SQLiteEventJournal struct {
	db *sql.DB
}

func NewSQLiteEventJournal(dbPath string) (*SQLiteEventJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	journal := &SQLiteEventJournal{db: db}
	if err := journal.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

var _ packout.EventJournal = (*SQLiteEventJournal)(nil)

func (j *SQLiteEventJournal) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS pack_events (
  id TEXT PRIMARY KEY,
  pack_name TEXT NOT NULL,
  state TEXT NOT NULL,
  error TEXT,
  data TEXT,
  at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS pack_events_pack_at ON pack_events(pack_name, at);
`
	if _, err := j.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create pack_events table: %w", err)
	}
	return nil
}

func (j *SQLiteEventJournal) OnPackEvent(ctx context.Context, event domain.PackEvent) error {
	var data sql.NullString
	if len(event.Data) > 0 {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("encode event data: %w", err)
		}
		data = sql.NullString{String: string(payload), Valid: true}
	}
	const stmt = `
INSERT INTO pack_events (id, pack_name, state, error, data, at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  pack_name=excluded.pack_name,
  state=excluded.state,
  error=excluded.error,
  data=excluded.data,
  at=excluded.at;
`
	_, err := j.db.ExecContext(ctx, stmt,
		event.ID,
		event.PackName,
		string(event.State),
		event.Error,
		data,
		event.At.UTC().Format(journalTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert pack event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. An empty packName
// matches every pack.
func (j *SQLiteEventJournal) Recent(ctx context.Context, packName string, limit int) ([]domain.PackEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, pack_name, state, error, data, at FROM pack_events`
	args := []any{}
	if packName != "" {
		query += ` WHERE pack_name = ?`
		args = append(args, packName)
	}
	query += ` ORDER BY at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pack events: %w", err)
	}
	defer rows.Close()

	out := []domain.PackEvent{}
	for rows.Next() {
		var (
			event   domain.PackEvent
			state   string
			errText sql.NullString
			data    sql.NullString
			at      string
		)
		if err := rows.Scan(&event.ID, &event.PackName, &state, &errText, &data, &at); err != nil {
			return nil, fmt.Errorf("scan pack event: %w", err)
		}
		event.State = domain.PackState(state)
		event.Error = errText.String
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &event.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		if parsed, err := time.Parse(journalTimeLayout, at); err == nil {
			event.At = parsed
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

func (j *SQLiteEventJournal) Close() error {
	return j.db.Close()
}
