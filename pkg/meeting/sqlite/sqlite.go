// Package sqlite provides the default [meeting.Store], a single-file SQLite
// database accessed through the pure-Go modernc.org/sqlite driver.
//
// The database file and its parent directory are created on first use and
// the schema is applied idempotently every time a Store is opened. The store
// holds one connection so that all writes are serialised.
//
// Usage:
//
//	store, err := sqlite.Open(ctx, "meetings.db")
//	if err != nil { … }
//	defer store.Close()
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

var _ meeting.Store = (*Store)(nil)

const ddlMeetings = `
CREATE TABLE IF NOT EXISTS meetings (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    title        TEXT    NOT NULL DEFAULT 'Untitled Meeting',
    date         TEXT    NOT NULL,
    transcript   TEXT    DEFAULT '',
    summary      TEXT    DEFAULT '',
    key_points   TEXT    DEFAULT '[]',
    action_items TEXT    DEFAULT '[]',
    audio_path   TEXT    DEFAULT ''
);`

const selectColumns = `SELECT id, title, date, transcript, summary, key_points, action_items, audio_path FROM meetings`

// Store is a [meeting.Store] backed by a local SQLite file.
// All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// the meetings table exists. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite store: path must not be empty")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite store: create dir %q: %w: %w", dir, meeting.ErrStorage, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %q: %w: %w", path, meeting.ErrStorage, err)
	}
	// Single writer; this also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: ping: %w: %w", meeting.ErrStorage, err)
	}
	if _, err := db.ExecContext(ctx, ddlMeetings); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: create schema: %w: %w", meeting.ErrStorage, err)
	}
	return &Store{db: db}, nil
}


// Save implements [meeting.Store].
func (s *Store) Save(ctx context.Context, rec *meeting.Record) (int64, error) {
	if rec == nil {
		return 0, errors.New("sqlite store: save: nil record")
	}
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	keyPoints, err := meeting.EncodeList(rec.KeyPoints)
	if err != nil {
		return 0, err
	}
	actionItems, err := meeting.EncodeList(rec.ActionItems)
	if err != nil {
		return 0, err
	}

	if rec.Saved() {
		res, err := s.db.ExecContext(ctx, `
			UPDATE meetings
			SET    title = ?, date = ?, transcript = ?, summary = ?,
			       key_points = ?, action_items = ?, audio_path = ?
			WHERE  id = ?`,
			rec.Title, rec.Date, rec.Transcript, rec.Summary,
			keyPoints, actionItems, rec.AudioPath, rec.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("sqlite store: update %d: %w: %w", rec.ID, meeting.ErrStorage, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite store: update %d: %w: %w", rec.ID, meeting.ErrStorage, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("sqlite store: update %d: %w", rec.ID, meeting.ErrNotFound)
		}
		return rec.ID, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (title, date, transcript, summary, key_points, action_items, audio_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.Date, rec.Transcript, rec.Summary,
		keyPoints, actionItems, rec.AudioPath,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite store: insert: %w: %w", meeting.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite store: insert: %w: %w", meeting.ErrStorage, err)
	}
	rec.ID = id
	return id, nil
}

// Get implements [meeting.Store].
func (s *Store) Get(ctx context.Context, id int64) (*meeting.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get %d: %w", id, err)
	}
	return rec, nil
}

// GetAll implements [meeting.Store].
func (s *Store) GetAll(ctx context.Context) ([]meeting.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get all: %w: %w", meeting.ErrStorage, err)
	}
	return collectRecords(rows)
}

// Delete implements [meeting.Store].
func (s *Store) Delete(ctx context.Context, id int64) (string, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("sqlite store: delete %d: %w: %w", id, meeting.ErrStorage, err)
	}
	defer tx.Rollback()

	var audioPath sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT audio_path FROM meetings WHERE id = ?`, id).Scan(&audioPath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite store: delete %d: %w: %w", id, meeting.ErrStorage, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id); err != nil {
		return "", false, fmt.Errorf("sqlite store: delete %d: %w: %w", id, meeting.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("sqlite store: delete %d: %w: %w", id, meeting.ErrStorage, err)
	}
	return audioPath.String, true, nil
}

// Search implements [meeting.Store]. SQLite's LIKE folds ASCII letters only,
// so non-ASCII queries match case-sensitively.
func (s *Store) Search(ctx context.Context, query string) ([]meeting.Record, error) {
	pattern := meeting.ContainsPattern(query)
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE  title      LIKE ? ESCAPE '\'
		   OR  transcript LIKE ? ESCAPE '\'
		   OR  summary    LIKE ? ESCAPE '\'
		ORDER  BY date DESC, id DESC`,
		pattern, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: search: %w: %w", meeting.ErrStorage, err)
	}
	return collectRecords(rows)
}

// Ping implements [meeting.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite store: ping: %w: %w", meeting.ErrStorage, err)
	}
	return nil
}

// Close implements [meeting.Store].
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row in selectColumns order. Nullable text columns
// written by other tools read back as empty strings.
func scanRecord(row scanner) (*meeting.Record, error) {
	var (
		rec                            meeting.Record
		transcript, summary, audioPath sql.NullString
		keyPoints, actionItems         sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Date, &transcript, &summary, &keyPoints, &actionItems, &audioPath); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w: %w", meeting.ErrStorage, err)
	}
	rec.Transcript = transcript.String
	rec.Summary = summary.String
	rec.AudioPath = audioPath.String

	var err error
	if rec.KeyPoints, err = meeting.DecodeList(keyPoints.String); err != nil {
		return nil, fmt.Errorf("%w: %w", meeting.ErrStorage, err)
	}
	if rec.ActionItems, err = meeting.DecodeList(actionItems.String); err != nil {
		return nil, fmt.Errorf("%w: %w", meeting.ErrStorage, err)
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]meeting.Record, error) {
	defer rows.Close()

	records := []meeting.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: rows: %w: %w", meeting.ErrStorage, err)
	}
	return records, nil
}
