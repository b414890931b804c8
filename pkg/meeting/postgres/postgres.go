// Package postgres provides a PostgreSQL-backed [meeting.Store] for users who
// keep their notes in an existing database server rather than a local file.
//
// The table layout mirrors the SQLite store; list columns hold JSON text so
// both backends can be exported and imported with the same tooling. [Migrate]
// runs on every [NewStore] call and is idempotent.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

var _ meeting.Store = (*Store)(nil)

const ddlMeetings = `
CREATE TABLE IF NOT EXISTS meetings (
    id           BIGSERIAL PRIMARY KEY,
    title        TEXT      NOT NULL DEFAULT 'Untitled Meeting',
    date         TEXT      NOT NULL,
    transcript   TEXT      NOT NULL DEFAULT '',
    summary      TEXT      NOT NULL DEFAULT '',
    key_points   TEXT      NOT NULL DEFAULT '[]',
    action_items TEXT      NOT NULL DEFAULT '[]',
    audio_path   TEXT      NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_meetings_date ON meetings (date);
`

const selectColumns = `SELECT id, title, date, transcript, summary, key_points, action_items, audio_path FROM meetings`

// Migrate creates the meetings table and its index if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlMeetings); err != nil {
		return fmt.Errorf("migrate meetings: %w", err)
	}
	return nil
}

// Store is a [meeting.Store] backed by a [pgxpool.Pool].
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection, and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w: %w", meeting.ErrStorage, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w: %w", meeting.ErrStorage, err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: %w: %w", meeting.ErrStorage, err)
	}

	return &Store{pool: pool}, nil
}

// Save implements [meeting.Store].
func (s *Store) Save(ctx context.Context, rec *meeting.Record) (int64, error) {
	if rec == nil {
		return 0, errors.New("postgres store: save: nil record")
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
		const q = `
			UPDATE meetings
			SET    title = $1, date = $2, transcript = $3, summary = $4,
			       key_points = $5, action_items = $6, audio_path = $7
			WHERE  id = $8`
		tag, err := s.pool.Exec(ctx, q,
			rec.Title, rec.Date, rec.Transcript, rec.Summary,
			keyPoints, actionItems, rec.AudioPath, rec.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("postgres store: update %d: %w: %w", rec.ID, meeting.ErrStorage, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, fmt.Errorf("postgres store: update %d: %w", rec.ID, meeting.ErrNotFound)
		}
		return rec.ID, nil
	}

	const q = `
		INSERT INTO meetings (title, date, transcript, summary, key_points, action_items, audio_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err = s.pool.QueryRow(ctx, q,
		rec.Title, rec.Date, rec.Transcript, rec.Summary,
		keyPoints, actionItems, rec.AudioPath,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres store: insert: %w: %w", meeting.ErrStorage, err)
	}
	rec.ID = id
	return id, nil
}

// Get implements [meeting.Store].
func (s *Store) Get(ctx context.Context, id int64) (*meeting.Record, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get %d: %w: %w", id, meeting.ErrStorage, err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// GetAll implements [meeting.Store].
func (s *Store) GetAll(ctx context.Context) ([]meeting.Record, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get all: %w: %w", meeting.ErrStorage, err)
	}
	return collectRecords(rows)
}

// Delete implements [meeting.Store].
func (s *Store) Delete(ctx context.Context, id int64) (string, bool, error) {
	var audioPath string
	err := s.pool.QueryRow(ctx, `DELETE FROM meetings WHERE id = $1 RETURNING audio_path`, id).Scan(&audioPath)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres store: delete %d: %w: %w", id, meeting.ErrStorage, err)
	}
	return audioPath, true, nil
}

// Search implements [meeting.Store] with ILIKE, which folds case for all
// letters the database collation knows about.
func (s *Store) Search(ctx context.Context, query string) ([]meeting.Record, error) {
	const where = `
		WHERE  title      ILIKE $1 ESCAPE '\'
		   OR  transcript ILIKE $1 ESCAPE '\'
		   OR  summary    ILIKE $1 ESCAPE '\'
		ORDER  BY date DESC, id DESC`
	rows, err := s.pool.Query(ctx, selectColumns+where, meeting.ContainsPattern(query))
	if err != nil {
		return nil, fmt.Errorf("postgres store: search: %w: %w", meeting.ErrStorage, err)
	}
	return collectRecords(rows)
}

// Ping implements [meeting.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w: %w", meeting.ErrStorage, err)
	}
	return nil
}

// Close implements [meeting.Store].
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// collectRecords scans pgx rows into records.
func collectRecords(rows pgx.Rows) ([]meeting.Record, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (meeting.Record, error) {
		var (
			rec                    meeting.Record
			keyPoints, actionItems string
		)
		if err := row.Scan(
			&rec.ID,
			&rec.Title,
			&rec.Date,
			&rec.Transcript,
			&rec.Summary,
			&keyPoints,
			&actionItems,
			&rec.AudioPath,
		); err != nil {
			return meeting.Record{}, err
		}
		var err error
		if rec.KeyPoints, err = meeting.DecodeList(keyPoints); err != nil {
			return meeting.Record{}, err
		}
		if rec.ActionItems, err = meeting.DecodeList(actionItems); err != nil {
			return meeting.Record{}, err
		}
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w: %w", meeting.ErrStorage, err)
	}
	if records == nil {
		records = []meeting.Record{}
	}
	return records, nil
}
