package meeting

import "context"

// Store persists meeting records.
//
// Implementations must be safe for concurrent use. Every error caused by the
// storage medium wraps [ErrStorage]. A Store never touches the audio file
// referenced by [Record.AudioPath]; reclaiming it is the caller's job.
type Store interface {
	// Save inserts rec when rec.ID is zero and sets rec.ID to the new
	// identifier. Otherwise it overwrites the row with that identifier,
	// keeping a stored date even when it is not in [DateLayout].
	// It returns the identifier in both cases.
	Save(ctx context.Context, rec *Record) (int64, error)

	// Get returns the record with the given identifier, or (nil, nil) when
	// no such record exists.
	Get(ctx context.Context, id int64) (*Record, error)

	// GetAll returns every record ordered by date, newest first.
	GetAll(ctx context.Context) ([]Record, error)

	// Delete removes the record and returns its audio path. found is false,
	// with a nil error, when no record had that identifier.
	Delete(ctx context.Context, id int64) (audioPath string, found bool, err error)

	// Search returns records whose title, transcript, or summary contains
	// query as a case-insensitive substring, newest first.
	Search(ctx context.Context, query string) ([]Record, error)

	// Ping verifies the storage medium is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
