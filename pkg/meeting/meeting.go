// Package meeting defines the meeting record, the only entity the assistant
// persists, together with the Store interface that every storage backend
// implements.
//
// A Record is created by the orchestrator once transcription and
// summarisation have both succeeded, saved through a Store (which assigns the
// identifier), optionally edited and saved again, and finally removed by an
// explicit delete that hands the stored audio path back to the caller.
package meeting

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultTitle is used when a record is created without a title.
const DefaultTitle = "Untitled Meeting"

// DateLayout is the timestamp layout of [Record.Date]. Values in this layout
// sort lexicographically in chronological order, which the stores rely on.
const DateLayout = "2006-01-02 15:04"

// ErrValidation is wrapped by every [ValidationError].
var ErrValidation = errors.New("meeting: invalid record")

// ErrStorage is wrapped by every error a [Store] returns when the storage
// medium cannot complete an operation.
var ErrStorage = errors.New("meeting: storage failure")

// ErrNotFound is returned by [Store.Save] when asked to update an identifier
// that has no row.
var ErrNotFound = errors.New("meeting: record not found")

// ValidationError reports a single field that failed validation.
type ValidationError struct {
	// Field is the JSON name of the offending field.
	Field string

	// Reason is a short human-readable explanation.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("meeting: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match [ErrValidation].
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Record is a processed meeting.
type Record struct {
	// ID is assigned by the Store on first save. Zero means the record has not
	// been saved yet. Once non-zero it never changes.
	ID int64 `json:"id"`

	// Title is a short descriptive title, usually generated by the language model.
	Title string `json:"title"`

	// Date is the creation timestamp in [DateLayout].
	Date string `json:"date"`

	// Transcript is the full speech-to-text output.
	Transcript string `json:"transcript"`

	// Summary is the prose summary of the meeting.
	Summary string `json:"summary"`

	// KeyPoints lists the main discussion points in order. Never nil after
	// [New] or a Store read.
	KeyPoints []string `json:"key_points"`

	// ActionItems lists follow-ups in order. Never nil after [New] or a Store read.
	ActionItems []string `json:"action_items"`

	// AudioPath is the location of the source audio. May be empty.
	AudioPath string `json:"audio_path"`
}

// Option customises a Record built by [New].
type Option func(*Record)

// WithTitle sets the record title.
func WithTitle(title string) Option {
	return func(r *Record) { r.Title = title }
}

// WithDate sets the record date. It must be in [DateLayout].
func WithDate(date string) Option {
	return func(r *Record) { r.Date = date }
}

// WithTranscript sets the transcript.
func WithTranscript(text string) Option {
	return func(r *Record) { r.Transcript = text }
}

// WithSummary sets the summary.
func WithSummary(summary string) Option {
	return func(r *Record) { r.Summary = summary }
}

// WithKeyPoints sets the key points. A nil slice is stored as empty.
func WithKeyPoints(points []string) Option {
	return func(r *Record) { r.KeyPoints = points }
}

// WithActionItems sets the action items. A nil slice is stored as empty.
func WithActionItems(items []string) Option {
	return func(r *Record) { r.ActionItems = items }
}

// WithAudioPath sets the audio path.
func WithAudioPath(path string) Option {
	return func(r *Record) { r.AudioPath = path }
}

// New builds an unsaved Record with defaults applied: [DefaultTitle], the
// current local time as the date, and empty lists. It returns a
// [*ValidationError] when any supplied value is invalid.
func New(opts ...Option) (*Record, error) {
	r := &Record{
		Title:       DefaultTitle,
		Date:        time.Now().Format(DateLayout),
		KeyPoints:   []string{},
		ActionItems: []string{},
	}
	for _, o := range opts {
		o(r)
	}
	r.normalise()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// normalise replaces nil lists with empty ones.
func (r *Record) normalise() {
	if r.KeyPoints == nil {
		r.KeyPoints = []string{}
	}
	if r.ActionItems == nil {
		r.ActionItems = []string{}
	}
}

// Validate checks the record's invariants. It returns the first violation
// found as a [*ValidationError]. Unsaved records must carry a date in
// [DateLayout]; saved ones only need a non-blank date, so rows written by
// other tools in another sortable format stay editable.
func (r *Record) Validate() error {
	if r.ID < 0 {
		return &ValidationError{Field: "id", Reason: "must not be negative"}
	}
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be blank"}
	}
	if r.Saved() {
		if strings.TrimSpace(r.Date) == "" {
			return &ValidationError{Field: "date", Reason: "must not be blank"}
		}
	} else if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not in layout %q", r.Date, DateLayout)}
	}
	for field, v := range map[string]string{
		"title":      r.Title,
		"transcript": r.Transcript,
		"summary":    r.Summary,
		"audio_path": r.AudioPath,
	} {
		if !utf8.ValidString(v) {
			return &ValidationError{Field: field, Reason: "is not valid UTF-8"}
		}
	}
	for i, p := range r.KeyPoints {
		if !utf8.ValidString(p) {
			return &ValidationError{Field: fmt.Sprintf("key_points[%d]", i), Reason: "is not valid UTF-8"}
		}
	}
	for i, a := range r.ActionItems {
		if !utf8.ValidString(a) {
			return &ValidationError{Field: fmt.Sprintf("action_items[%d]", i), Reason: "is not valid UTF-8"}
		}
	}
	return nil
}

// Saved reports whether the record has been assigned an identifier.
func (r *Record) Saved() bool { return r.ID != 0 }
