// Package stt defines the Provider interface for speech-to-text engines.
//
// A provider turns one finished audio file into a transcript. Engines are
// batch only: the assistant never streams partial results. Implementations
// wrap whisper.cpp either in-process (CGO bindings) or over the HTTP API of a
// running whisper-server.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/audio"
)

// DefaultLanguage is reported when the engine does not detect a language.
const DefaultLanguage = "en"

// Segment is a timestamped slice of the transcript.
type Segment struct {
	// Start and End are offsets from the beginning of the audio.
	Start time.Duration
	End   time.Duration

	// Text is the trimmed segment text.
	Text string
}

// Result is the outcome of transcribing one audio file.
type Result struct {
	// Text is the trimmed full transcript. Empty when no speech was recognised.
	Text string

	// Segments are ordered by Start. Nil when the engine reports no timing.
	Segments []Segment

	// Language is the detected or configured language code.
	Language string
}

// Provider is the abstraction over any speech-to-text engine.
type Provider interface {
	// TranscribeFile transcribes the audio file at path. Unreadable or corrupt
	// audio is reported as an error; it is never turned into an empty result.
	TranscribeFile(ctx context.Context, path string) (*Result, error)
}

// TranscribeArray writes mono samples to a temporary 16-bit PCM WAV file,
// transcribes it with p, and removes the file before returning.
func TranscribeArray(ctx context.Context, p Provider, samples []float32, sampleRate int) (*Result, error) {
	if sampleRate <= 0 {
		sampleRate = audio.SpeechSampleRate
	}
	f, err := os.CreateTemp("", "meeting-*.wav")
	if err != nil {
		return nil, fmt.Errorf("stt: create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := audio.WriteWAV(path, samples, sampleRate); err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}
	return p.TranscribeFile(ctx, path)
}

// NewResult builds a Result from raw engine output: the text and every
// segment's text are trimmed, empty segments are dropped, and an empty
// language falls back to DefaultLanguage.
func NewResult(text string, segments []Segment, language string) *Result {
	var segs []Segment
	for _, s := range segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		segs = append(segs, s)
	}
	if language == "" {
		language = DefaultLanguage
	}
	return &Result{
		Text:     strings.TrimSpace(text),
		Segments: segs,
		Language: language,
	}
}

// WordCount returns the number of whitespace-separated words in the transcript.
func (r *Result) WordCount() int {
	return len(strings.Fields(r.Text))
}
