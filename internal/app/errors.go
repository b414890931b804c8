package app

import (
	"errors"
	"fmt"
)

// Pipeline stages reported by [EngineError].
const (
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
	StageAnswer     = "answer"
)

// ErrEngine matches every [*EngineError] with errors.Is.
var ErrEngine = errors.New("app: engine failure")

// ErrAudioTooShort is returned by [App.ProcessAudio] when the recording is
// shorter than the configured minimum duration.
var ErrAudioTooShort = errors.New("app: audio too short")

// ErrNoSpeech is returned by [App.ProcessAudio] when transcription produced
// no text.
var ErrNoSpeech = errors.New("app: no speech detected")

// EngineError reports a failure of the speech-to-text or language model
// engine during one pipeline stage.
type EngineError struct {
	// Stage is one of StageTranscribe, StageSummarize or StageAnswer.
	Stage string

	// Err is the engine's error.
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("app: %s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes both [ErrEngine] and the underlying cause.
func (e *EngineError) Unwrap() []error {
	return []error{ErrEngine, e.Err}
}

// IsEmptyResult reports whether err means the recording held nothing to
// process, as opposed to a failure.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrAudioTooShort) || errors.Is(err, ErrNoSpeech)
}
