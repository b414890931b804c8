package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
)

// ProcessAudio turns the recording at path into a stored meeting:
//
//  1. Recordings shorter than MinDuration are rejected with ErrAudioTooShort.
//     If the duration cannot be determined the check is skipped.
//  2. The audio is transcribed. An empty transcript yields ErrNoSpeech.
//  3. Title, summary, key points and action items are generated.
//  4. The record is saved and returned with its ID set.
//
// Steps run strictly in order and nothing is persisted unless both engines
// succeed. Engine failures are returned as [*EngineError]; store failures
// wrap [meeting.ErrStorage].
func (a *App) ProcessAudio(ctx context.Context, path string) (rec *meeting.Record, err error) {
	ctx, span := observe.StartSpan(ctx, "app.ProcessAudio",
		trace.WithAttributes(attribute.String("audio.path", path)),
	)
	defer func() { observe.EndSpan(span, err) }()

	start := time.Now()
	a.metrics.ActiveJobs.Add(ctx, 1)
	defer a.metrics.ActiveJobs.Add(ctx, -1)

	rec, err = a.processAudio(ctx, path)

	status := observe.StatusOf(err)
	if IsEmptyResult(err) {
		status = "empty"
	}
	a.metrics.RecordMeetingProcessed(ctx, status, time.Since(start))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("meeting.id", rec.ID))
	return rec, nil
}

func (a *App) processAudio(ctx context.Context, path string) (*meeting.Record, error) {
	log := observe.Logger(ctx).With(slog.String("path", path))

	// ── 1. Duration gate ─────────────────────────────────────────────────
	minDur := a.MinDuration()
	if d, err := a.probe(ctx, path); err != nil {
		log.Warn("could not determine audio duration, skipping length check", "err", err)
	} else if d < minDur {
		return nil, fmt.Errorf("%w: %s is %v long, minimum is %v", ErrAudioTooShort, path, d.Round(time.Millisecond), minDur)
	}

	// ── 2. Transcription ─────────────────────────────────────────────────
	log.Info("transcribing audio")
	res, err := a.transcribe(ctx, path)
	if err != nil {
		return nil, &EngineError{Stage: StageTranscribe, Err: err}
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoSpeech, path)
	}
	log.Info("transcription complete",
		slog.Int("words", res.WordCount()),
		slog.String("language", res.Language),
	)

	// ── 3. Summarisation ─────────────────────────────────────────────────
	notes, err := a.summarizer.ProcessMeeting(ctx, text)
	if err != nil {
		return nil, &EngineError{Stage: StageSummarize, Err: err}
	}

	// ── 4. Persist ───────────────────────────────────────────────────────
	title := strings.TrimSpace(notes.Title)
	if title == "" {
		title = meeting.DefaultTitle
	}
	rec, err := meeting.New(
		meeting.WithTitle(title),
		meeting.WithDate(a.now().Format(meeting.DateLayout)),
		meeting.WithTranscript(text),
		meeting.WithSummary(notes.Summary),
		meeting.WithKeyPoints(notes.KeyPoints),
		meeting.WithActionItems(notes.ActionItems),
		meeting.WithAudioPath(path),
	)
	if err != nil {
		return nil, fmt.Errorf("app: build record: %w", err)
	}
	if _, err := a.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("app: save meeting: %w", err)
	}

	log.Info("meeting saved",
		slog.Int64("id", rec.ID),
		slog.String("title", rec.Title),
		slog.Int("key_points", len(rec.KeyPoints)),
		slog.Int("action_items", len(rec.ActionItems)),
	)
	return rec, nil
}

func (a *App) transcribe(ctx context.Context, path string) (*stt.Result, error) {
	name := a.cfg.Providers.STT.Name
	start := time.Now()
	res, err := a.providers.STT.TranscribeFile(ctx, path)
	a.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	a.metrics.RecordProviderRequest(ctx, name, "stt", observe.StatusOf(err))
	if err != nil {
		a.metrics.RecordProviderError(ctx, name, "stt")
		return nil, err
	}
	if res == nil {
		res = &stt.Result{}
	}
	return res, nil
}
