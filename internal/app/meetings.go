package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

// List returns every stored meeting, newest first.
func (a *App) List(ctx context.Context) ([]meeting.Record, error) {
	recs, err := a.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: list meetings: %w", err)
	}
	return recs, nil
}

// Get returns the meeting with the given ID, or an error wrapping
// [meeting.ErrNotFound].
func (a *App) Get(ctx context.Context, id int64) (*meeting.Record, error) {
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("app: get meeting %d: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("app: meeting %d: %w", id, meeting.ErrNotFound)
	}
	return rec, nil
}

// Search returns meetings whose title, transcript or summary contains query,
// newest first. A blank query lists everything.
func (a *App) Search(ctx context.Context, query string) ([]meeting.Record, error) {
	if strings.TrimSpace(query) == "" {
		return a.List(ctx)
	}
	recs, err := a.store.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("app: search meetings: %w", err)
	}
	return recs, nil
}

// Ask answers question from the transcript of meeting id.
func (a *App) Ask(ctx context.Context, id int64, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &meeting.ValidationError{Field: "question", Reason: "must not be blank"}
	}
	ctx = observe.WithMeeting(ctx, id)
	rec, err := a.Get(ctx, id)
	if err != nil {
		return "", err
	}

	a.metrics.QuestionsAnswered.Add(ctx, 1)
	answer, err := a.summarizer.AnswerQuestion(ctx, rec.Transcript, question)
	if err != nil {
		return "", &EngineError{Stage: StageAnswer, Err: err}
	}
	return answer, nil
}

// Rename sets the title of meeting id and returns the updated record.
func (a *App) Rename(ctx context.Context, id int64, title string) (*meeting.Record, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &meeting.ValidationError{Field: "title", Reason: "must not be blank"}
	}
	ctx = observe.WithMeeting(ctx, id)
	rec, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Title = title
	if _, err := a.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("app: rename meeting %d: %w", id, err)
	}
	observe.Logger(ctx).Info("meeting renamed", slog.String("title", title))
	return rec, nil
}

// Delete removes meeting id. When removeAudio is set the recording it was
// made from is deleted too; an audio file that is already gone is not an
// error.
func (a *App) Delete(ctx context.Context, id int64, removeAudio bool) error {
	ctx = observe.WithMeeting(ctx, id)
	audioPath, found, err := a.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("app: delete meeting %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("app: meeting %d: %w", id, meeting.ErrNotFound)
	}
	a.metrics.MeetingsDeleted.Add(ctx, 1)

	log := observe.Logger(ctx)
	if !removeAudio || audioPath == "" {
		log.Info("meeting deleted")
		return nil
	}
	if err := os.Remove(audioPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("app: remove audio %q: %w", audioPath, err)
	}
	log.Info("meeting deleted", slog.String("audio_removed", audioPath))
	return nil
}
