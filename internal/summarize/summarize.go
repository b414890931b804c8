// Package summarize turns a meeting transcript into notes: a title, a prose
// summary, key points, and action items. It also answers free-form questions
// about a transcript.
//
// Every operation is one or more chat completions against an
// [llm.Provider]. Long transcripts are summarised in two levels: each
// [maxWords]-word chunk is summarised on its own, then the partial summaries
// are summarised together. Title, list extraction, and question answering
// only see the first [maxWords] words.
//
// List extraction is lenient. Models are asked for a JSON array, but a
// response that does not decode is recovered line by line instead of failing.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
)

const defaultTemperature = 0.3

// Task names used for metrics, spans and log lines.
const (
	TaskTitle       = "title"
	TaskSummary     = "summary"
	TaskKeyPoints   = "key_points"
	TaskActionItems = "action_items"
	TaskAnswer      = "answer"
)

// Result is the full set of notes produced for one transcript.
type Result struct {
	Title       string
	Summary     string
	KeyPoints   []string
	ActionItems []string
}

// Option is a functional option for configuring a [Summarizer].
type Option func(*Summarizer)

// WithTemperature sets the sampling temperature for every request.
// Default: 0.3.
func WithTemperature(temp float64) Option {
	return func(s *Summarizer) {
		s.temperature = temp
	}
}

// WithMetrics records request latency, provider counters and parse fallbacks
// on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Summarizer) {
		s.metrics = m
	}
}

// WithProviderName sets the provider label used on metrics. Default: "llm".
func WithProviderName(name string) Option {
	return func(s *Summarizer) {
		s.providerName = name
	}
}

// Summarizer produces meeting notes with an [llm.Provider]. It holds no
// per-call state and is safe for concurrent use when the provider is.
type Summarizer struct {
	llm          llm.Provider
	temperature  float64
	metrics      *observe.Metrics
	providerName string
}

// New returns a [Summarizer] backed by provider. It fails with
// [config.ErrConfiguration] when provider is nil.
func New(provider llm.Provider, opts ...Option) (*Summarizer, error) {
	if provider == nil {
		return nil, fmt.Errorf("summarize: %w: no LLM provider configured", config.ErrConfiguration)
	}
	s := &Summarizer{
		llm:          provider,
		temperature:  defaultTemperature,
		providerName: "llm",
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// GenerateTitle returns a short title for the meeting.
func (s *Summarizer) GenerateTitle(ctx context.Context, transcript string) (string, error) {
	return s.chat(ctx, TaskTitle, titlePrompt, transcriptMessage(truncateWords(transcript, maxWords)))
}

// GenerateSummary returns a prose summary of the whole transcript. A
// transcript of at most [maxWords] words is sent in a single request;
// longer ones are summarised chunk by chunk and the partial summaries,
// joined by blank lines, are summarised once more.
func (s *Summarizer) GenerateSummary(ctx context.Context, transcript string) (string, error) {
	if wordCount(transcript) <= maxWords {
		return s.chat(ctx, TaskSummary, summaryPrompt, transcriptMessage(transcript))
	}

	chunks := chunkWords(transcript, maxWords)
	observe.Logger(ctx).Debug("summarizing long transcript in chunks", "chunks", len(chunks))

	partials := make([]string, 0, len(chunks))
	for i, c := range chunks {
		p, err := s.chat(ctx, TaskSummary, summaryPrompt, transcriptMessage(c))
		if err != nil {
			return "", fmt.Errorf("summarize: chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, p)
	}
	return s.chat(ctx, TaskSummary, summaryPrompt, transcriptMessage(strings.Join(partials, "\n\n")))
}

// ExtractKeyPoints returns the most important points discussed. Malformed
// model output never produces an error; the result is never nil.
func (s *Summarizer) ExtractKeyPoints(ctx context.Context, transcript string) ([]string, error) {
	return s.extractList(ctx, TaskKeyPoints, keyPointsPrompt, transcript)
}

// ExtractActionItems returns the action items and follow-ups agreed on.
// Malformed model output never produces an error; the result is never nil.
func (s *Summarizer) ExtractActionItems(ctx context.Context, transcript string) ([]string, error) {
	return s.extractList(ctx, TaskActionItems, actionItemsPrompt, transcript)
}

// AnswerQuestion answers question using only the transcript. When the
// transcript does not contain the answer the model is told to say so.
func (s *Summarizer) AnswerQuestion(ctx context.Context, transcript, question string) (string, error) {
	return s.chat(ctx, TaskAnswer, answerPrompt, questionMessage(truncateWords(transcript, maxWords), question))
}

// ProcessMeeting runs title, summary, key point and action item generation
// in that order. The first failure aborts the run; no partial result is
// returned.
func (s *Summarizer) ProcessMeeting(ctx context.Context, transcript string) (*Result, error) {
	ctx, span := observe.StartSpan(ctx, "summarize.ProcessMeeting",
		trace.WithAttributes(attribute.Int("transcript.words", wordCount(transcript))),
	)
	defer span.End()

	var (
		res Result
		err error
	)
	if res.Title, err = s.GenerateTitle(ctx, transcript); err != nil {
		return nil, fail(span, err)
	}
	if res.Summary, err = s.GenerateSummary(ctx, transcript); err != nil {
		return nil, fail(span, err)
	}
	if res.KeyPoints, err = s.ExtractKeyPoints(ctx, transcript); err != nil {
		return nil, fail(span, err)
	}
	if res.ActionItems, err = s.ExtractActionItems(ctx, transcript); err != nil {
		return nil, fail(span, err)
	}
	return &res, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Summarizer) extractList(ctx context.Context, task, prompt, transcript string) ([]string, error) {
	resp, err := s.chat(ctx, task, prompt, transcriptMessage(truncateWords(transcript, maxWords)))
	if err != nil {
		return nil, err
	}
	items, fallback := parseList(resp)
	if fallback {
		s.metrics.RecordParseFallback(ctx, task)
		observe.Logger(ctx).Debug("model returned non-JSON list, recovered line by line",
			slog.String("task", task),
			slog.Int("items", len(items)),
		)
	}
	return items, nil
}

// chat sends one system instruction plus one user message and returns the
// trimmed reply.
func (s *Summarizer) chat(ctx context.Context, task, system, user string) (string, error) {
	start := time.Now()
	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: s.temperature,
	})
	s.metrics.RecordLLM(ctx, task, time.Since(start))
	s.metrics.RecordProviderRequest(ctx, s.providerName, "llm", observe.StatusOf(err))
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.providerName, "llm")
		return "", fmt.Errorf("summarize: %s: %w", task, err)
	}
	return strings.TrimSpace(resp.Content), nil
}
