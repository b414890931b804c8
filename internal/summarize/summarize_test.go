package summarize

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm/mock"
)

func newTestSummarizer(t *testing.T, p llm.Provider) (*Summarizer, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	s, err := New(p, WithMetrics(m), WithProviderName("test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, reader
}

func TestNew_NilProvider(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("New(nil) error = %v, want ErrConfiguration", err)
	}
}

func TestGenerateTitle(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Responses: []string{"  Weekly Release Sync \n"}}
	s, _ := newTestSummarizer(t, p)

	title, err := s.GenerateTitle(context.Background(), nWords(1000))
	if err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}
	if title != "Weekly Release Sync" {
		t.Errorf("title = %q, want trimmed response", title)
	}

	call := p.CompleteCalls[0]
	if call.Req.SystemPrompt != titlePrompt {
		t.Errorf("system prompt = %q", call.Req.SystemPrompt)
	}
	if call.Req.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", call.Req.Temperature)
	}
	if len(call.Req.Messages) != 1 || call.Req.Messages[0].Role != llm.RoleUser {
		t.Fatalf("messages = %+v, want one user message", call.Req.Messages)
	}
	body, ok := strings.CutPrefix(call.Req.Messages[0].Content, "Meeting transcript:\n\n")
	if !ok {
		t.Fatalf("user message missing transcript prefix: %.40q", call.Req.Messages[0].Content)
	}
	if n := wordCount(body); n != maxWords {
		t.Errorf("title request saw %d words, want %d", n, maxWords)
	}
}

func TestGenerateSummary_ShortTranscriptSingleRequest(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "The team agreed."}}
	s, _ := newTestSummarizer(t, p)

	transcript := "We agreed to ship  the feature Friday."
	got, err := s.GenerateSummary(context.Background(), transcript)
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if got != "The team agreed." {
		t.Errorf("summary = %q", got)
	}
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("requests = %d, want 1", len(p.CompleteCalls))
	}
	if want := "Meeting transcript:\n\n" + transcript; p.CompleteCalls[0].Req.Messages[0].Content != want {
		t.Errorf("user message = %q, want untouched transcript %q", p.CompleteCalls[0].Req.Messages[0].Content, want)
	}
	if p.CompleteCalls[0].Req.SystemPrompt != summaryPrompt {
		t.Error("summary request used the wrong system prompt")
	}
}

func TestGenerateSummary_LongTranscriptMapReduce(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Responses: []string{"part one", "part two", "part three", "final"}}
	s, _ := newTestSummarizer(t, p)

	got, err := s.GenerateSummary(context.Background(), nWords(1700))
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if got != "final" {
		t.Errorf("summary = %q, want reduce output", got)
	}
	if len(p.CompleteCalls) != 4 {
		t.Fatalf("requests = %d, want 3 partials + 1 reduce", len(p.CompleteCalls))
	}
	for i, c := range p.CompleteCalls[:3] {
		body := strings.TrimPrefix(c.Req.Messages[0].Content, "Meeting transcript:\n\n")
		if n := wordCount(body); n > maxWords {
			t.Errorf("chunk %d has %d words", i, n)
		}
	}
	reduce := p.CompleteCalls[3].Req.Messages[0].Content
	if want := "Meeting transcript:\n\npart one\n\npart two\n\npart three"; reduce != want {
		t.Errorf("reduce message = %q, want %q", reduce, want)
	}
}

func TestGenerateSummary_Over1600WordsNeedsAtLeastThreeRequests(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "x"}}
	s, _ := newTestSummarizer(t, p)

	if _, err := s.GenerateSummary(context.Background(), nWords(1601)); err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if n := len(p.CompleteCalls); n < 3 {
		t.Errorf("requests = %d, want >= 3", n)
	}
}

func TestGenerateSummary_ChunkErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	calls := 0
	p := &mock.Provider{CompleteFunc: func(llm.CompletionRequest) (string, error) {
		calls++
		if calls == 2 {
			return "", boom
		}
		return "ok", nil
	}}
	s, _ := newTestSummarizer(t, p)

	_, err := s.GenerateSummary(context.Background(), nWords(2000))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	if calls != 2 {
		t.Errorf("requests = %d, want 2 (stop at first failure)", calls)
	}
}

func TestExtractLists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		extract  func(*Summarizer, context.Context, string) ([]string, error)
		prompt   string
		response string
		want     []string
		fallback bool
	}{
		{
			name:     "key points json",
			extract:  (*Summarizer).ExtractKeyPoints,
			prompt:   keyPointsPrompt,
			response: "```json\n[\"Release moved to Friday\"]\n```",
			want:     []string{"Release moved to Friday"},
		},
		{
			name:     "action items json",
			extract:  (*Summarizer).ExtractActionItems,
			prompt:   actionItemsPrompt,
			response: `["Bob owns QA"]`,
			want:     []string{"Bob owns QA"},
		},
		{
			name:     "action items fallback",
			extract:  (*Summarizer).ExtractActionItems,
			prompt:   actionItemsPrompt,
			response: "import json\naction_items = [\n1. Ship the feature Friday\n2. Bob runs QA\n]",
			want:     []string{"Ship the feature Friday", "Bob runs QA"},
			fallback: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := &mock.Provider{Responses: []string{tc.response}}
			s, reader := newTestSummarizer(t, p)

			got, err := tc.extract(s, context.Background(), nWords(900))
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("items = %q, want %q", got, tc.want)
			}
			if p.CompleteCalls[0].Req.SystemPrompt != tc.prompt {
				t.Error("wrong system prompt")
			}
			body := strings.TrimPrefix(p.CompleteCalls[0].Req.Messages[0].Content, "Meeting transcript:\n\n")
			if n := wordCount(body); n != maxWords {
				t.Errorf("request saw %d words, want %d", n, maxWords)
			}

			var rm metricdata.ResourceMetrics
			if err := reader.Collect(context.Background(), &rm); err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if got := hasMetric(rm, "meeting.llm.parse_fallbacks"); got != tc.fallback {
				t.Errorf("parse fallback recorded = %v, want %v", got, tc.fallback)
			}
		})
	}
}

func TestExtractKeyPoints_GarbageNeverErrors(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Responses: []string{"[\n]"}}
	s, _ := newTestSummarizer(t, p)

	got, err := s.ExtractKeyPoints(context.Background(), "short")
	if err != nil {
		t.Fatalf("ExtractKeyPoints: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("items = %#v, want empty non-nil", got)
	}
}

func TestAnswerQuestion(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Responses: []string{"Bob."}}
	s, _ := newTestSummarizer(t, p)

	got, err := s.AnswerQuestion(context.Background(), "Assign QA to Bob.", "Who owns QA?")
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if got != "Bob." {
		t.Errorf("answer = %q", got)
	}
	req := p.CompleteCalls[0].Req
	if req.SystemPrompt != answerPrompt {
		t.Error("wrong system prompt")
	}
	if want := "Meeting transcript:\n\nAssign QA to Bob.\n\nQuestion: Who owns QA?"; req.Messages[0].Content != want {
		t.Errorf("user message = %q, want %q", req.Messages[0].Content, want)
	}
}

func TestProcessMeeting(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteFunc: func(req llm.CompletionRequest) (string, error) {
		switch req.SystemPrompt {
		case titlePrompt:
			return "Release planning", nil
		case summaryPrompt:
			return "The team agreed to ship on Friday.", nil
		case keyPointsPrompt:
			return `["Ship Friday"]`, nil
		case actionItemsPrompt:
			return `["Assign QA to Bob"]`, nil
		}
		return "", errors.New("unexpected prompt")
	}}
	s, _ := newTestSummarizer(t, p)

	res, err := s.ProcessMeeting(context.Background(), "We agreed to ship the feature Friday and assign QA to Bob")
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}
	want := Result{
		Title:       "Release planning",
		Summary:     "The team agreed to ship on Friday.",
		KeyPoints:   []string{"Ship Friday"},
		ActionItems: []string{"Assign QA to Bob"},
	}
	if res.Title != want.Title || res.Summary != want.Summary ||
		!slices.Equal(res.KeyPoints, want.KeyPoints) || !slices.Equal(res.ActionItems, want.ActionItems) {
		t.Errorf("result = %+v, want %+v", *res, want)
	}

	order := make([]string, 0, len(p.CompleteCalls))
	for _, c := range p.CompleteCalls {
		order = append(order, c.Req.SystemPrompt)
	}
	if !slices.Equal(order, []string{titlePrompt, summaryPrompt, keyPointsPrompt, actionItemsPrompt}) {
		t.Error("tasks did not run in title, summary, key points, action items order")
	}
}

func TestProcessMeeting_ErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("model unavailable")
	p := &mock.Provider{CompleteErr: boom}
	s, reader := newTestSummarizer(t, p)

	res, err := s.ProcessMeeting(context.Background(), "anything")
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if len(p.CompleteCalls) != 1 {
		t.Errorf("requests = %d, want 1", len(p.CompleteCalls))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !hasMetric(rm, "meeting.provider.errors") {
		t.Error("provider error not recorded")
	}
}

func hasMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}
