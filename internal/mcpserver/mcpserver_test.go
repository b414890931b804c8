package mcpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/B-Dastan/ai-meeting-assistant/internal/mcpserver"
	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

type fakeService struct {
	recs    []meeting.Record
	listErr error
	asked   []string
}

func (f *fakeService) List(context.Context) ([]meeting.Record, error) {
	return f.recs, f.listErr
}

func (f *fakeService) Search(_ context.Context, q string) ([]meeting.Record, error) {
	var out []meeting.Record
	for _, r := range f.recs {
		if strings.Contains(strings.ToLower(r.Title+r.Transcript+r.Summary), strings.ToLower(q)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeService) Get(_ context.Context, id int64) (*meeting.Record, error) {
	for _, r := range f.recs {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("app: meeting %d: %w", id, meeting.ErrNotFound)
}

func (f *fakeService) Ask(ctx context.Context, id int64, question string) (string, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return "", err
	}
	f.asked = append(f.asked, question)
	return "Bob owns QA.", nil
}

func seeded() *fakeService {
	return &fakeService{recs: []meeting.Record{
		{ID: 2, Title: "Release planning", Date: "2026-05-04 13:00:00", Transcript: "ship Friday, Bob on QA",
			Summary: "Agreed to ship Friday.", KeyPoints: []string{"Ship Friday"}, ActionItems: []string{"Bob: QA"}},
		{ID: 1, Title: "Budget review", Date: "2026-05-01 09:00:00", Transcript: "costs are up",
			Summary: "Costs rose.", KeyPoints: []string{}, ActionItems: []string{}},
	}}
}

func connect(t *testing.T, svc mcpserver.Service) (*mcpsdk.ClientSession, *sdkmetric.ManualReader) {
	t.Helper()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	srv := mcpserver.New(svc, "test", mcpserver.WithMetrics(m))
	ct, st := mcpsdk.NewInMemoryTransports()
	ss, err := srv.MCP().Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs, reader
}

func call(t *testing.T, cs *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

// structured re-decodes the result's structured content into T.
func structured[T any](t *testing.T, res *mcpsdk.CallToolResult) T {
	t.Helper()
	var v T
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode structured content %s: %v", raw, err)
	}
	return v
}

func errorText(res *mcpsdk.CallToolResult) string {
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

type listing struct {
	Meetings []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		ActionItems int    `json:"action_items"`
	} `json:"meetings"`
}

func TestTools_Advertised(t *testing.T) {
	t.Parallel()

	cs, _ := connect(t, seeded())
	var names []string
	for tool, err := range cs.Tools(context.Background(), nil) {
		if err != nil {
			t.Fatalf("list tools: %v", err)
		}
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	want := []string{"ask_meeting", "get_meeting", "list_meetings", "search_meetings"}
	if !slices.Equal(names, want) {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

func TestListMeetings(t *testing.T) {
	t.Parallel()

	cs, reader := connect(t, seeded())
	res := call(t, cs, mcpserver.ToolListMeetings, nil)
	if res.IsError {
		t.Fatalf("unexpected error result: %s", errorText(res))
	}
	got := structured[listing](t, res)
	if len(got.Meetings) != 2 || got.Meetings[0].ID != 2 || got.Meetings[0].ActionItems != 1 {
		t.Errorf("listing = %+v", got)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "meeting.tool.calls" {
				found = true
			}
		}
	}
	if !found {
		t.Error("meeting.tool.calls not recorded")
	}
}

func TestListMeetings_ServiceError(t *testing.T) {
	t.Parallel()

	cs, _ := connect(t, &fakeService{listErr: errors.New("database is locked")})
	res := call(t, cs, mcpserver.ToolListMeetings, nil)
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(errorText(res), "database is locked") {
		t.Errorf("error text = %q", errorText(res))
	}
}

func TestSearchMeetings(t *testing.T) {
	t.Parallel()

	cs, _ := connect(t, seeded())
	got := structured[listing](t, call(t, cs, mcpserver.ToolSearchMeetings, map[string]any{"query": "BUDGET"}))
	if len(got.Meetings) != 1 || got.Meetings[0].Title != "Budget review" {
		t.Errorf("search = %+v", got)
	}

	none := structured[listing](t, call(t, cs, mcpserver.ToolSearchMeetings, map[string]any{"query": "offsite"}))
	if none.Meetings == nil || len(none.Meetings) != 0 {
		t.Errorf("no-match search = %+v, want empty list", none)
	}

	if res := call(t, cs, mcpserver.ToolSearchMeetings, map[string]any{"query": "  "}); !res.IsError {
		t.Error("blank query: expected error result")
	}
}

func TestGetMeeting(t *testing.T) {
	t.Parallel()

	cs, _ := connect(t, seeded())
	rec := structured[meeting.Record](t, call(t, cs, mcpserver.ToolGetMeeting, map[string]any{"id": 2}))
	if rec.Transcript != "ship Friday, Bob on QA" || !slices.Equal(rec.ActionItems, []string{"Bob: QA"}) {
		t.Errorf("record = %+v", rec)
	}

	res := call(t, cs, mcpserver.ToolGetMeeting, map[string]any{"id": 99})
	if !res.IsError || !strings.Contains(errorText(res), "not found") {
		t.Errorf("missing id: IsError=%v text=%q", res.IsError, errorText(res))
	}
	if res := call(t, cs, mcpserver.ToolGetMeeting, map[string]any{"id": 0}); !res.IsError {
		t.Error("zero id: expected error result")
	}
}

func TestAskMeeting(t *testing.T) {
	t.Parallel()

	svc := seeded()
	cs, _ := connect(t, svc)
	res := call(t, cs, mcpserver.ToolAskMeeting, map[string]any{"id": 2, "question": "Who owns QA?"})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", errorText(res))
	}
	got := structured[struct {
		ID     int64  `json:"id"`
		Answer string `json:"answer"`
	}](t, res)
	if got.ID != 2 || got.Answer != "Bob owns QA." {
		t.Errorf("answer = %+v", got)
	}
	if !slices.Equal(svc.asked, []string{"Who owns QA?"}) {
		t.Errorf("asked = %v", svc.asked)
	}
}
