// Package mcpserver exposes stored meetings to MCP clients (desktop
// assistants, IDE agents) as a small set of tools:
//
//	list_meetings    newest-first overview of every meeting
//	search_meetings  substring search over title, transcript and summary
//	get_meeting      the full record for one ID
//	ask_meeting      answer a question from one meeting's transcript
//
// Tool failures are reported to the client as error results, never as
// protocol errors, so a missing ID does not tear down the session.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

// ServerName is announced to clients during initialisation.
const ServerName = "meeting-assistant"

// Tool names.
const (
	ToolListMeetings   = "list_meetings"
	ToolSearchMeetings = "search_meetings"
	ToolGetMeeting     = "get_meeting"
	ToolAskMeeting     = "ask_meeting"
)

// Service is the subset of the application the tools call.
type Service interface {
	List(ctx context.Context) ([]meeting.Record, error)
	Search(ctx context.Context, query string) ([]meeting.Record, error)
	Get(ctx context.Context, id int64) (*meeting.Record, error)
	Ask(ctx context.Context, id int64, question string) (string, error)
}

// Option is a functional option for [New].
type Option func(*Server)

// WithMetrics records tool metrics on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server wraps an MCP server with the meeting tools registered.
type Server struct {
	svc     Service
	metrics *observe.Metrics
	mcp     *mcpsdk.Server
}

// New creates a Server backed by svc. version is reported to clients.
func New(svc Service, version string, opts ...Option) *Server {
	s := &Server{svc: svc}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	s.mcp = mcpsdk.NewServer(&mcpsdk.Implementation{Name: ServerName, Version: version}, nil)

	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        ToolListMeetings,
		Description: "List all recorded meetings, newest first, with their titles, dates and summaries.",
	}, instrument(s, ToolListMeetings, s.listMeetings))
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        ToolSearchMeetings,
		Description: "Find meetings whose title, transcript or summary contains the query (case-insensitive).",
	}, instrument(s, ToolSearchMeetings, s.searchMeetings))
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        ToolGetMeeting,
		Description: "Fetch one meeting by ID including its full transcript, key points and action items.",
	}, instrument(s, ToolGetMeeting, s.getMeeting))
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        ToolAskMeeting,
		Description: "Answer a question using only the transcript of the given meeting.",
	}, instrument(s, ToolAskMeeting, s.askMeeting))

	return s
}

// MCP returns the underlying SDK server, for callers that manage their own
// transport.
func (s *Server) MCP() *mcpsdk.Server { return s.mcp }

// Run serves the tools over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcp.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// instrument records a call count and latency for every tool invocation.
func instrument[In, Out any](s *Server, name string, h mcpsdk.ToolHandlerFor[In, Out]) mcpsdk.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, in In) (res *mcpsdk.CallToolResult, out Out, err error) {
		ctx, span := observe.StartSpan(ctx, "mcp."+name)
		defer func() { observe.EndSpan(span, err) }()

		start := time.Now()
		res, out, err = h(ctx, req, in)
		s.metrics.RecordToolCall(ctx, name, observe.StatusOf(err), time.Since(start))
		if err != nil {
			observe.Logger(ctx).Warn("mcp tool failed", "tool", name, "err", err)
		}
		return res, out, err
	}
}
