package mcpserver

import (
	"context"
	"errors"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

type listInput struct{}

type searchInput struct {
	Query string `json:"query" jsonschema:"text to look for in titles, transcripts and summaries"`
}

type getInput struct {
	ID int64 `json:"id" jsonschema:"meeting ID as returned by list_meetings"`
}

type askInput struct {
	ID       int64  `json:"id" jsonschema:"meeting ID as returned by list_meetings"`
	Question string `json:"question" jsonschema:"question to answer from the transcript"`
}

// meetingSummary is the compact listing form of a record. Transcripts are
// left out to keep list results small; use get_meeting for the full record.
type meetingSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Summary     string `json:"summary"`
	ActionItems int    `json:"action_items"`
}

type meetingsOutput struct {
	Meetings []meetingSummary `json:"meetings"`
}

type answerOutput struct {
	ID     int64  `json:"id"`
	Answer string `json:"answer"`
}

var errMissingID = errors.New("id must be a positive meeting ID")

func (s *Server) listMeetings(ctx context.Context, _ *mcpsdk.CallToolRequest, _ listInput) (*mcpsdk.CallToolResult, meetingsOutput, error) {
	recs, err := s.svc.List(ctx)
	if err != nil {
		return nil, meetingsOutput{}, err
	}
	return nil, summarise(recs), nil
}

func (s *Server) searchMeetings(ctx context.Context, _ *mcpsdk.CallToolRequest, in searchInput) (*mcpsdk.CallToolResult, meetingsOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, meetingsOutput{}, errors.New("query must not be blank")
	}
	recs, err := s.svc.Search(ctx, in.Query)
	if err != nil {
		return nil, meetingsOutput{}, err
	}
	return nil, summarise(recs), nil
}

func (s *Server) getMeeting(ctx context.Context, _ *mcpsdk.CallToolRequest, in getInput) (*mcpsdk.CallToolResult, meeting.Record, error) {
	if in.ID <= 0 {
		return nil, meeting.Record{}, errMissingID
	}
	rec, err := s.svc.Get(ctx, in.ID)
	if err != nil {
		return nil, meeting.Record{}, err
	}
	return nil, *rec, nil
}

func (s *Server) askMeeting(ctx context.Context, _ *mcpsdk.CallToolRequest, in askInput) (*mcpsdk.CallToolResult, answerOutput, error) {
	if in.ID <= 0 {
		return nil, answerOutput{}, errMissingID
	}
	answer, err := s.svc.Ask(ctx, in.ID, in.Question)
	if err != nil {
		return nil, answerOutput{}, err
	}
	return nil, answerOutput{ID: in.ID, Answer: answer}, nil
}

func summarise(recs []meeting.Record) meetingsOutput {
	out := meetingsOutput{Meetings: make([]meetingSummary, 0, len(recs))}
	for _, r := range recs {
		out.Meetings = append(out.Meetings, meetingSummary{
			ID:          r.ID,
			Title:       r.Title,
			Date:        r.Date,
			Summary:     r.Summary,
			ActionItems: len(r.ActionItems),
		})
	}
	return out
}
