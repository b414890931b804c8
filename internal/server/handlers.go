package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/B-Dastan/ai-meeting-assistant/internal/app"
	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

// maxJSONBody caps small JSON request bodies.
const maxJSONBody = 64 << 10

type errorBody struct {
	Error string `json:"error"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		recs []meeting.Record
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		recs, err = s.svc.Search(r.Context(), q)
	} else {
		recs, err = s.svc.List(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []meeting.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.svc.Rename(r.Context(), id, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	removeAudio := false
	if v := r.URL.Query().Get("remove_audio"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid remove_audio %q", v)})
			return
		}
		removeAudio = b
	}
	if err := s.svc.Delete(r.Context(), id, removeAudio); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	answer, err := s.svc.Ask(r.Context(), id, req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid meeting id %q", raw)})
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps application errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, meeting.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, meeting.ErrValidation):
		return http.StatusBadRequest
	case app.IsEmptyResult(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, app.ErrEngine):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observe.Logger(r.Context()).Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "err", err)
	}
}
