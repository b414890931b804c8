package whisper_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/audio"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt/whisper"
)

// ---- helpers ----------------------------------------------------------------

type captured struct {
	fields   map[string]string
	fileName string
	fileHead []byte
}

// newMockServer creates a test server that answers POST /inference with body
// and records the multipart form it received.
func newMockServer(t *testing.T, status int, body any, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if got != nil {
			got.fields = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				got.fields[k] = v[0]
			}
			if f, hdr, err := r.FormFile("file"); err == nil {
				got.fileName = hdr.Filename
				got.fileHead = make([]byte, 12)
				_, _ = io.ReadFull(f, got.fileHead)
				f.Close()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeWAV(t *testing.T, seconds float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.wav")
	n := int(seconds * audio.SpeechSampleRate)
	if err := audio.WriteWAV(path, make([]float32, n), audio.SpeechSampleRate); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	return path
}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	t.Parallel()

	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

// ---- TranscribeFile ---------------------------------------------------------

func TestTranscribeFile_VerboseJSON(t *testing.T) {
	t.Parallel()

	var got captured
	srv := newMockServer(t, http.StatusOK, map[string]any{
		"text":     "  We agreed to ship Friday.  Bob owns QA. ",
		"language": "english",
		"segments": []map[string]any{
			{"start": 0.0, "end": 1.5, "text": " We agreed to ship Friday."},
			{"start": 1.5, "end": 2.75, "text": " Bob owns QA. "},
			{"start": 2.75, "end": 3.0, "text": "   "},
		},
	}, &got)

	p, err := whisper.New(srv.URL, whisper.WithModel("base.en"), whisper.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.TranscribeFile(context.Background(), writeWAV(t, 3))
	if err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}

	if res.Text != "We agreed to ship Friday.  Bob owns QA." {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Language != "english" {
		t.Errorf("Language = %q", res.Language)
	}
	want := []stt.Segment{
		{Start: 0, End: 1500 * time.Millisecond, Text: "We agreed to ship Friday."},
		{Start: 1500 * time.Millisecond, End: 2750 * time.Millisecond, Text: "Bob owns QA."},
	}
	if len(res.Segments) != len(want) {
		t.Fatalf("Segments = %+v, want %d entries", res.Segments, len(want))
	}
	for i := range want {
		if res.Segments[i] != want[i] {
			t.Errorf("Segments[%d] = %+v, want %+v", i, res.Segments[i], want[i])
		}
	}

	if got.fields["response_format"] != "verbose_json" {
		t.Errorf("response_format = %q", got.fields["response_format"])
	}
	if got.fields["language"] != "en" {
		t.Errorf("language = %q, want default en", got.fields["language"])
	}
	if got.fields["model"] != "base.en" {
		t.Errorf("model = %q", got.fields["model"])
	}
	if got.fileName != "meeting.wav" || !audio.IsWAV(got.fileHead) {
		t.Errorf("uploaded file %q is not the WAV recording", got.fileName)
	}
}

func TestTranscribeFile_DefaultsLanguageWhenServerOmitsIt(t *testing.T) {
	t.Parallel()

	srv := newMockServer(t, http.StatusOK, map[string]any{"text": "hello"}, nil)
	p, _ := whisper.New(srv.URL, whisper.WithLanguage("de"))
	res, err := p.TranscribeFile(context.Background(), writeWAV(t, 1))
	if err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if res.Language != "de" {
		t.Errorf("Language = %q, want de", res.Language)
	}
	if res.Segments != nil {
		t.Errorf("Segments = %v, want nil", res.Segments)
	}
}

func TestTranscribeFile_ServerError(t *testing.T) {
	t.Parallel()

	srv := newMockServer(t, http.StatusInternalServerError, map[string]any{"error": "failed to read WAV file"}, nil)
	p, _ := whisper.New(srv.URL)
	_, err := p.TranscribeFile(context.Background(), writeWAV(t, 1))
	if err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Fatalf("err = %v, want HTTP 500 error", err)
	}
}

func TestTranscribeFile_MissingFile(t *testing.T) {
	t.Parallel()

	p, _ := whisper.New("http://127.0.0.1:1")
	if _, err := p.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTranscribeFile_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := newMockServer(t, http.StatusOK, map[string]any{"text": "late"}, nil)
	p, _ := whisper.New(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.TranscribeFile(ctx, writeWAV(t, 1)); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestTranscribeArray_RemovesTempFile(t *testing.T) {
	t.Parallel()

	var got captured
	srv := newMockServer(t, http.StatusOK, map[string]any{"text": "array"}, &got)
	p, _ := whisper.New(srv.URL)

	res, err := stt.TranscribeArray(context.Background(), p, make([]float32, 8000), 16000)
	if err != nil {
		t.Fatalf("TranscribeArray: %v", err)
	}
	if res.Text != "array" {
		t.Errorf("Text = %q", res.Text)
	}
	if !strings.HasPrefix(got.fileName, "meeting-") {
		t.Errorf("uploaded %q, want temp file", got.fileName)
	}
	if _, err := os.Stat(filepath.Join(os.TempDir(), got.fileName)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("temp file %s was not removed (stat err = %v)", got.fileName, err)
	}
}
