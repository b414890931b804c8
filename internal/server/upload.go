package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
)

// uploadField is the multipart form field carrying the recording.
const uploadField = "audio"

// stampLayout timestamps unnamed and colliding uploads.
const stampLayout = "20060102_150405"

// minUploadBytes is the largest upload still rejected as holding no
// meaningful audio.
const minUploadBytes = 1000

// allowedExtensions lists the audio containers accepted for upload.
var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit)})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("missing %q file field: %v", uploadField, err)})
		return
	}
	defer file.Close()

	name, err := s.uploadName(hdr.Filename)
	if err != nil {
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody{Error: err.Error()})
		return
	}
	if hdr.Size <= minUploadBytes {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "recording is too short"})
		return
	}

	path, err := s.saveUpload(file, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	observe.Logger(r.Context()).Info("upload saved", "path", path, "bytes", hdr.Size)

	rec, err := s.svc.ProcessAudio(r.Context(), path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/meetings/%d", rec.ID))
	writeJSON(w, http.StatusCreated, rec)
}

// uploadName picks the file name for an upload. The client's base name is
// kept when it has an accepted extension; an unnamed upload becomes
// recording_<YYYYmmdd_HHMMSS>.wav. A name already taken in the uploads
// directory gets the timestamp appended.
func (s *Server) uploadName(clientName string) (string, error) {
	stamp := s.now().Format(stampLayout)
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(clientName, `\`, "/")))
	if base == "/" || base == "." {
		return "recording_" + stamp + ".wav", nil
	}

	ext := strings.ToLower(filepath.Ext(base))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported audio type %q (accepted: wav, mp3, m4a, ogg, flac)", ext)
	}
	if _, err := os.Stat(filepath.Join(s.uploadsDir, base)); err == nil {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + "_" + stamp + ext
	}
	return base, nil
}

func (s *Server) saveUpload(src multipart.File, name string) (string, error) {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("server: create uploads dir: %w", err)
	}
	path := filepath.Join(s.uploadsDir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("server: save upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("server: save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("server: save upload: %w", err)
	}
	return path, nil
}
