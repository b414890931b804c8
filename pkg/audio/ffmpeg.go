package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrFFmpegNotFound is returned when the ffmpeg or ffprobe binary is not on PATH.
var ErrFFmpegNotFound = errors.New("audio: ffmpeg not found on PATH")

// CheckFFmpeg verifies that ffmpeg is installed.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: install it with your package manager (e.g. apt install ffmpeg, brew install ffmpeg)", ErrFFmpegNotFound)
	}
	return nil
}

// Decode converts any audio file ffmpeg understands to mono float32 samples
// at sampleRate.
func Decode(ctx context.Context, path string, sampleRate int) ([]float32, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio: decode %q: %w", path, err)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, ErrFFmpegNotFound
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("audio: ffmpeg decode %q: %w\n%s", path, err, strings.TrimSpace(stderr.String()))
	}
	return PCM16ToFloat32(stdout.Bytes(), 1), nil
}

// Load returns mono float32 samples at sampleRate for the file at path.
// 16-bit PCM WAV files are decoded in-process; everything else goes
// through ffmpeg.
func Load(ctx context.Context, path string, sampleRate int) ([]float32, error) {
	samples, rate, err := ReadWAV(path)
	if err == nil {
		return Resample(samples, rate, sampleRate), nil
	}
	if !errors.Is(err, ErrNotWAV) && !errors.Is(err, ErrUnsupportedFormat) {
		return nil, err
	}
	return Decode(ctx, path, sampleRate)
}

// ProbeDuration returns the playback length of the audio file at path. WAV
// headers are parsed directly; other formats are measured with ffprobe.
func ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audio: probe %q: %w", path, err)
	}
	info, err := ParseWAVHeader(f)
	f.Close()
	if err == nil {
		return info.Duration(), nil
	}
	if !errors.Is(err, ErrNotWAV) {
		return 0, fmt.Errorf("audio: probe %q: %w", path, err)
	}
	return probeWithFFprobe(ctx, path)
}

func probeWithFFprobe(ctx context.Context, path string) (time.Duration, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, ErrFFmpegNotFound
	}
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("audio: ffprobe %q: %w", path, err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("audio: ffprobe %q: parse duration %q: %w", path, strings.TrimSpace(string(out)), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
