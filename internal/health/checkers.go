package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/audio"
)

// Pinger is implemented by anything that can verify its own connectivity,
// such as a meeting.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports whether the record store answers.
func StoreChecker(p Pinger) Checker {
	return Checker{Name: "store", Check: p.Ping}
}

// FFmpegChecker reports whether ffmpeg is installed. It is required to
// transcribe anything other than 16-bit PCM WAV.
func FFmpegChecker() Checker {
	return Checker{Name: "ffmpeg", Check: func(context.Context) error {
		return audio.CheckFFmpeg()
	}}
}

// DirChecker reports whether dir exists (creating it if needed) and is
// writable. Used for the uploads directory.
func DirChecker(name, dir string) Checker {
	return Checker{Name: name, Check: func(context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return fmt.Errorf("%s not writable: %w", dir, err)
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}}
}

// FileChecker reports whether path names an existing regular file. Used for
// the local whisper model.
func FileChecker(name, path string) Checker {
	return Checker{Name: name, Check: func(context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return errors.New(filepath.Clean(path) + " is a directory")
		}
		return nil
	}}
}
