// Package audio holds the small amount of audio handling the assistant needs
// around the speech-to-text engine: RIFF/WAV encoding and header parsing,
// duration probing, PCM conversion, and decoding arbitrary formats through
// the ffmpeg command-line tool.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// SpeechSampleRate is the sample rate speech recognisers expect.
const SpeechSampleRate = 16000

const bitsPerSample = 16

// ErrNotWAV is returned when input does not start with a RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE file")

// ErrUnsupportedFormat is returned by [ReadWAV] for encodings other than
// 16-bit integer PCM.
var ErrUnsupportedFormat = errors.New("audio: unsupported WAV encoding")

// WAVInfo describes the format of a WAV file.
type WAVInfo struct {
	AudioFormat   int // 1 = integer PCM, 3 = IEEE float
	Channels      int
	SampleRate    int
	ByteRate      int
	BitsPerSample int

	// DataOffset is the byte offset of the first sample.
	DataOffset int64

	// DataSize is the length of the sample data in bytes.
	DataSize int64
}

// Duration returns the playback length implied by the header.
func (w WAVInfo) Duration() time.Duration {
	if w.ByteRate <= 0 {
		return 0
	}
	return time.Duration(float64(w.DataSize) / float64(w.ByteRate) * float64(time.Second))
}

// EncodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// WriteWAV writes mono float32 samples to path as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}
	data := EncodeWAV(Float32ToPCM16(samples), sampleRate, 1)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("audio: write wav %q: %w", path, err)
	}
	return nil
}

// ParseWAVHeader reads the RIFF chunk list from r until it finds the data
// chunk. Unknown chunks are skipped. When the declared data size exceeds what
// the stream holds (as written by some recorders that never patch the
// header), DataSize is clamped to the available bytes if r is seekable.
func ParseWAVHeader(r io.Reader) (WAVInfo, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return WAVInfo{}, fmt.Errorf("%w: %w", ErrNotWAV, err)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return WAVInfo{}, ErrNotWAV
	}

	var (
		info    WAVInfo
		haveFmt bool
		offset  int64 = 12
	)
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return WAVInfo{}, fmt.Errorf("audio: wav: missing data chunk: %w", err)
		}
		offset += 8
		id := string(ch[0:4])
		size := int64(binary.LittleEndian.Uint32(ch[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, fmt.Errorf("audio: wav: fmt chunk too short (%d bytes)", size)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return WAVInfo{}, fmt.Errorf("audio: wav: read fmt chunk: %w", err)
			}
			info.AudioFormat = int(binary.LittleEndian.Uint16(body[0:2]))
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.ByteRate = int(binary.LittleEndian.Uint32(body[8:12]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			// WAVE_FORMAT_EXTENSIBLE carries the real format in the sub-format GUID.
			if info.AudioFormat == 0xFFFE && size >= 26 {
				info.AudioFormat = int(binary.LittleEndian.Uint16(body[24:26]))
			}
			haveFmt = true
			offset += int64(len(body))

		case "data":
			if !haveFmt {
				return WAVInfo{}, errors.New("audio: wav: data chunk before fmt chunk")
			}
			info.DataOffset = offset
			info.DataSize = size
			if s, ok := r.(io.Seeker); ok {
				if end, err := s.Seek(0, io.SeekEnd); err == nil && end-offset < size {
					info.DataSize = end - offset
				}
				if _, err := s.Seek(offset, io.SeekStart); err != nil {
					return WAVInfo{}, fmt.Errorf("audio: wav: seek: %w", err)
				}
			}
			return info, nil

		default:
			skip := size + size%2
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return WAVInfo{}, fmt.Errorf("audio: wav: skip %q chunk: %w", id, err)
			}
			offset += skip
		}
	}
}

// ReadWAV decodes a 16-bit PCM WAV file to mono float32 samples and returns
// them with the file's sample rate.
func ReadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()

	info, err := ParseWAVHeader(f)
	if err != nil {
		return nil, 0, err
	}
	if info.AudioFormat != 1 || info.BitsPerSample != bitsPerSample {
		return nil, 0, fmt.Errorf("%w: format %d, %d bits", ErrUnsupportedFormat, info.AudioFormat, info.BitsPerSample)
	}

	pcm := make([]byte, info.DataSize)
	n, err := io.ReadFull(f, pcm)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, fmt.Errorf("audio: read samples: %w", err)
	}
	return PCM16ToFloat32(pcm[:n], info.Channels), info.SampleRate, nil
}

// IsWAV reports whether data starts with a RIFF/WAVE signature.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}
