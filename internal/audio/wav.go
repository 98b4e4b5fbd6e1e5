// Package audio inspects the audio files produced by the synthesis backends.
// The backends decide the format; this package only reads RIFF/WAVE headers
// so that log lines can report what was written.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Format represents supported audio formats.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatUnknown Format = "unknown"
)

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtChunkMinSize = 16
	maxHeaderBytes  = 64 * 1024
)

// Static errors.
var (
	ErrNotWAV       = errors.New("not a RIFF/WAVE file")
	ErrMissingFmt   = errors.New("WAV file missing fmt chunk")
	ErrMissingData  = errors.New("WAV file missing data chunk")
	ErrInvalidFrame = errors.New("WAV fmt chunk has a zero frame size")
)

// Info represents information about a generated audio file.
type Info struct {
	Format     Format
	SampleRate int
	Channels   int
	BitDepth   int
	DataSize   int64
	Duration   time.Duration
}

// String renders the info for log lines.
func (i Info) String() string {
	if i.Format != FormatWAV {
		return string(i.Format)
	}

	return fmt.Sprintf("wav %d Hz, %d ch, %d-bit, %s",
		i.SampleRate, i.Channels, i.BitDepth, i.Duration.Round(time.Millisecond))
}

// Probe parses the RIFF/WAVE header in data. Only the chunk headers and the
// fmt chunk need to be present; the data chunk size is taken from its header.
func Probe(data []byte) (Info, error) {
	if len(data) < riffHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Info{Format: FormatUnknown}, ErrNotWAV
	}

	info := Info{Format: FormatWAV}
	foundFmt := false

	offset := riffHeaderSize
	for offset+chunkHeaderSize <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int64(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + chunkHeaderSize

		switch chunkID {
		case "fmt ":
			if chunkSize < fmtChunkMinSize || body+fmtChunkMinSize > len(data) {
				return info, ErrMissingFmt
			}

			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			info.BitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			foundFmt = true
		case "data":
			if !foundFmt {
				return info, ErrMissingFmt
			}

			info.DataSize = chunkSize

			bytesPerSecond := int64(info.SampleRate) * int64(info.Channels) * int64(info.BitDepth/8)
			if bytesPerSecond == 0 {
				return info, ErrInvalidFrame
			}

			info.Duration = time.Duration(chunkSize * int64(time.Second) / bytesPerSecond)

			return info, nil
		}

		// Chunks are word-aligned.
		next := int64(body) + chunkSize + chunkSize%2
		if next > int64(len(data)) {
			break
		}

		offset = int(next)
	}

	return info, ErrMissingData
}

// ProbeFile reads the beginning of the file at path and probes it.
func ProbeFile(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{Format: FormatUnknown}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	header, err := io.ReadAll(io.LimitReader(file, maxHeaderBytes))
	if err != nil {
		return Info{Format: FormatUnknown}, fmt.Errorf("read %s: %w", path, err)
	}

	return Probe(header)
}
