// Package audiotest builds small audio fixtures for tests.
package audiotest

import "encoding/binary"

// BuildWAV constructs a minimal valid 16-bit PCM RIFF/WAVE byte slice with a
// standard 44-byte header followed by pcm.
func BuildWAV(pcm []byte, sampleRate, channels int) []byte {
	const (
		fmtSize       = 16
		bitsPerSample = 16
	)

	dataSize := uint32(len(pcm))
	fileSize := 4 + (8 + fmtSize) + (8 + dataSize)
	blockAlign := channels * bitsPerSample / 8

	buf := make([]byte, 0, 12+8+fmtSize+8+len(pcm))
	le := binary.LittleEndian

	buf = append(buf, "RIFF"...)
	buf = le.AppendUint32(buf, fileSize)
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = le.AppendUint32(buf, fmtSize)
	buf = le.AppendUint16(buf, 1) // PCM
	buf = le.AppendUint16(buf, uint16(channels))
	buf = le.AppendUint32(buf, uint32(sampleRate))
	buf = le.AppendUint32(buf, uint32(sampleRate*blockAlign))
	buf = le.AppendUint16(buf, uint16(blockAlign))
	buf = le.AppendUint16(buf, bitsPerSample)

	buf = append(buf, "data"...)
	buf = le.AppendUint32(buf, dataSize)
	buf = append(buf, pcm...)

	return buf
}
