// Package audio decodes WAV payloads into the raw PCM the recognizer expects.
//
// The Kaldi recognizer consumes 16-bit little-endian mono PCM at a fixed
// sample rate. One-shot requests arrive as WAV files; this package unpacks
// them and validates the format. Resampling is out of scope — callers are
// expected to record at the configured rate.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCM is decoded audio ready to feed to the recognizer.
type PCM struct {
	// Data is 16-bit little-endian mono PCM.
	Data []byte

	// SampleRate is the rate declared by the WAV header, in Hz.
	SampleRate int
}

// DecodeWAV unpacks a WAV file into raw PCM16 bytes.
//
// Only uncompressed 16-bit mono PCM is accepted. A sample-rate check against
// the recognizer's configured rate is the caller's job; the header rate is
// returned so it can do so.
func DecodeWAV(data []byte) (*PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported WAV encoding %d: only uncompressed PCM is supported", d.WavAudioFormat)
	}
	if d.NumChans != 1 {
		return nil, fmt.Errorf("expected mono audio, got %d channels", d.NumChans)
	}
	if d.BitDepth != 16 {
		return nil, fmt.Errorf("expected 16-bit samples, got %d-bit", d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	return &PCM{
		Data:       pcmBytes(buf),
		SampleRate: int(d.SampleRate),
	}, nil
}

// pcmBytes packs an int sample buffer into little-endian PCM16.
func pcmBytes(buf *gaudio.IntBuffer) []byte {
	pcm := make([]byte, len(buf.Data)*2)
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample)))
	}
	return pcm
}

// EncodeWAV wraps raw PCM16 mono samples in a minimal WAV container.
// Used by tests and the CLI to produce recognizer-ready fixtures.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	var b bytes.Buffer
	dataLen := uint32(len(pcm))

	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&b, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&b, binary.LittleEndian, uint16(16))           // bits per sample

	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, dataLen)
	b.Write(pcm)

	return b.Bytes()
}
