package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidSampleRate = errors.New("wav: invalid sample rate")
	ErrTooLong           = errors.New("wav: too many samples for a 32-bit RIFF header")
	ErrHeaderMismatch    = errors.New("wav: header does not match payload")
	ErrNotWAV            = errors.New("wav: not a canonical PCM WAV file")
)

// maxSamples keeps 36+2N inside a uint32 RIFF size field.
const maxSamples = (math.MaxUint32 - 36) / 2

// Header holds the fields of a canonical 44-byte mono PCM header.
type Header struct {
	RIFFSize      uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Samples returns the number of 16-bit samples the header declares.
func (h Header) Samples() int {
	return int(h.DataSize / 2)
}

// EncodeWAV builds a 16-bit mono PCM WAV file from float samples.
// The result is exactly HeaderSize+2*len(samples) bytes.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 || int64(sampleRate)*2 > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if int64(len(samples)) > maxSamples {
		return nil, fmt.Errorf("%w: %d samples", ErrTooLong, len(samples))
	}

	dataSize := uint32(len(samples) * 2)
	buf := make([]byte, HeaderSize+int(dataSize))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                   // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)                    // PCM
	binary.LittleEndian.PutUint16(buf[22:24], Channels)             // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))   // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate)*2) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], BitDepth)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	off := HeaderSize
	for _, s := range samples {
		binary.LittleEndian.PutUint16(buf[off:], uint16(Quantize(s)))
		off += 2
	}

	return buf, nil
}

// ParseHeader reads a canonical 44-byte WAV header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrNotWAV, len(buf))
	}
	if string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" ||
		string(buf[12:16]) != "fmt " || string(buf[36:40]) != "data" {
		return Header{}, ErrNotWAV
	}
	if fmtSize := binary.LittleEndian.Uint32(buf[16:20]); fmtSize != 16 {
		return Header{}, fmt.Errorf("%w: fmt chunk size %d", ErrNotWAV, fmtSize)
	}

	return Header{
		RIFFSize:      binary.LittleEndian.Uint32(buf[4:8]),
		AudioFormat:   binary.LittleEndian.Uint16(buf[20:22]),
		Channels:      binary.LittleEndian.Uint16(buf[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(buf[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(buf[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(buf[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(buf[34:36]),
		DataSize:      binary.LittleEndian.Uint32(buf[40:44]),
	}, nil
}

// CheckPayload validates a parsed header against its own fields and the
// real buffer length: 16-bit mono PCM with consistent sizes.
func (h Header) CheckPayload(bufLen int) error {
	switch {
	case h.AudioFormat != 1:
		return fmt.Errorf("%w: audio format %d", ErrHeaderMismatch, h.AudioFormat)
	case h.Channels != Channels:
		return fmt.Errorf("%w: %d channels", ErrHeaderMismatch, h.Channels)
	case h.BitsPerSample != BitDepth:
		return fmt.Errorf("%w: %d bits per sample", ErrHeaderMismatch, h.BitsPerSample)
	case h.SampleRate == 0:
		return fmt.Errorf("%w: sample rate 0", ErrHeaderMismatch)
	case h.BlockAlign != 2:
		return fmt.Errorf("%w: block align %d", ErrHeaderMismatch, h.BlockAlign)
	case uint64(h.ByteRate) != uint64(h.SampleRate)*2:
		return fmt.Errorf("%w: byte rate %d for %d Hz", ErrHeaderMismatch, h.ByteRate, h.SampleRate)
	case h.DataSize%2 != 0:
		return fmt.Errorf("%w: odd data size %d", ErrHeaderMismatch, h.DataSize)
	case int64(h.DataSize) != int64(bufLen)-HeaderSize:
		return fmt.Errorf("%w: data size %d, payload %d", ErrHeaderMismatch, h.DataSize, bufLen-HeaderSize)
	case uint64(h.RIFFSize) != uint64(h.DataSize)+36:
		return fmt.Errorf("%w: riff size %d, data size %d", ErrHeaderMismatch, h.RIFFSize, h.DataSize)
	}
	return nil
}

// VerifyWAV checks an encoded buffer against the session that produced it.
func VerifyWAV(buf []byte, sampleRate, samples int) error {
	h, err := ParseHeader(buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHeaderMismatch, err)
	}
	if err := h.CheckPayload(len(buf)); err != nil {
		return err
	}
	if int(h.SampleRate) != sampleRate {
		return fmt.Errorf("%w: sample rate %d, want %d", ErrHeaderMismatch, h.SampleRate, sampleRate)
	}
	if h.Samples() != samples {
		return fmt.Errorf("%w: %d samples, want %d", ErrHeaderMismatch, h.Samples(), samples)
	}
	return nil
}

// DecodeWAV reads a 16-bit mono PCM WAV produced by EncodeWAV back into floats.
func DecodeWAV(buf []byte) ([]float32, Header, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, Header{}, err
	}
	if err := h.CheckPayload(len(buf)); err != nil {
		return nil, h, err
	}

	samples := make([]float32, h.Samples())
	for i := range samples {
		off := HeaderSize + i*2
		samples[i] = Dequantize(int16(binary.LittleEndian.Uint16(buf[off : off+2])))
	}
	return samples, h, nil
}
