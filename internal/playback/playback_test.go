package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/satindergrewal/sayit/internal/audio"
)

func TestOpenDecodesTake(t *testing.T) {
	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) / 10))
	}
	buf, err := audio.EncodeWAV(samples, audio.SampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	s, format, err := Open(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if int(format.SampleRate) != audio.SampleRate {
		t.Errorf("SampleRate = %d, want %d", format.SampleRate, audio.SampleRate)
	}
	if s.Len() != len(samples) {
		t.Errorf("Len = %d, want %d", s.Len(), len(samples))
	}

	out := make([][2]float64, len(samples))
	n, ok := s.Stream(out)
	if !ok || n != len(samples) {
		t.Fatalf("Stream = %d, %v; want %d, true", n, ok, len(samples))
	}
	for i := range samples {
		if math.Abs(out[i][0]-float64(samples[i])) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, out[i][0], samples[i])
		}
	}
}

func TestOpenDoesNotMutateTake(t *testing.T) {
	buf, _ := audio.EncodeWAV([]float32{0.1, 0.2, 0.3}, audio.SampleRate)
	orig := append([]byte(nil), buf...)

	s, _, err := Open(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Stream(make([][2]float64, 8))
	s.Close()

	if !bytes.Equal(buf, orig) {
		t.Error("decoding changed the take")
	}
}

func TestOpenRejectsStereo(t *testing.T) {
	buf, _ := audio.EncodeWAV([]float32{0.1, 0.2}, audio.SampleRate)
	// Patch NumChannels to 2 and keep the header otherwise consistent.
	binary.LittleEndian.PutUint16(buf[22:24], 2)
	binary.LittleEndian.PutUint16(buf[32:34], 4)
	binary.LittleEndian.PutUint32(buf[28:32], audio.SampleRate*4)

	_, _, err := Open(bytes.NewReader(buf))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, _, err := Open(bytes.NewReader([]byte("not a wav file at all"))); err == nil {
		t.Error("Open accepted non-WAV data")
	}
}
