package capture

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/satindergrewal/sayit/internal/audio"
)

// Recording is a finished take: a complete 16-bit mono WAV file.
// It is immutable; readers get copies or read-only views.
type Recording struct {
	id         string
	data       []byte
	sampleRate int
	samples    int
	capturedAt time.Time
}

// LoadRecording wraps an existing WAV file after validating its header.
func LoadRecording(data []byte) (*Recording, error) {
	h, err := audio.ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if err := h.CheckPayload(len(data)); err != nil {
		return nil, err
	}
	if h.Samples() == 0 {
		return nil, ErrEmptyRecording
	}
	return &Recording{
		id:         uuid.NewString(),
		data:       bytes.Clone(data),
		sampleRate: int(h.SampleRate),
		samples:    h.Samples(),
		capturedAt: time.Now(),
	}, nil
}

func (r *Recording) ID() string            { return r.id }
func (r *Recording) SampleRate() int       { return r.sampleRate }
func (r *Recording) SampleCount() int      { return r.samples }
func (r *Recording) Size() int64           { return int64(len(r.data)) }
func (r *Recording) CapturedAt() time.Time { return r.capturedAt }

// Duration is the audio length of the take.
func (r *Recording) Duration() time.Duration {
	return time.Duration(r.samples) * time.Second / time.Duration(r.sampleRate)
}

// Bytes returns a copy of the encoded file.
func (r *Recording) Bytes() []byte {
	return bytes.Clone(r.data)
}

// NewReader returns an independent read-only view for playback or upload.
func (r *Recording) NewReader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the encoded file to w.
func (r *Recording) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// Filename is the upload name of the take.
func (r *Recording) Filename() string {
	return fmt.Sprintf("recording-%s.wav", r.id)
}
