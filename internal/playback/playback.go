// Package playback replays captured takes on the local speaker.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/satindergrewal/sayit/internal/audio"
)

// ErrUnsupportedFormat is returned for WAV data that is not 16-bit mono.
var ErrUnsupportedFormat = errors.New("playback: expected 16-bit mono WAV")

// Open decodes a take. The caller must close the returned streamer.
func Open(r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
	s, format, err := wav.Decode(r)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode take: %w", err)
	}
	if format.NumChannels != audio.Channels || format.Precision != audio.BitDepth/8 {
		s.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %d channels, %d bytes per sample",
			ErrUnsupportedFormat, format.NumChannels, format.Precision)
	}
	return s, format, nil
}

// Play plays a take through the default output device and blocks until it
// finishes or ctx is cancelled.
func Play(ctx context.Context, r io.Reader) error {
	s, format, err := Open(r)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
