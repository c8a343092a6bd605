package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// PortAudioDevice captures from the system default input through PortAudio.
type PortAudioDevice struct {
	log zerolog.Logger
}

// NewPortAudioDevice creates the default microphone device.
func NewPortAudioDevice(logger zerolog.Logger) *PortAudioDevice {
	return &PortAudioDevice{log: logger.With().Str("component", "portaudio").Logger()}
}

// Open initializes PortAudio and starts a callback stream delivering
// c.BlockSize float32 frames per callback.
func (d *PortAudioDevice) Open(ctx context.Context, c Constraints, deliver func(block []float32)) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Channels != 1 {
		return nil, fmt.Errorf("portaudio: %d channels requested, only mono is supported", c.Channels)
	}
	// PortAudio exposes no voice processing; the hints are best-effort.
	if c.EchoCancellation || c.NoiseSuppression {
		d.log.Debug().
			Bool("echo_cancellation", c.EchoCancellation).
			Bool("noise_suppression", c.NoiseSuppression).
			Msg("Voice processing hints not supported by device, ignoring")
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.SampleRate), c.BlockSize, func(in []float32) {
		deliver(in)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open default input: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	rate := c.SampleRate
	if info := stream.Info(); info != nil && info.SampleRate > 0 {
		rate = int(info.SampleRate)
	}

	d.log.Debug().Int("sample_rate", rate).Int("block_size", c.BlockSize).Msg("Input stream open")
	return &portAudioStream{stream: stream, rate: rate}, nil
}

// portAudioStream maps teardown onto PortAudio: stopping the stream ends
// callbacks, closing it frees the processing context, and terminating the
// library releases the device.
type portAudioStream struct {
	stream *portaudio.Stream
	rate   int

	mu         sync.Mutex
	stopped    bool
	closed     bool
	terminated bool
}

func (s *portAudioStream) SampleRate() int { return s.rate }

func (s *portAudioStream) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	return s.stream.Stop()
}

func (s *portAudioStream) CloseContext() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}

func (s *portAudioStream) StopTracks() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return nil
	}
	s.terminated = true
	return portaudio.Terminate()
}
