package capture

import (
	"context"

	"github.com/satindergrewal/sayit/internal/audio"
)

// Constraints describe the input stream requested from a device.
// EchoCancellation and NoiseSuppression are hints; a device that cannot
// honour them still captures.
type Constraints struct {
	SampleRate       int
	Channels         int
	BlockSize        int // samples per delivered block
	EchoCancellation bool
	NoiseSuppression bool
}

// DefaultConstraints returns 16kHz mono with 4096-sample blocks and both
// voice processing hints enabled.
func DefaultConstraints() Constraints {
	return Constraints{
		SampleRate:       audio.SampleRate,
		Channels:         audio.Channels,
		BlockSize:        audio.BlockSize,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// Device opens microphone streams.
//
// Open blocks until access is granted or refused. Once it returns a Stream,
// the device calls deliver from its own goroutine with one block per
// processing callback, in capture order, until the stream is torn down.
// The device may reuse the block's backing array after deliver returns.
type Device interface {
	Open(ctx context.Context, c Constraints, deliver func(block []float32)) (Stream, error)
}

// Stream is an open capture path. The three teardown steps mirror the
// processing path, its processing context and the underlying device tracks.
// Each must be safe to call when the resource is already released.
type Stream interface {
	Disconnect() error
	CloseContext() error
	StopTracks() error

	// SampleRate reports the rate the device actually delivers.
	SampleRate() int
}
