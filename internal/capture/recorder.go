package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/satindergrewal/sayit/internal/audio"
)

// blockQueue is the delivery channel depth between the device callback and
// the accumulator (~16s of audio at 4096 samples/16kHz).
const blockQueue = 64

// Recorder turns microphone input into Recordings, one session at a time.
// Start while a session is active is rejected with ErrSessionActive.
type Recorder struct {
	device Device
	cons   Constraints
	log    zerolog.Logger

	mu     sync.Mutex
	active *Session
	tap    func(block []float32)
}

// NewRecorder creates a recorder for the given device.
func NewRecorder(device Device, cons Constraints, logger zerolog.Logger) *Recorder {
	if cons.SampleRate <= 0 {
		cons.SampleRate = audio.SampleRate
	}
	if cons.Channels <= 0 {
		cons.Channels = audio.Channels
	}
	if cons.BlockSize <= 0 {
		cons.BlockSize = audio.BlockSize
	}
	return &Recorder{
		device: device,
		cons:   cons,
		log:    logger.With().Str("component", "capture").Logger(),
	}
}

// SetTap registers a function that sees every accumulated block, in order,
// after it has been stored. It runs on the accumulator goroutine and must not
// block or retain the slice for writing. Pass nil to remove it.
func (r *Recorder) SetTap(fn func(block []float32)) {
	r.mu.Lock()
	r.tap = fn
	r.mu.Unlock()
}

// Active reports whether a session is recording.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Constraints returns the stream constraints requested on Start.
func (r *Recorder) Constraints() Constraints {
	return r.cons
}

// Start opens the device and begins accumulating blocks. Device failures are
// returned here as *DeviceAccessError and leave the recorder idle.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return nil, ErrSessionActive
	}
	s := &Session{
		id:         uuid.NewString(),
		recorder:   r,
		sampleRate: r.cons.SampleRate,
		blocks:     make(chan []float32, blockQueue),
		done:       make(chan struct{}),
		tap:        r.tap,
		log:        r.log,
	}
	// Reserve the slot while the permission prompt is pending.
	r.active = s
	r.mu.Unlock()

	s.log = r.log.With().Str("session", s.id).Logger()
	go s.accumulate()

	stream, err := r.device.Open(ctx, r.cons, s.deliver)
	if err != nil {
		s.abort()
		return nil, &DeviceAccessError{Op: "open input", Err: err}
	}
	s.stream = stream

	if got := stream.SampleRate(); got != r.cons.SampleRate {
		if terr := teardown(stream); terr != nil {
			s.log.Warn().Err(terr).Msg("Teardown after rate mismatch")
		}
		s.abort()
		return nil, &DeviceAccessError{
			Op:  "open input",
			Err: fmt.Errorf("device delivers %d Hz, requested %d Hz", got, r.cons.SampleRate),
		}
	}

	s.startedAt = time.Now()
	s.log.Info().
		Int("sample_rate", r.cons.SampleRate).
		Int("block_size", r.cons.BlockSize).
		Msg("Recording started")
	return s, nil
}

func (r *Recorder) release(s *Session) {
	r.mu.Lock()
	if r.active == s {
		r.active = nil
	}
	r.mu.Unlock()
}

// Session is one recording in progress, owned by the caller of Start.
type Session struct {
	id         string
	recorder   *Recorder
	stream     Stream
	sampleRate int
	startedAt  time.Time
	tap        func(block []float32)
	log        zerolog.Logger

	mu     sync.Mutex // guards closed and sends on blocks
	closed bool
	blocks chan []float32

	// chunks is written only by accumulate until done is closed.
	chunks [][]float32
	count  int
	cmu    sync.Mutex // guards count for Blocks()
	done   chan struct{}

	stopOnce sync.Once
}

func (s *Session) ID() string           { return s.id }
func (s *Session) SampleRate() int      { return s.sampleRate }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Blocks returns the number of blocks accumulated so far.
func (s *Session) Blocks() int {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	return s.count
}

// deliver is the device callback. Blocks arriving after the session closed
// are dropped.
func (s *Session) deliver(block []float32) {
	cp := make([]float32, len(block))
	copy(cp, block)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Debug().Int("samples", len(cp)).Msg("Dropped block after teardown")
		return
	}
	s.blocks <- cp
}

// accumulate appends blocks in arrival order until the channel is closed.
func (s *Session) accumulate() {
	defer close(s.done)
	for block := range s.blocks {
		s.chunks = append(s.chunks, block)
		s.cmu.Lock()
		s.count++
		s.cmu.Unlock()
		if s.tap != nil {
			s.tap(block)
		}
	}
}

// closeBlocks stops accepting deliveries and waits for the accumulator to
// drain whatever is still queued.
func (s *Session) closeBlocks() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.blocks)
	}
	s.mu.Unlock()
	<-s.done
}

// abort discards a session that never started.
func (s *Session) abort() {
	s.closeBlocks()
	s.recorder.release(s)
}

// Stop tears down the device and encodes everything captured so far.
// Teardown problems are logged; they never prevent encoding.
// Returns ErrEmptyRecording when nothing was captured.
func (s *Session) Stop() (*Recording, error) {
	var (
		rec *Recording
		err = ErrSessionClosed
	)
	s.stopOnce.Do(func() {
		rec, err = s.stop()
	})
	return rec, err
}

func (s *Session) stop() (*Recording, error) {
	defer s.recorder.release(s)

	// Blocks that arrive while the device winds down are still accepted.
	if terr := teardown(s.stream); terr != nil {
		s.log.Warn().Err(terr).Msg("Teardown incomplete")
	}
	s.closeBlocks()

	rec, err := s.finalize()
	if err != nil {
		s.log.Warn().Err(err).Int("blocks", len(s.chunks)).Msg("Recording discarded")
		return nil, err
	}

	s.log.Info().
		Str("recording", rec.ID()).
		Int("blocks", len(s.chunks)).
		Int("samples", rec.SampleCount()).
		Dur("duration", rec.Duration()).
		Msg("Recording stopped")
	return rec, nil
}

// finalize concatenates chunks in arrival order and encodes them.
func (s *Session) finalize() (*Recording, error) {
	total := 0
	for _, c := range s.chunks {
		total += len(c)
	}
	if total == 0 {
		return nil, ErrEmptyRecording
	}

	combined := make([]float32, 0, total)
	for _, c := range s.chunks {
		combined = append(combined, c...)
	}

	wav, err := audio.EncodeWAV(combined, s.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingInvariant, err)
	}
	if err := audio.VerifyWAV(wav, s.sampleRate, total); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingInvariant, err)
	}

	return &Recording{
		id:         s.id,
		data:       wav,
		sampleRate: s.sampleRate,
		samples:    total,
		capturedAt: s.startedAt,
	}, nil
}

// teardown runs every release step in order, even when an earlier one
// fails or panics, and joins the failures.
func teardown(st Stream) error {
	if st == nil {
		return nil
	}
	return errors.Join(
		step("disconnect", st.Disconnect),
		step("close context", st.CloseContext),
		step("stop tracks", st.StopTracks),
	)
}

func step(name string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", name, p)
		}
	}()
	if e := fn(); e != nil {
		return fmt.Errorf("%s: %w", name, e)
	}
	return nil
}
