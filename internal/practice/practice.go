package practice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/satindergrewal/sayit/internal/capture"
	"github.com/satindergrewal/sayit/internal/scoring"
)

// State is the position of the practice workflow.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateStopping   State = "stopping" // device being released
	StateReady      State = "ready"    // take captured, not yet submitted
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
)

var (
	ErrWordRequired     = errors.New("practice: word is required")
	ErrNotRecording     = errors.New("practice: not recording")
	ErrNoTake           = errors.New("practice: no take to play or submit")
	ErrAlreadySubmitted = errors.New("practice: take already submitted")
	ErrBusy             = errors.New("practice: another operation is in progress")
)

// Submitter uploads a take to the scoring service.
type Submitter interface {
	Submit(ctx context.Context, word string, wav io.Reader, size int64, filename string) (*scoring.Result, error)
}

// TakeInfo describes a captured take.
type TakeInfo struct {
	ID         string  `json:"id"`
	Bytes      int64   `json:"bytes"`
	Samples    int     `json:"samples"`
	SampleRate int     `json:"sample_rate"`
	Duration   float64 `json:"duration"` // seconds
}

// Status is the current state of the workflow.
type Status struct {
	State     State           `json:"state"`
	Word      string          `json:"word,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Blocks    int             `json:"blocks,omitempty"`
	Take      *TakeInfo       `json:"take,omitempty"`
	Result    *scoring.Result `json:"result,omitempty"`
	LastError string          `json:"last_error,omitempty"`
}

// Practice drives one student's record -> review -> submit loop:
// idle -> recording -> stopping -> ready -> submitted, with re-record from
// ready. Operations that overlap a stop or an upload return ErrBusy.
type Practice struct {
	recorder  *capture.Recorder
	submitter Submitter
	log       zerolog.Logger

	mu      sync.RWMutex
	state   State
	word    string
	session *capture.Session
	take    *capture.Recording
	result  *scoring.Result
	lastErr string

	// discarding is set when Discard lands while the device is still
	// opening; Start releases the late session.
	discarding bool
}

// New creates a practice workflow.
func New(recorder *capture.Recorder, submitter Submitter, logger zerolog.Logger) *Practice {
	return &Practice{
		recorder:  recorder,
		submitter: submitter,
		log:       logger.With().Str("component", "practice").Logger(),
		state:     StateIdle,
	}
}

// Status returns the current workflow state.
func (p *Practice) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := Status{
		State:     p.state,
		Word:      p.word,
		Result:    p.result,
		LastError: p.lastErr,
	}
	if p.session != nil {
		st.SessionID = p.session.ID()
		st.Blocks = p.session.Blocks()
	}
	if p.take != nil {
		st.Take = takeInfo(p.take)
	}
	return st
}

// Start begins recording word. Any previous take is discarded.
func (p *Practice) Start(ctx context.Context, word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return ErrWordRequired
	}

	p.mu.Lock()
	switch p.state {
	case StateRecording:
		p.mu.Unlock()
		return capture.ErrSessionActive
	case StateStopping, StateSubmitting:
		p.mu.Unlock()
		return ErrBusy
	}
	p.state = StateRecording
	p.word = word
	p.take = nil
	p.result = nil
	p.lastErr = ""
	p.mu.Unlock()

	sess, err := p.recorder.Start(ctx)

	p.mu.Lock()
	if p.discarding {
		p.mu.Unlock()
		if err == nil {
			p.release(sess)
		}
		p.mu.Lock()
		p.discarding = false
		p.state = StateIdle
		p.mu.Unlock()
		return ErrNotRecording
	}
	defer p.mu.Unlock()

	if err != nil {
		p.state = StateIdle
		p.lastErr = err.Error()
		p.log.Warn().Err(err).Str("word", word).Msg("Could not start recording")
		return err
	}
	p.session = sess
	p.log.Info().Str("word", word).Str("session", sess.ID()).Msg("Practice take started")
	return nil
}

// Stop ends the recording and keeps the take for review.
// An empty recording returns the workflow to idle so the user can retry.
// A Stop that overlaps another Stop or Discard returns ErrBusy.
func (p *Practice) Stop() (*capture.Recording, error) {
	p.mu.Lock()
	if p.state == StateStopping {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	if p.state != StateRecording || p.session == nil {
		p.mu.Unlock()
		return nil, ErrNotRecording
	}
	sess := p.session
	p.session = nil
	p.state = StateStopping
	p.mu.Unlock()

	rec, err := sess.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateIdle
		p.lastErr = err.Error()
		return nil, err
	}
	p.state = StateReady
	p.take = rec
	return rec, nil
}

// Discard drops the current take, or aborts a recording in progress.
func (p *Practice) Discard() error {
	p.mu.Lock()
	if p.state == StateStopping || p.state == StateSubmitting {
		p.mu.Unlock()
		return ErrBusy
	}
	sess := p.session
	opening := p.state == StateRecording && sess == nil
	p.session = nil
	p.take = nil
	p.result = nil
	p.lastErr = ""
	switch {
	case opening:
		p.discarding = true
		p.state = StateStopping
	case sess != nil:
		p.state = StateStopping
	default:
		p.state = StateIdle
	}
	p.mu.Unlock()

	if sess != nil {
		p.release(sess)
		p.mu.Lock()
		p.state = StateIdle
		p.mu.Unlock()
	}
	p.log.Info().Msg("Take discarded")
	return nil
}

// release stops a session whose audio is not wanted.
func (p *Practice) release(sess *capture.Session) {
	if _, err := sess.Stop(); err != nil && !errors.Is(err, capture.ErrEmptyRecording) {
		p.log.Warn().Err(err).Msg("Discarded recording did not stop cleanly")
	}
}

// Take returns the captured take for playback.
func (p *Practice) Take() (*capture.Recording, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.take == nil {
		return nil, ErrNoTake
	}
	return p.take, nil
}

// Submit uploads the current take once. A failed upload keeps the take so
// it can be submitted again.
func (p *Practice) Submit(ctx context.Context) (*scoring.Result, error) {
	p.mu.Lock()
	switch {
	case p.state == StateSubmitting:
		p.mu.Unlock()
		return nil, ErrBusy
	case p.state == StateSubmitted:
		p.mu.Unlock()
		return nil, ErrAlreadySubmitted
	case p.state != StateReady || p.take == nil:
		p.mu.Unlock()
		return nil, ErrNoTake
	}
	p.state = StateSubmitting
	word, take := p.word, p.take
	p.mu.Unlock()

	res, err := p.submitter.Submit(ctx, word, take.NewReader(), take.Size(), take.Filename())

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateReady
		p.lastErr = err.Error()
		p.log.Warn().Err(err).Str("word", word).Str("take", take.ID()).Msg("Submission failed")
		return nil, fmt.Errorf("submit take: %w", err)
	}
	p.state = StateSubmitted
	p.result = res
	p.lastErr = ""
	return res, nil
}

func takeInfo(r *capture.Recording) *TakeInfo {
	return &TakeInfo{
		ID:         r.ID(),
		Bytes:      r.Size(),
		Samples:    r.SampleCount(),
		SampleRate: r.SampleRate(),
		Duration:   r.Duration().Seconds(),
	}
}
