// Package api exposes the practice workflow over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/satindergrewal/sayit/internal/capture"
	"github.com/satindergrewal/sayit/internal/practice"
	"github.com/satindergrewal/sayit/internal/scoring"
)

// Service is the read side of the practice API: word data and the
// student's submitted recordings.
type Service interface {
	Word(ctx context.Context, word string) (*scoring.Word, error)
	Recordings(ctx context.Context, status string) ([]scoring.SubmittedRecording, error)
	Progress(ctx context.Context, period string) (*scoring.Progress, error)
}

// Handlers are the optional live monitor endpoints. Nil handlers are not
// mounted.
type Handlers struct {
	Offer  http.Handler // POST /offer
	Levels http.Handler // GET /ws/levels
}

var errNoService = errors.New("practice service not configured")

type server struct {
	practice *practice.Practice
	service  Service
	log      zerolog.Logger
}

// NewMux builds the HTTP routes for the practice workflow.
func NewMux(p *practice.Practice, service Service, monitor Handlers, logger zerolog.Logger) *http.ServeMux {
	s := &server{
		practice: p,
		service:  service,
		log:      logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.status)
	mux.HandleFunc("/api/record/start", s.start)
	mux.HandleFunc("/api/record/stop", s.stop)
	mux.HandleFunc("/api/take/discard", s.discard)
	mux.HandleFunc("/api/take", s.take)
	mux.HandleFunc("/api/submit", s.submit)
	mux.HandleFunc("GET /api/words/{word}", s.word)
	mux.HandleFunc("GET /api/recordings", s.recordings)
	mux.HandleFunc("GET /api/progress", s.progress)

	if monitor.Offer != nil {
		mux.Handle("/offer", monitor.Offer)
	}
	if monitor.Levels != nil {
		mux.Handle("/ws/levels", monitor.Levels)
	}
	return mux
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.practice.Status())
}

func (s *server) start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Word string `json:"word"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request"))
		return
	}
	// The session outlives this request.
	if err := s.practice.Start(context.WithoutCancel(r.Context()), req.Word); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.practice.Status())
}

func (s *server) stop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.practice.Stop(); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.practice.Status())
}

func (s *server) discard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if err := s.practice.Discard(); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.practice.Status())
}

func (s *server) take(w http.ResponseWriter, r *http.Request) {
	rec, err := s.practice.Take()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, rec.Filename(), rec.CapturedAt(), rec.NewReader())
}

func (s *server) submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	res, err := s.practice.Submit(r.Context())
	if err != nil {
		s.failUpload(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) word(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		writeError(w, http.StatusNotFound, errNoService)
		return
	}
	entry, err := s.service.Word(r.Context(), r.PathValue("word"))
	if err != nil {
		var apiErr *scoring.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// recordings lists submitted takes with their scores and teacher feedback.
// ?status= is "pending" or "reviewed"; omitted lists all.
func (s *server) recordings(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		writeError(w, http.StatusNotFound, errNoService)
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" && status != scoring.StatusPending && status != scoring.StatusReviewed {
		writeError(w, http.StatusBadRequest, errors.New("status must be pending or reviewed"))
		return
	}
	recs, err := s.service.Recordings(r.Context(), status)
	if err != nil {
		s.failUpload(w, err)
		return
	}
	if recs == nil {
		recs = []scoring.SubmittedRecording{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *server) progress(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		writeError(w, http.StatusNotFound, errNoService)
		return
	}
	p, err := s.service.Progress(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		s.failUpload(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) fail(w http.ResponseWriter, err error) {
	s.respondError(w, StatusFor(err), err)
}

// failUpload reports failures reaching the scoring service as 502.
func (s *server) failUpload(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		code = http.StatusBadGateway
	}
	s.respondError(w, code, err)
}

func (s *server) respondError(w http.ResponseWriter, code int, err error) {
	if code >= 500 {
		s.log.Error().Err(err).Int("status", code).Msg("Request failed")
	} else {
		s.log.Debug().Err(err).Int("status", code).Msg("Request rejected")
	}
	writeError(w, code, err)
}

// StatusFor maps workflow errors to HTTP status codes.
func StatusFor(err error) int {
	var apiErr *scoring.APIError
	switch {
	case errors.Is(err, capture.ErrDeviceAccess):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrEmptyRecording):
		return http.StatusUnprocessableEntity
	case errors.Is(err, practice.ErrWordRequired):
		return http.StatusBadRequest
	case errors.Is(err, scoring.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, capture.ErrSessionActive),
		errors.Is(err, capture.ErrSessionClosed),
		errors.Is(err, practice.ErrNotRecording),
		errors.Is(err, practice.ErrNoTake),
		errors.Is(err, practice.ErrAlreadySubmitted),
		errors.Is(err, practice.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"ok": false, "error": err.Error()})
}
