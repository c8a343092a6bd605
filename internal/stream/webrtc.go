package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
	"github.com/satindergrewal/sayit/internal/audio"
	"gopkg.in/hraban/opus.v2"
)

// DefaultBitrate is the Opus bitrate used for the monitor when none is set.
const DefaultBitrate = 24000

// ErrMonitorRate is returned for capture rates the Opus encoder cannot take.
var ErrMonitorRate = errors.New("stream: sample rate not supported by opus")

// opusRates are the input rates libopus accepts.
var opusRates = map[int]bool{8000: true, 12000: true, 16000: true, 24000: true, 48000: true}

// WebRTCHandler serves WebRTC SDP negotiation for a low-latency Opus
// monitor of the microphone.
type WebRTCHandler struct {
	broadcaster *Broadcaster
	sampleRate  int
	frameSize   int // samples per 20ms frame at sampleRate
	bitrate     int
	log         zerolog.Logger

	mu    sync.Mutex
	peers map[*webrtc.PeerConnection]*Listener
}

// NewWebRTCHandler creates a WebRTC monitor handler for blocks captured at
// sampleRate.
func NewWebRTCHandler(b *Broadcaster, sampleRate, bitrate int, logger zerolog.Logger) (*WebRTCHandler, error) {
	if !opusRates[sampleRate] {
		return nil, fmt.Errorf("%w: %d Hz", ErrMonitorRate, sampleRate)
	}
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	return &WebRTCHandler{
		broadcaster: b,
		sampleRate:  sampleRate,
		frameSize:   sampleRate * int(audio.FrameDuration/time.Millisecond) / 1000,
		bitrate:     bitrate,
		peers:       make(map[*webrtc.PeerConnection]*Listener),
		log:         logger.With().Str("component", "webrtc").Logger(),
	}, nil
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio",
		"sayit-monitor",
	)
	if err != nil {
		pc.Close()
		http.Error(w, "create audio track failed", http.StatusInternalServerError)
		return
	}

	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		http.Error(w, "add track failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}

	select {
	case <-gatherComplete:
	case <-r.Context().Done():
		pc.Close()
		return
	}

	listener := h.broadcaster.Subscribe()
	h.mu.Lock()
	h.peers[pc] = listener
	h.mu.Unlock()

	h.log.Info().Int("peers", h.PeerCount()).Msg("Monitor peer connected")

	go h.streamToPeer(listener, track)

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed ||
			s == webrtc.PeerConnectionStateDisconnected {
			if h.removePeer(pc) {
				pc.Close()
				h.log.Info().Int("peers", h.PeerCount()).Msg("Monitor peer disconnected")
			}
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(pc.LocalDescription())
}

func (h *WebRTCHandler) streamToPeer(listener *Listener, track *webrtc.TrackLocalStaticSample) {
	defer func() {
		h.broadcaster.Unsubscribe(listener)
		h.log.Debug().Uint64("dropped", listener.Dropped()).Msg("Monitor stream ended")
	}()

	enc, err := opus.NewEncoder(h.sampleRate, audio.Channels, opus.AppVoIP)
	if err != nil {
		h.log.Error().Err(err).Msg("Opus encoder error")
		return
	}
	if err := enc.SetBitrate(h.bitrate); err != nil {
		h.log.Warn().Err(err).Int("bitrate", h.bitrate).Msg("Opus bitrate not applied")
	}

	framer := audio.NewFramer(h.frameSize)
	opusBuf := make([]byte, 4000)

	for {
		select {
		case <-listener.Done():
			return
		case block, ok := <-listener.C:
			if !ok {
				return
			}
			for _, frame := range framer.Push(block) {
				n, err := enc.EncodeFloat32(frame, opusBuf)
				if err != nil {
					h.log.Debug().Err(err).Msg("Opus encode error")
					continue
				}
				if err := track.WriteSample(media.Sample{
					Data:     opusBuf[:n],
					Duration: audio.FrameDuration,
				}); err != nil {
					return
				}
			}
		}
	}
}

// removePeer unsubscribes pc's listener and reports whether pc was still
// registered.
func (h *WebRTCHandler) removePeer(pc *webrtc.PeerConnection) bool {
	h.mu.Lock()
	listener, ok := h.peers[pc]
	delete(h.peers, pc)
	h.mu.Unlock()
	if ok {
		h.broadcaster.Unsubscribe(listener)
	}
	return ok
}

// Close hangs up every monitor peer.
func (h *WebRTCHandler) Close() {
	h.mu.Lock()
	peers := make([]*webrtc.PeerConnection, 0, len(h.peers))
	for pc := range h.peers {
		peers = append(peers, pc)
	}
	h.mu.Unlock()
	for _, pc := range peers {
		h.removePeer(pc)
		pc.Close()
	}
}
