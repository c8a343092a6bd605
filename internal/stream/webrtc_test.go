package stream

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/satindergrewal/sayit/internal/audio"
)

func newTestHandler(t *testing.T, b *Broadcaster, bitrate int) *WebRTCHandler {
	t.Helper()
	h, err := NewWebRTCHandler(b, audio.SampleRate, bitrate, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWebRTCHandler: %v", err)
	}
	return h
}

func TestWebRTCHandlerPreflight(t *testing.T) {
	h := newTestHandler(t, NewBroadcaster(), 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/offer", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Errorf("Allow-Methods = %q, want POST", got)
	}
}

func TestWebRTCHandlerRequiresPost(t *testing.T) {
	h := newTestHandler(t, NewBroadcaster(), 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/offer", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestWebRTCHandlerInvalidOffer(t *testing.T) {
	b := NewBroadcaster()
	h := newTestHandler(t, b, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/offer", strings.NewReader("not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if h.PeerCount() != 0 || b.ListenerCount() != 0 {
		t.Error("invalid offer registered a peer")
	}
}

func TestWebRTCHandlerDefaultBitrate(t *testing.T) {
	h := newTestHandler(t, NewBroadcaster(), -1)
	if h.bitrate != DefaultBitrate {
		t.Errorf("bitrate = %d, want %d", h.bitrate, DefaultBitrate)
	}
}

func TestWebRTCHandlerFrameFollowsRate(t *testing.T) {
	cases := map[int]int{8000: 160, 16000: 320, 48000: 960}
	for rate, frame := range cases {
		h, err := NewWebRTCHandler(NewBroadcaster(), rate, 0, zerolog.Nop())
		if err != nil {
			t.Fatalf("%d Hz: %v", rate, err)
		}
		if h.sampleRate != rate || h.frameSize != frame {
			t.Errorf("%d Hz: encoder %d Hz, frame %d; want frame %d", rate, h.sampleRate, h.frameSize, frame)
		}
	}
}

func TestWebRTCHandlerRejectsUnsupportedRate(t *testing.T) {
	for _, rate := range []int{0, 22050, 44100} {
		if _, err := NewWebRTCHandler(NewBroadcaster(), rate, 0, zerolog.Nop()); !errors.Is(err, ErrMonitorRate) {
			t.Errorf("%d Hz: err = %v, want ErrMonitorRate", rate, err)
		}
	}
}
