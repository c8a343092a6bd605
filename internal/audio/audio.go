package audio

import "time"

const (
	SampleRate    = 16000
	Channels      = 1
	BitDepth      = 16
	BlockSize     = 4096                  // samples per capture callback
	HeaderSize    = 44                    // canonical RIFF/WAVE header
	FrameDuration = 20 * time.Millisecond // monitor frame length
	FrameSize     = 320                   // samples per 20ms frame at 16kHz
	FrameBytes    = FrameSize * 2         // bytes per frame (int16 = 2 bytes)
)

// Level is the loudness of one captured block.
type Level struct {
	Peak float64 `json:"peak"` // max |s|, 0..1
	RMS  float64 `json:"rms"`
	DBFS float64 `json:"dbfs"` // 20*log10(RMS), floored at MinDBFS
}

// MinDBFS is reported for silent blocks.
const MinDBFS = -96.0
