package audio

import (
	"encoding/binary"
	"math"
)

// Quantize converts one float sample to signed 16-bit PCM.
// Input is clamped to [-1, 1]; negative values scale by 32768 and
// non-negative by 32767, so -1 maps to -32768 and 1 to 32767. NaN maps to 0.
func Quantize(s float32) int16 {
	v := float64(s)
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	if v < 0 {
		return int16(math.Round(v * 32768))
	}
	return int16(math.Round(v * 32767))
}

// Dequantize is the inverse of Quantize within one quantization step.
func Dequantize(s int16) float32 {
	if s < 0 {
		return float32(float64(s) / 32768)
	}
	return float32(float64(s) / 32767)
}

// QuantizeAll converts a float block to int16 samples.
func QuantizeAll(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = Quantize(s)
	}
	return out
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// Measure returns the peak and RMS level of a block.
func Measure(block []float32) Level {
	if len(block) == 0 {
		return Level{DBFS: MinDBFS}
	}

	var peak, sum float64
	for _, s := range block {
		v := math.Abs(float64(s))
		if math.IsNaN(v) {
			v = 0
		} else if v > 1 {
			v = 1
		}
		if v > peak {
			peak = v
		}
		sum += v * v
	}

	rms := math.Sqrt(sum / float64(len(block)))
	db := MinDBFS
	if rms > 0 {
		db = math.Max(20*math.Log10(rms), MinDBFS)
	}
	return Level{Peak: peak, RMS: rms, DBFS: db}
}
