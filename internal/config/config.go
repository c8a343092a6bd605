package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Practice API
	APIURL        string
	APIToken      string
	UploadTimeout time.Duration
	MaxUpload     int64 // bytes, matches the service's upload limit

	// Local server
	Port int

	// Capture
	SampleRate       int
	BlockSize        int // samples per capture callback
	EchoCancellation bool
	NoiseSuppression bool

	// Live monitor
	MonitorBitrate int // Opus bits per second

	LogLevel string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory, if present, is applied first and
// never overrides variables that are already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIURL:        envStr("SAYIT_API_URL", "http://localhost:8000"),
		APIToken:      envStr("SAYIT_API_TOKEN", ""),
		UploadTimeout: envDuration("SAYIT_UPLOAD_TIMEOUT", 30*time.Second),
		MaxUpload:     int64(envInt("SAYIT_MAX_UPLOAD", 10*1024*1024)),

		Port: envInt("SAYIT_PORT", 8080),

		SampleRate:       envInt("SAYIT_SAMPLE_RATE", 16000),
		BlockSize:        envInt("SAYIT_BLOCK_SIZE", 4096),
		EchoCancellation: envBool("SAYIT_ECHO_CANCELLATION", true),
		NoiseSuppression: envBool("SAYIT_NOISE_SUPPRESSION", true),

		MonitorBitrate: envInt("SAYIT_MONITOR_BITRATE", 24000),

		LogLevel: envStr("SAYIT_LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("45s") or plain seconds ("45").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
