package config

import (
	"os"
	"testing"
	"time"
)

var envVars = []string{
	"SAYIT_API_URL", "SAYIT_API_TOKEN", "SAYIT_UPLOAD_TIMEOUT", "SAYIT_MAX_UPLOAD",
	"SAYIT_PORT", "SAYIT_SAMPLE_RATE", "SAYIT_BLOCK_SIZE",
	"SAYIT_ECHO_CANCELLATION", "SAYIT_NOISE_SUPPRESSION",
	"SAYIT_MONITOR_BITRATE", "SAYIT_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Keep a developer's .env out of the test.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("APIURL = %q, want default", cfg.APIURL)
	}
	if cfg.APIToken != "" {
		t.Errorf("APIToken = %q, want empty default", cfg.APIToken)
	}
	if cfg.UploadTimeout != 30*time.Second {
		t.Errorf("UploadTimeout = %v, want 30s", cfg.UploadTimeout)
	}
	if cfg.MaxUpload != 10*1024*1024 {
		t.Errorf("MaxUpload = %d, want 10MiB", cfg.MaxUpload)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.SampleRate)
	}
	if cfg.BlockSize != 4096 {
		t.Errorf("BlockSize = %d, want 4096", cfg.BlockSize)
	}
	if !cfg.EchoCancellation || !cfg.NoiseSuppression {
		t.Errorf("voice processing hints = %v/%v, want true/true", cfg.EchoCancellation, cfg.NoiseSuppression)
	}
	if cfg.MonitorBitrate != 24000 {
		t.Errorf("MonitorBitrate = %d, want 24000", cfg.MonitorBitrate)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want 'info'", cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SAYIT_API_URL", "https://practice.example.com")
	t.Setenv("SAYIT_API_TOKEN", "token-123")
	t.Setenv("SAYIT_UPLOAD_TIMEOUT", "45s")
	t.Setenv("SAYIT_MAX_UPLOAD", "1048576")
	t.Setenv("SAYIT_PORT", "3000")
	t.Setenv("SAYIT_SAMPLE_RATE", "48000")
	t.Setenv("SAYIT_BLOCK_SIZE", "2048")
	t.Setenv("SAYIT_ECHO_CANCELLATION", "false")
	t.Setenv("SAYIT_NOISE_SUPPRESSION", "0")
	t.Setenv("SAYIT_MONITOR_BITRATE", "32000")
	t.Setenv("SAYIT_LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.APIURL != "https://practice.example.com" {
		t.Errorf("APIURL = %q, want env override", cfg.APIURL)
	}
	if cfg.APIToken != "token-123" {
		t.Errorf("APIToken = %q, want env override", cfg.APIToken)
	}
	if cfg.UploadTimeout != 45*time.Second {
		t.Errorf("UploadTimeout = %v, want 45s", cfg.UploadTimeout)
	}
	if cfg.MaxUpload != 1048576 {
		t.Errorf("MaxUpload = %d, want 1048576", cfg.MaxUpload)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.BlockSize != 2048 {
		t.Errorf("BlockSize = %d, want 2048", cfg.BlockSize)
	}
	if cfg.EchoCancellation || cfg.NoiseSuppression {
		t.Errorf("voice processing hints = %v/%v, want false/false", cfg.EchoCancellation, cfg.NoiseSuppression)
	}
	if cfg.MonitorBitrate != 32000 {
		t.Errorf("MonitorBitrate = %d, want 32000", cfg.MonitorBitrate)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want 'debug'", cfg.LogLevel)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SAYIT_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 8080", cfg.Port)
	}
}

func TestEnvDurationPlainSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("SAYIT_UPLOAD_TIMEOUT", "12")
	if got := Load().UploadTimeout; got != 12*time.Second {
		t.Errorf("UploadTimeout = %v, want 12s", got)
	}
	t.Setenv("SAYIT_UPLOAD_TIMEOUT", "soon")
	if got := Load().UploadTimeout; got != 30*time.Second {
		t.Errorf("invalid duration should fallback: got %v", got)
	}
}

func TestEnvBoolInvalidFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SAYIT_ECHO_CANCELLATION", "maybe")
	if !Load().EchoCancellation {
		t.Error("invalid bool env should fallback to true")
	}
}

func TestDotEnvFile(t *testing.T) {
	clearEnv(t)
	if err := os.WriteFile(".env", []byte("SAYIT_API_URL=http://from-dotenv:9000\nSAYIT_PORT=9100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SAYIT_PORT", "9200")

	cfg := Load()
	if cfg.APIURL != "http://from-dotenv:9000" {
		t.Errorf("APIURL = %q, want value from .env", cfg.APIURL)
	}
	if cfg.Port != 9200 {
		t.Errorf("Port = %d, want 9200 (environment wins over .env)", cfg.Port)
	}
	os.Unsetenv("SAYIT_API_URL")
}
