package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/satindergrewal/sayit/internal/capture"
	"github.com/satindergrewal/sayit/internal/config"
	"github.com/satindergrewal/sayit/internal/scoring"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version  = "0.1.0"
	logLevel string
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:           "sayit",
	Short:         "Record and score pronunciation practice",
	Long:          `sayit records a spoken word from the microphone as 16kHz mono WAV and submits it for pronunciation scoring.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return initLogging(cfg.LogLevel)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sayit v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default from SAYIT_LOG_LEVEL)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(wordCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("sayit failed")
		os.Exit(1)
	}
}

// initLogging writes human-readable logs to an interactive terminal and
// JSON otherwise.
func initLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().
			Str("version", version).
			Timestamp().Logger()
	}
	return nil
}

func newRecorder() *capture.Recorder {
	device := capture.NewPortAudioDevice(log.Logger)
	return capture.NewRecorder(device, capture.Constraints{
		SampleRate:       cfg.SampleRate,
		Channels:         1,
		BlockSize:        cfg.BlockSize,
		EchoCancellation: cfg.EchoCancellation,
		NoiseSuppression: cfg.NoiseSuppression,
	}, log.Logger)
}

func newClient() *scoring.Client {
	return scoring.NewClient(cfg.APIURL, cfg.APIToken, cfg.UploadTimeout, cfg.MaxUpload, log.Logger)
}

func printResult(res *scoring.Result) {
	fmt.Printf("Recording #%d: %s\n", res.RecordingID, res.Message)
	fmt.Printf("  pronunciation %.1f  accuracy %.1f  fluency %.1f  completeness %.1f\n",
		res.Scores.Pronunciation, res.Scores.Accuracy, res.Scores.Fluency, res.Scores.Completeness)
	if res.Feedback.Grade != "" || res.Feedback.Text != "" {
		fmt.Printf("  grade %s: %s\n", res.Feedback.Grade, res.Feedback.Text)
	}
}
