package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/satindergrewal/sayit/internal/capture"
	"github.com/satindergrewal/sayit/internal/playback"
	"github.com/spf13/cobra"
)

var (
	recordWord   string
	recordOut    string
	recordPlay   bool
	recordSubmit bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one take from the microphone",
	Long:  `Record a take until Enter or Ctrl-C, save it as WAV, and optionally play it back and submit it for scoring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecord(cmd.Context())
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordWord, "word", "w", "", "word being practised (required)")
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "output WAV file (default recording-<id>.wav)")
	recordCmd.Flags().BoolVar(&recordPlay, "play", false, "play the take back after recording")
	recordCmd.Flags().BoolVar(&recordSubmit, "submit", false, "submit the take for scoring")
	recordCmd.MarkFlagRequired("word")
}

func runRecord(ctx context.Context) error {
	recorder := newRecorder()

	sess, err := recorder.Start(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Recording %q. Press Enter or Ctrl-C to stop.\n", recordWord)
	waitForStop(ctx)

	rec, err := sess.Stop()
	if errors.Is(err, capture.ErrEmptyRecording) {
		return fmt.Errorf("nothing was captured, check the input device: %w", err)
	}
	if err != nil {
		return err
	}

	out := recordOut
	if out == "" {
		out = rec.Filename()
	}
	if err := os.WriteFile(out, rec.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save take: %w", err)
	}
	log.Info().
		Str("file", out).
		Int64("bytes", rec.Size()).
		Dur("duration", rec.Duration()).
		Msg("Take saved")

	if recordPlay {
		if err := playback.Play(ctx, rec.NewReader()); err != nil {
			log.Warn().Err(err).Msg("Playback failed")
		}
	}

	if recordSubmit {
		res, err := newClient().Submit(ctx, recordWord, rec.NewReader(), rec.Size(), rec.Filename())
		if err != nil {
			return fmt.Errorf("take saved to %s but not submitted: %w", out, err)
		}
		printResult(res)
	}
	return nil
}

// waitForStop returns on Enter, SIGINT/SIGTERM or ctx cancellation. The
// signal handler is removed afterwards so a second Ctrl-C exits normally.
func waitForStop(ctx context.Context) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()

	select {
	case <-enter:
	case <-sig:
		fmt.Fprintln(os.Stderr)
	case <-ctx.Done():
	}
}
