package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/satindergrewal/sayit/internal/api"
	"github.com/satindergrewal/sayit/internal/practice"
	"github.com/satindergrewal/sayit/internal/stream"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// monitorQueue is how many captured blocks may wait for the broadcaster
// before the recorder's tap starts dropping them.
const monitorQueue = 64

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the practice workflow over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := newClient()
	recorder := newRecorder()

	// Broadcaster: fan-out captured blocks to monitor peers and level meters
	broadcaster := stream.NewBroadcaster()
	tap, monitor := stream.Tap(monitorQueue)
	recorder.SetTap(tap)

	p := practice.New(recorder, client, log.Logger)
	levels := stream.NewLevelHandler(broadcaster, log.Logger)
	monitorHandlers := api.Handlers{Levels: levels}

	// The Opus monitor only runs at rates the encoder accepts; capture and
	// levels work at any rate.
	webrtcHandler, err := stream.NewWebRTCHandler(broadcaster, cfg.SampleRate, cfg.MonitorBitrate, log.Logger)
	if err != nil {
		log.Warn().Err(err).Int("sample_rate", cfg.SampleRate).Msg("Live monitor disabled")
	} else {
		monitorHandlers.Offer = webrtcHandler
	}

	mux := api.NewMux(p, client, monitorHandlers, log.Logger)
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		broadcaster.Run(gctx, monitor)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", addr).Str("api", cfg.APIURL).Msg("sayit serving")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		healthCtx, healthCancel := context.WithTimeout(gctx, 30*time.Second)
		defer healthCancel()
		if err := client.WaitForHealthy(healthCtx, 2*time.Second); err != nil && gctx.Err() == nil {
			log.Warn().Err(err).Msg("Practice API not reachable, submissions will fail until it is")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		p.Discard()
		if webrtcHandler != nil {
			webrtcHandler.Close()
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
