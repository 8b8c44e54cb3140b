package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/greywolf/internal/events"
	"github.com/cwbudde/greywolf/internal/server"
	"github.com/cwbudde/greywolf/internal/store"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Serves optimization jobs over HTTP. Jobs checkpoint into the store
directory and, when events.nats_url is configured, publish lifecycle events
to NATS. Prometheus metrics are exposed on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (0 = config default)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	conf := settings()
	port := conf.Server.Port
	if servePort > 0 {
		port = servePort
	}
	log := slog.Default()

	checkpointStore, err := store.NewFSStore(conf.Store.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if conf.Events.NATSURL != "" {
		nats, err := events.NewNATSPublisher(conf.Events.NATSURL, conf.Events.Name, log)
		if err != nil {
			return err
		}
		publisher = nats
		log.Info("Publishing job events", "nats_url", conf.Events.NATSURL)
	}
	defer publisher.Close()

	srv := server.NewServer(fmt.Sprintf(":%d", port), server.Options{
		Logger:            log,
		Store:             checkpointStore,
		TraceDir:          checkpointStore.BaseDir(),
		Publisher:         publisher,
		Defaults:          conf.Optimizer,
		MaxConcurrentJobs: conf.Server.MaxConcurrentJobs,
	})

	ctx, stop := interruptContext(cmd)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
