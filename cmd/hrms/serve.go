package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/hrms/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing the requirement lifecycle and candidate pipeline, replicating writes in the background.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(30 * time.Second)

	srv, err := server.New(server.Config{Addr: cfg.ListenAddr, JWT: a.jwt}, server.Deps{
		Requirements: a.requirements,
		Pipeline:     a.pipeline,
		Templates:    a.templates,
		Reports:      a.reports,
		Permissions:  a.perms,
		Links:        a.links,
		Outbox:       a.outbox,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.outbox.Run(workerCtx) }()

	serveErr := srv.Run(ctx)

	cancelWorkers()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[replication] worker stopped: %v", err)
	}
	return serveErr
}
