package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/blehub/internal/host/goble"
	"github.com/srg/blehub/internal/hub"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hub",
	Long: `Run the hub until interrupted.

The hub connects to the backend websocket, waits for device lists and
discovery requests, and keeps the BLE radio connected to the registered
devices. Ctrl+C stops it.`,
	RunE: runHub,
}

func runHub(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := goble.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			logger.WithField("error", err).Warn("Failed to close host")
		}
	}()

	app, err := hub.New(h, cfg.Hub, logger)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"version": version,
		"backend": cfg.Backend.URL,
		"hub_id":  cfg.Hub.HubID,
	}).Info("Starting hub")

	err = app.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Received interrupt signal, shutting down...")
		return nil
	}
	return err
}
