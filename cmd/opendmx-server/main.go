// Package main is the entry point for the headless opendmx daemon
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/james-see/opendmx/pkg/config"
	"github.com/james-see/opendmx/pkg/serialport"
	"github.com/james-see/opendmx/pkg/session"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	device := flag.String("device", "", "Serial device path (skips discovery)")
	match := flag.String("match", serialport.DefaultMatch, "Substring identifying the adapter")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *addr, *device, *match); err != nil {
		logger.Error("opendmx server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, device, match string) error {
	if device == "" {
		var err error
		if device, err = serialport.Discover(serialport.SystemPorts, match); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := session.Start(ctx, session.Options{
		Open:   serialport.Opener(device),
		Device: device,
		Addr:   addr,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	logger.Info("opendmx server started",
		"device", device,
		"addr", addr,
		"swagger", fmt.Sprintf("http://localhost%s/swagger/index.html", addr))

	return s.Run(ctx, nil)
}
