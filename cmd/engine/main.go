// Command engine runs the simulation side of the mailbox and applies commands sent by
// the editor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/srediag/editor-mailbox/internal/config"
	"github.com/srediag/editor-mailbox/internal/engine"
	"github.com/srediag/editor-mailbox/internal/host"
	"github.com/srediag/editor-mailbox/internal/logging"
	"github.com/srediag/editor-mailbox/internal/telemetry"
	"github.com/srediag/editor-mailbox/pkg/mailbox"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flag.StringVar(&cfg.Path, "path", cfg.Path, "mailbox backing file")
	flag.StringVar(&cfg.AdminAddr, "admin", cfg.AdminAddr, "admin listen address, empty to disable")
	assets := flag.String("assets", "", "directory relative asset paths are resolved against")
	workers := flag.Int("workers", 4, "concurrent texture loads")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "mailbox-engine",
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
	})
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	logger := logging.New("engine", os.Stdout)
	eng, err := engine.New(engine.Options{BaseDir: *assets, Workers: *workers, Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close(5 * time.Second)

	r := host.New(host.Options{Config: cfg, Role: mailbox.RoleResponder, Name: "engine", Handler: eng})
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop(context.Background())

	go reportStats(ctx, r.Endpoint(), logger)
	return r.Run(ctx)
}

// reportStats logs turn throughput once per second.
func reportStats(ctx context.Context, e *mailbox.Endpoint, logger *logging.Logger) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	last := e.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		cur := e.Stats()
		logger.Infof("turns/s:%d received:%d sent:%d dropped:%d",
			cur.Claimed-last.Claimed, cur.Received, cur.Sent,
			cur.DecodeErrors+cur.EncodeErrors+cur.HandlerErrors+cur.Superseded)
		last = cur
	}
}
