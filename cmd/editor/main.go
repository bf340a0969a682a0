// Command editor runs the authoring side of the mailbox. Actions are read from stdin,
// one per line; see editor.Exec for the syntax. "show" prints the document.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/srediag/editor-mailbox/internal/config"
	"github.com/srediag/editor-mailbox/internal/editor"
	"github.com/srediag/editor-mailbox/internal/host"
	"github.com/srediag/editor-mailbox/internal/logging"
	"github.com/srediag/editor-mailbox/internal/telemetry"
	"github.com/srediag/editor-mailbox/pkg/mailbox"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "editor:", err)
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
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "mailbox-editor",
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
	})
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	r := host.New(host.Options{Config: cfg, Role: mailbox.RoleInitiator, Name: "editor"})
	ed := editor.New(r, logging.New("editor", os.Stdout))
	r.SetHandler(ed)
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop(context.Background())

	go prompt(ctx, os.Stdin, os.Stdout, ed, stop)
	return r.Run(ctx)
}

func prompt(ctx context.Context, in io.Reader, out io.Writer, ed *editor.Editor, done func()) {
	defer done()
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), mailbox.LargeCapacity)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := sc.Text()
		switch strings.TrimSpace(line) {
		case "quit", "exit":
			return
		case "show":
			showDocument(out, ed.Snapshot())
			continue
		}
		if err := ed.Exec(line); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func showDocument(w io.Writer, d editor.Document) {
	fmt.Fprintf(w, "path: %s\nworld offset: %s\nfrag color: %s\nuniform types: %s\ntexture descs: %s\n",
		d.Path, d.WorldOffsetExpr, d.FragColorExpr, d.UniformTypes, d.TextureDescs)
	for name, v := range d.Uniforms {
		fmt.Fprintf(w, "uniform %s = %v\n", name, v)
	}
	for _, t := range d.Textures {
		fmt.Fprintf(w, "texture %s\n", t)
	}
}
