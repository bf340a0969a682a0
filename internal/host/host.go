// Package host owns the process-wide mailbox resources: it maps the backing file,
// drives the endpoint from a tick loop and serves the optional admin endpoints.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srediag/editor-mailbox/adapter"
	"github.com/srediag/editor-mailbox/api"
	"github.com/srediag/editor-mailbox/internal/config"
	"github.com/srediag/editor-mailbox/internal/logging"
	"github.com/srediag/editor-mailbox/pkg/mailbox"
	"github.com/srediag/editor-mailbox/pkg/shm"
)

// ErrNotStarted is returned by operations that need a started runner.
var ErrNotStarted = errors.New("host: runner not started")

// Options configures a Runner.
type Options struct {
	Config  config.Config
	Role    mailbox.Role
	Name    string
	Handler api.Handler
	// Registry receives the mailbox collector and health metrics. Nil creates one.
	Registry  *prometheus.Registry
	LogOutput io.Writer
}

// Runner is the explicit init/teardown around one mailbox endpoint.
type Runner struct {
	opts   Options
	logger *logging.Logger

	mu       sync.Mutex
	region   *shm.Region
	endpoint *mailbox.Endpoint
	admin    *http.Server
	adminLn  net.Listener
	stopped  bool
}

var _ api.Lifecycle = (*Runner)(nil)

// New returns a runner. Nothing is opened until Start.
func New(opts Options) *Runner {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stdout
	}
	if opts.Name == "" {
		opts.Name = "mailbox"
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	return &Runner{opts: opts, logger: logging.New(opts.Name, opts.LogOutput)}
}

// SetHandler replaces the handler given in Options. It has no effect after Start, so
// a handler that sends through the runner itself can be wired before starting.
func (r *Runner) SetHandler(h api.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endpoint == nil {
		r.opts.Handler = h
	}
}

// Start maps the backing file, retrying while the file cannot be opened, builds the
// endpoint and starts the admin server when an address is configured.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endpoint != nil {
		return nil
	}
	cfg := r.opts.Config

	region, err := r.openRegion(ctx)
	if err != nil {
		return err
	}
	mc := cfg.Mailbox(r.opts.Role, r.opts.Name)
	mc.LogOutput = r.opts.LogOutput
	endpoint, err := mailbox.NewEndpoint(region, mc, r.opts.Handler)
	if err != nil {
		_ = region.Close()
		return fmt.Errorf("host: endpoint: %w", err)
	}
	if cfg.AdminAddr != "" {
		if err := r.startAdmin(cfg.AdminAddr, endpoint); err != nil {
			_ = endpoint.Close()
			_ = region.Close()
			return err
		}
	}
	r.region, r.endpoint = region, endpoint
	r.logger.Infof("mailbox %s ready as %s, capacity %d", cfg.Path, r.opts.Role, cfg.Capacity)
	return nil
}

func (r *Runner) openRegion(ctx context.Context) (*shm.Region, error) {
	cfg := r.opts.Config
	var b backoff.BackOff = backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 0)
	if cfg.OpenTimeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 50 * time.Millisecond
		eb.MaxInterval = time.Second
		eb.MaxElapsedTime = cfg.OpenTimeout
		b = eb
	}
	var region *shm.Region
	op := func() error {
		var err error
		region, err = shm.Open(ctx, shm.OpenOptions{
			Path:           cfg.Path,
			Size:           cfg.Capacity,
			SkipSpaceCheck: cfg.SkipSpaceCheck,
		})
		if errors.Is(err, shm.ErrInvalidSize) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		r.logger.Warnf("open %s failed, retrying in %s: %v", cfg.Path, next, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("host: open region: %w", err)
	}
	return region, nil
}

func (r *Runner) startAdmin(addr string, endpoint *mailbox.Endpoint) error {
	reg := r.opts.Registry
	if err := reg.Register(adapter.NewCollector(r.opts.Name, endpoint)); err != nil {
		return fmt.Errorf("host: register collector: %w", err)
	}
	health := adapter.NewHealthHandler(reg, endpoint, r.opts.Config.StaleAfter)
	mux := http.NewServeMux()
	mux.Handle("/live", health)
	mux.Handle("/ready", health)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("host: admin listen: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Errorf("admin server: %v", err)
		}
	}()
	r.admin, r.adminLn = srv, ln
	r.logger.Infof("admin endpoints on http://%s", ln.Addr())
	return nil
}

// Run polls the endpoint every tick until ctx is done or the mailbox fails. Handlers
// that implement api.Ticker are ticked after each poll.
func (r *Runner) Run(ctx context.Context) error {
	endpoint := r.Endpoint()
	if endpoint == nil {
		return ErrNotStarted
	}
	r.mu.Lock()
	ticker, _ := r.opts.Handler.(api.Ticker)
	r.mu.Unlock()
	t := time.NewTicker(r.opts.Config.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		res, err := endpoint.Poll(ctx)
		if err != nil {
			if errors.Is(err, mailbox.ErrClosed) {
				return nil
			}
			return err
		}
		if res.Received != nil {
			r.logger.Debugf("received %s", res.Received.Name())
		}
		if ticker != nil {
			if err := ticker.Tick(ctx); err != nil {
				r.logger.Warnf("tick: %v", err)
			}
		}
	}
}

// Send stages cmd on the endpoint.
func (r *Runner) Send(cmd api.Command) error {
	endpoint := r.Endpoint()
	if endpoint == nil {
		return ErrNotStarted
	}
	return endpoint.Send(cmd)
}

// Endpoint returns the endpoint, nil before Start.
func (r *Runner) Endpoint() *mailbox.Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpoint
}

// AdminAddr returns the admin listener address, empty if none is running.
func (r *Runner) AdminAddr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adminLn == nil {
		return ""
	}
	return r.adminLn.Addr().String()
}

// Stop closes the endpoint, shuts the admin server down and unmaps the region.
// The backing file is left in place for the peer.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.endpoint == nil {
		return nil
	}
	r.stopped = true
	var errs []error
	errs = append(errs, r.endpoint.Close())
	if r.admin != nil {
		errs = append(errs, r.admin.Shutdown(ctx))
	}
	errs = append(errs, r.region.Close())
	r.logger.Infof("mailbox %s closed", r.region.Path())
	return errors.Join(errs...)
}
