package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	subapp "github.com/mitchellsimoens/SubAppDemo"
	"github.com/mitchellsimoens/SubAppDemo/feeders"
	"github.com/mitchellsimoens/SubAppDemo/hosts/fshost"
)

type runOptions struct {
	root         string
	head         string
	addr         string
	pollInterval time.Duration
	report       string
}

func newRunCommand() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Launch a sub-application and serve the admin API",
		Long: `Launch the sub-application described by a YAML or TOML manifest. Resources
are staged from --root into --head. The command serves the admin API until
the sub-application's main view is destroyed (POST /subapps/{id}/destroy) or
the process is interrupted.

Environment variables prefixed with SUBAPP_ override manifest values.`,
		Example: `  # Run with sources relative to the manifest
  subappctl run ./demo/subapp.yaml

  # Serve the admin API on another port
  subappctl run --addr 127.0.0.1:9090 ./demo/subapp.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubApp(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "directory relative resource sources are read from (default: the manifest's directory)")
	cmd.Flags().StringVar(&opts.head, "head", "", "directory resources are staged into (default: a temporary directory)")
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "admin API listen address")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", fshost.DefaultPollInterval, "how often missing executables are checked for")
	cmd.Flags().StringVar(&opts.report, "report", "@every 1m", "cron schedule for status log lines; empty disables")

	return cmd
}

func runSubApp(ctx context.Context, manifest string, opts runOptions) error {
	cfg, err := subapp.LoadConfig(manifest, feeders.NewEnvFeeder(envPrefix))
	if err != nil {
		return err
	}

	if opts.root == "" {
		opts.root = filepath.Dir(manifest)
	}
	if opts.head == "" {
		dir, err := os.MkdirTemp("", "subappctl-head-")
		if err != nil {
			return fmt.Errorf("create head directory: %w", err)
		}
		defer os.RemoveAll(dir)
		opts.head = dir
	}

	logger := newLogger(log.Logger)

	host, err := fshost.New(opts.root, opts.head, fshost.WithLogger(logger), fshost.WithPollInterval(opts.pollInterval))
	if err != nil {
		return err
	}
	defer host.Close()

	app, err := subapp.NewApplication(subapp.WithLogger(logger), subapp.WithHost(host))
	if err != nil {
		return err
	}
	if err := registerControllers(app, cfg.Controllers); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(subapp.NewPrometheusCollector(app, ""))

	listener, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.addr, err)
	}
	server := &http.Server{
		Handler:           newAdminRouter(app, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	log.Info().Str("addr", listener.Addr().String()).Msg("Admin API listening")

	view := subapp.NewView("main")
	destroyed := make(chan struct{})
	view.OnDestroy(func() { close(destroyed) })

	s, err := subapp.New(app, cfg, subapp.WithLaunch(func() (subapp.MainView, error) {
		return view, nil
	}))
	if err != nil {
		shutdown(server)
		return err
	}
	log.Info().Str("subapp", s.ID()).Str("state", s.State().String()).Msg("Sub-application started")

	reporter, err := startReporter(opts.report, &statusReporter{app: app, subApp: s, host: host, logger: log.Logger})
	if err != nil {
		view.Destroy()
		shutdown(server)
		return err
	}
	if reporter != nil {
		defer reporter.Stop()
	}

	select {
	case <-destroyed:
		log.Info().Str("subapp", s.ID()).Msg("Main view destroyed")
	case <-ctx.Done():
		log.Info().Msg("Interrupted, destroying main view")
		view.Destroy()
	case err := <-serveErr:
		view.Destroy()
		return fmt.Errorf("admin API: %w", err)
	}

	shutdown(server)
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin API: %w", err)
	}
	return nil
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Admin API shutdown")
	}
}
