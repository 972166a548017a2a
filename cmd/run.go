package cmd

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/sessionlink/cli"
	"github.com/grovetools/sessionlink/config"
	"github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/pkg/aggregator"
	"github.com/grovetools/sessionlink/pkg/bridge"
	"github.com/grovetools/sessionlink/pkg/extract"
	"github.com/grovetools/sessionlink/pkg/metrics"
	"github.com/grovetools/sessionlink/pkg/session"
	"github.com/grovetools/sessionlink/pkg/source"
	"github.com/grovetools/sessionlink/schema"
	"github.com/grovetools/sessionlink/util/pathutil"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const stopTimeout = 5 * time.Second

func NewRunCmd() *cobra.Command {
	var (
		pageFile    string
		pageURL     string
		eventsFile  string
		fromStart   bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a session and stream page changes to the host",
		Long: `Start a session against the configured host.

The page is read from an HTML file and re-scraped whenever the file changes.
Change events are read as JSON lines from the events file as it grows. On
interrupt, pending changes are flushed and the session record is sent before
disconnecting.

Examples:
  # Watch a saved page and an event log
  sessionlink run --page page.html --url https://example.com --events changes.jsonl

  # Expose prometheus metrics
  sessionlink run --page page.html --metrics-addr :9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := cli.GetLogger(cmd, "run")
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("page") {
				cfg.Session.PageFile = pageFile
			}
			if flags.Changed("url") {
				cfg.Session.PageURL = pageURL
			}
			if flags.Changed("events") {
				cfg.Session.EventsFile = eventsFile
			}
			if flags.Changed("from-start") {
				cfg.Session.EventsFromStart = fromStart
			}
			if flags.Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}
			if cfg.Session.PageFile == "" {
				return errors.New(errors.ErrCodeInvalidInput, "no page to observe: set session.page_file or pass --page")
			}
			if cfg.Session.PageFile, err = pathutil.Expand(cfg.Session.PageFile); err != nil {
				return err
			}
			if cfg.Session.EventsFile, err = pathutil.Expand(cfg.Session.EventsFile); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, cfg, log)
		},
	}

	cmd.Flags().StringVar(&pageFile, "page", "", "HTML file holding the current page")
	cmd.Flags().StringVar(&pageURL, "url", "", "URL reported for the page")
	cmd.Flags().StringVar(&eventsFile, "events", "", "JSON lines file of change events to follow")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Replay events already in the events file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	return cmd
}

func runSession(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	t, err := session.NewTransport(cfg.Transport)
	if err != nil {
		return err
	}
	validator, err := schema.NewValidator()
	if err != nil {
		return err
	}
	opts := []session.Option{session.WithValidator(validator)}

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, session.WithMetrics(metrics.New(reg)))
		srv := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer srv.Close()
	}

	clock := clockwork.NewRealClock()
	ex := extract.NewHTML(extract.FileFetcher(cfg.Session.PageFile, cfg.Session.PageURL), clock)
	sess, err := session.New(cfg, t, ex, opts...)
	if err != nil {
		return err
	}

	var src aggregator.Source = source.NewFeed()
	if cfg.Session.EventsFile != "" {
		tail := source.NewTail(cfg.Session.EventsFile)
		tail.FromStart = cfg.Session.EventsFromStart
		src = tail
	}

	fatal := make(chan error, 1)
	unsub := sess.Bridge().OnError(func(err error) {
		if bridge.IsExhausted(err) {
			select {
			case fatal <- err:
			default:
			}
		}
	})
	defer unsub()

	connected, err := sess.Start(ctx, src)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"session": sess.ID(), "transport": t.Name()}).Info("Session running")

	watcher := source.NewPageWatcher(cfg.Session.PageFile,
		time.Duration(cfg.Session.PageDebounceMs)*time.Millisecond,
		func() {
			if err := sess.Scrape(ctx); err != nil {
				log.WithError(err).Warn("Re-scrape failed")
			}
		}, clock)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("Page watcher stopped")
		}
	}()

	var runErr error
	select {
	case err := <-connected:
		if err != nil {
			runErr = err
			break
		}
		select {
		case runErr = <-fatal:
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := sess.Stop(stopCtx); err != nil && runErr == nil && ctx.Err() == nil {
		runErr = err
	}
	return runErr
}

func serveMetrics(addr string, reg *prometheus.Registry, log *logrus.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
	log.WithField("addr", addr).Info("Serving metrics")
	return srv
}
