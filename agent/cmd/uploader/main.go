package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wetterblick/uploader/agent/internal/config"
	"github.com/wetterblick/uploader/agent/internal/logging"
	"github.com/wetterblick/uploader/agent/internal/metrics"
	"github.com/wetterblick/uploader/agent/internal/queue"
	"github.com/wetterblick/uploader/agent/internal/security"
	"github.com/wetterblick/uploader/agent/internal/source"
	"github.com/wetterblick/uploader/agent/internal/uploader"
	"github.com/wetterblick/uploader/agent/internal/wetterblick"
	"github.com/wetterblick/uploader/pkg/types"
)

// standaloneWait bounds the smoke-test run.
const standaloneWait = 20 * time.Second

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitBadLogin = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("uploader", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	envFile := fs.String("env-file", ".env", "optional KEY=value file loaded before the config")
	user := fs.String("user", "", "station id; runs a single synthetic upload and exits")
	pw := fs.String("pw", "", "station password for --user")
	showVersion := fs.Bool("version", false, "print the version and exit")
	dryRun := fs.Bool("dry-run", false, "build and log requests without sending them")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	if *showVersion {
		fmt.Printf("wetterblick uploader version %s\n", wetterblick.Version)
		if *user == "" {
			return exitOK
		}
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	if *user != "" {
		return standalone(*user, *pw, *dryRun)
	}
	return service(*configPath, *dryRun)
}

// service runs the worker against readings from the configured source until
// the source ends or the process is signalled.
func service(configPath string, dryRun bool) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
	if dryRun {
		cfg.Upload.SkipUpload = true
	}

	level := new(slog.LevelVar)
	lvl, _ := logging.ParseLevel(cfg.Log.Level)
	level.Set(lvl)
	logger := logging.New(os.Stderr, level, cfg.Log.Format, wetterblick.Version)
	slog.SetDefault(logger)

	opts, err := uploader.OptionsFromConfig(cfg.Upload)
	if err != nil {
		logger.Error("failed to build uploader options", "err", err)
		return exitFailure
	}
	logStartup(logger, opts)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	q := queue.New(cfg.Queue.Capacity, logger)
	stats := metrics.New(q)

	w, err := uploader.New(opts, q, logger, uploader.WithRecorder(stats))
	if err != nil {
		logger.Error("failed to start uploader", "err", err)
		return exitFailure
	}

	for _, warning := range security.Audit(cfg.Upload) {
		logger.Warn("security: " + warning)
	}
	go logCertStatus(ctx, logger, opts)

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, stats, logger)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	current := cfg
	go func() {
		err := config.Watch(ctx, configPath, logger, func(updated *config.Config) {
			if l, err := logging.ParseLevel(updated.Log.Level); err == nil {
				level.Set(l)
			}
			var restart []string
			for _, name := range config.Diff(current, updated) {
				if name != "log.level" {
					restart = append(restart, name)
				}
			}
			if len(restart) > 0 {
				logger.Warn("config changed, restart required to apply",
					"settings", strings.Join(restart, ","))
			}
			current = updated
		})
		if err != nil {
			logger.Error("config watcher stopped", "err", err)
		}
	}()

	go func() {
		defer q.Shutdown()
		rc, err := source.Open(cfg.Source.Path)
		if err != nil {
			logger.Error("source unavailable", "err", err)
			return
		}
		defer rc.Close()
		n, err := source.Feed(ctx, rc, q, logger)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, queue.ErrShutdown) {
			logger.Error("source stopped", "records", n, "err", err)
			return
		}
		logger.Info("source exhausted", "records", n)
	}()

	err = w.Run(ctx)
	logger.Info("wetterblick uploader shutting down")
	return exitCode(logger, err)
}

// standalone pushes one synthetic reading through the full pipeline.
func standalone(user, pw string, dryRun bool) int {
	logger := logging.New(os.Stderr, slog.LevelDebug, "text", wetterblick.Version)

	upload := config.Defaults().Upload
	upload.Username = user
	upload.Password = pw
	upload.SkipUpload = dryRun

	opts, err := uploader.OptionsFromConfig(upload)
	if err != nil {
		logger.Error("invalid arguments", "err", err)
		return exitFailure
	}
	logStartup(logger, opts)

	q := queue.New(0, logger)
	w, err := uploader.New(opts, q, logger)
	if err != nil {
		logger.Error("failed to start uploader", "err", err)
		return exitFailure
	}

	if err := q.Put(syntheticReading(time.Now())); err != nil {
		logger.Error("enqueue failed", "err", err)
		return exitFailure
	}
	q.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), standaloneWait)
	defer cancel()
	return exitCode(logger, w.Run(ctx))
}

func syntheticReading(now time.Time) types.Reading {
	return types.Reading{
		DateTime: now.Unix(),
		USUnits:  types.US,
		Fields: map[string]any{
			"outTemp":     32.5,
			"inTemp":      75.8,
			"outHumidity": 24.0,
		},
	}
}

func logStartup(logger *slog.Logger, opts uploader.Options) {
	logger.Info("wetterblick uploader starting",
		"version", wetterblick.Version,
		"api_version", wetterblick.APIVersion,
	)
	logger.Info("data will be uploaded for station id",
		"station", opts.Username,
		"server_url", opts.ServerURL,
		"skip_upload", opts.SkipUpload,
	)
}

func logCertStatus(ctx context.Context, logger *slog.Logger, opts uploader.Options) {
	cs := security.Check(ctx, opts.ServerURL, opts.InsecureSkipVerify)
	if cs == nil {
		return
	}
	attrs := []any{"endpoint", cs.Endpoint, "status", cs.Status}
	if cs.Status == security.CertUnreachable {
		logger.Warn("security: endpoint certificate could not be checked", attrs...)
		return
	}
	attrs = append(attrs, "issuer", cs.Issuer, "not_after", cs.NotAfter, "days_left", cs.DaysLeft)
	if cs.Status == security.CertValid {
		logger.Debug("security: endpoint certificate", attrs...)
		return
	}
	logger.Warn("security: endpoint certificate needs attention", attrs...)
}

func serveMetrics(addr string, stats *metrics.Stats, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", stats.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
	return srv
}

func exitCode(logger *slog.Logger, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, wetterblick.ErrBadLogin):
		logger.Error("upload rejected, check username and password", "err", err)
		return exitBadLogin
	default:
		logger.Error("uploader stopped", "err", err)
		return exitFailure
	}
}
