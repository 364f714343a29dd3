package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wetterblick/uploader/agent/internal/queue"
	"github.com/wetterblick/uploader/agent/internal/units"
	"github.com/wetterblick/uploader/agent/internal/wetterblick"
	"github.com/wetterblick/uploader/pkg/types"
)

// Skip reasons reported to the Recorder.
const (
	SkipStale   = "stale"
	SkipBacklog = "backlog"
	SkipInvalid = "invalid"
)

// OutcomeDryRun is reported to the Recorder for readings handled with SkipUpload.
const OutcomeDryRun = "dry_run"

// Recorder receives worker counters. metrics.Stats implements it.
type Recorder interface {
	Received()
	Skipped(reason string)
	Attempt()
	Outcome(kind string)
}

type nopRecorder struct{}

func (nopRecorder) Received()      {}
func (nopRecorder) Skipped(string) {}
func (nopRecorder) Attempt()       {}
func (nopRecorder) Outcome(string) {}

// Worker uploads readings from a queue, one at a time, in FIFO order.
type Worker struct {
	opts   Options
	queue  *queue.Queue
	logger *slog.Logger
	client *http.Client
	conv   units.Converter
	rec    Recorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// lastPost is when the previous upload attempt (or dry run) started.
	lastPost time.Time
}

// Option customises a Worker built by New.
type Option func(*Worker)

// WithHTTPClient replaces the HTTP client built from Options.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Worker) { w.client = c }
}

// WithConverter replaces units.Standard.
func WithConverter(c units.Converter) Option {
	return func(w *Worker) { w.conv = c }
}

// WithRecorder sets the counter sink.
func WithRecorder(r Recorder) Option {
	return func(w *Worker) { w.rec = r }
}

// WithClock replaces time.Now and the context-aware sleep. Either may be nil
// to keep the default.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
		if sleep != nil {
			w.sleep = sleep
		}
	}
}

// New validates opts and returns a Worker consuming q. A nil logger means
// slog.Default().
func New(opts Options, q *queue.Queue, logger *slog.Logger, options ...Option) (*Worker, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("uploader: %w", err)
	}
	if q == nil {
		return nil, errors.New("uploader: queue is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		opts:   opts,
		queue:  q,
		logger: logger.With("protocol", wetterblick.ProtocolName),
		client: newHTTPClient(opts),
		conv:   units.Standard{},
		rec:    nopRecorder{},
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, o := range options {
		o(w)
	}
	return w, nil
}

// Run consumes the queue until the shutdown sentinel is dequeued or ctx is
// cancelled, and then returns nil. It returns an error wrapping
// wetterblick.ErrBadLogin when the server rejects the credentials.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("uploader: started",
		"server_url", w.opts.ServerURL,
		"station", w.opts.Username,
		"skip_upload", w.opts.SkipUpload,
	)

	for {
		if ctx.Err() != nil {
			w.logger.Info("uploader: context done, stopping", "pending", w.queue.Len())
			return nil
		}
		r, err := w.next(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrShutdown) {
				w.logger.Info("uploader: shutdown sentinel received, stopping")
			} else {
				w.logger.Info("uploader: context done, stopping", "err", err)
			}
			return nil
		}

		if err := w.process(ctx, r); err != nil {
			return err
		}
	}
}

// next dequeues the next reading, dropping readings that have more than
// MaxBacklog others queued behind them.
func (w *Worker) next(ctx context.Context) (types.Reading, error) {
	for {
		r, err := w.queue.Get(ctx)
		if err != nil {
			return types.Reading{}, err
		}
		w.rec.Received()

		if w.opts.MaxBacklog < 0 {
			return r, nil
		}
		backlog := w.queue.Len()
		if backlog <= w.opts.MaxBacklog {
			return r, nil
		}
		w.rec.Skipped(SkipBacklog)
		w.logger.Info("uploader: backlog exceeded, skipping record",
			"date_time", r.DateTime,
			"backlog", backlog,
			"max_backlog", w.opts.MaxBacklog,
		)
	}
}

// process handles one reading. Only a bad login is returned as an error.
func (w *Worker) process(ctx context.Context, r types.Reading) error {
	log := w.logger.With("upload_id", uuid.NewString(), "date_time", r.DateTime)

	if w.opts.Stale > 0 {
		age := w.now().Sub(r.Time())
		if age > w.opts.Stale {
			w.rec.Skipped(SkipStale)
			log.Info("uploader: record is stale, skipping",
				"age", age.Round(time.Second), "stale", w.opts.Stale)
			return nil
		}
	}

	if err := w.throttle(ctx); err != nil {
		return nil
	}

	creds := wetterblick.Credentials{Username: w.opts.Username, Password: w.opts.Password}
	params, err := wetterblick.BuildParams(r, creds, w.conv, w.opts.Location)
	if err != nil {
		w.rec.Skipped(SkipInvalid)
		log.Error("uploader: cannot build request, skipping record", "err", err)
		return nil
	}
	rawURL := params.URL(w.opts.ServerURL)
	redacted := wetterblick.RedactURL(rawURL, w.opts.Password)
	log.Debug("uploader: request built", "url", redacted)

	w.lastPost = w.now()

	if w.opts.SkipUpload {
		w.rec.Outcome(OutcomeDryRun)
		log.Info("uploader: skip_upload set, not posting", "url", redacted)
		return nil
	}

	out := w.deliver(ctx, rawURL, log)
	w.rec.Outcome(out.Kind.String())

	switch out.Kind {
	case wetterblick.Success:
		if w.opts.LogSuccess {
			log.Info("uploader: published record")
		}
		return nil
	case wetterblick.BadLogin:
		log.Error("uploader: server rejected credentials, giving up",
			"station", w.opts.Username, "response", out.Text)
		return fmt.Errorf("uploader: %w", out.Err())
	default:
		if w.opts.LogFailure {
			log.Error("uploader: failed to publish record",
				"tries", w.opts.MaxTries, "err", out.Err())
		}
		return nil
	}
}

// throttle waits out the rest of PostInterval since the previous attempt.
func (w *Worker) throttle(ctx context.Context) error {
	if w.opts.PostInterval <= 0 || w.lastPost.IsZero() {
		return nil
	}
	wait := w.opts.PostInterval - w.now().Sub(w.lastPost)
	if wait <= 0 {
		return nil
	}
	w.logger.Debug("uploader: waiting for post interval", "wait", wait)
	return w.sleep(ctx, wait)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
