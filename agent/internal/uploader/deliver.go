package uploader

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/wetterblick/uploader/agent/internal/wetterblick"
)

// maxBodyBytes caps how much of a response body is read for classification.
const maxBodyBytes = 64 << 10

var userAgent = "wetterblick-uploader/" + wetterblick.Version

// newHTTPClient builds the client used for uploads. Per-attempt deadlines come
// from the request context; the client timeout is a backstop.
func newHTTPClient(opts Options) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
}

// deliver sends rawURL up to MaxTries times, RetryWait apart, and returns the
// last outcome. Non-retryable outcomes end the loop early.
func (w *Worker) deliver(ctx context.Context, rawURL string, log *slog.Logger) wetterblick.Outcome {
	var out wetterblick.Outcome
	for attempt := 1; attempt <= w.opts.MaxTries; attempt++ {
		if attempt > 1 {
			if err := w.sleep(ctx, w.opts.RetryWait); err != nil {
				return wetterblick.Outcome{Kind: wetterblick.TransportError, Cause: err}
			}
		}

		w.rec.Attempt()
		out = w.attempt(ctx, rawURL)
		if !out.Retryable() {
			return out
		}
		log.Warn("uploader: attempt failed",
			"attempt", attempt,
			"max_tries", w.opts.MaxTries,
			"err", out.Err(),
		)
	}
	return out
}

// attempt performs one GET bounded by Timeout and classifies the result.
func (w *Worker) attempt(ctx context.Context, rawURL string) wetterblick.Outcome {
	ctx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return w.transportError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return w.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return w.transportError(fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return wetterblick.Outcome{
			Kind: wetterblick.ServerError,
			Text: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body),
		}
	}
	return wetterblick.Classify(string(body))
}

// transportError wraps err as a TransportError with the password removed
// from any URL it mentions.
func (w *Worker) transportError(err error) wetterblick.Outcome {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = wetterblick.RedactURL(ue.URL, w.opts.Password)
	}
	return wetterblick.Outcome{Kind: wetterblick.TransportError, Cause: err}
}
