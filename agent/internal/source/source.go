package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/wetterblick/uploader/agent/internal/queue"
	"github.com/wetterblick/uploader/pkg/types"
)

// maxLineBytes bounds a single record line.
const maxLineBytes = 1 << 20

// Open returns the reader for path; "-" is stdin and is not closed by the
// returned closer.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	return f, nil
}

// Feed reads JSON-lines readings from r and puts them on q until r is
// exhausted, ctx is done or the queue is shut down. Lines that do not decode
// are logged and skipped. It returns the number of readings enqueued.
func Feed(ctx context.Context, r io.Reader, q *queue.Queue, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	n, line := 0, 0
	for sc.Scan() {
		line++
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec types.Reading
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			logger.Warn("source: skipping malformed record", "line", line, "err", err)
			continue
		}
		if err := q.Put(rec); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("source: read: %w", err)
	}
	return n, nil
}
