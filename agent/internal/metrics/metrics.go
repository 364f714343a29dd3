package metrics

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const namespace = "wetterblick"

// Metric names exposed on /metrics.
const (
	nameReceived = namespace + "_records_received_total"
	nameSkipped  = namespace + "_records_skipped_total"
	nameAttempts = namespace + "_upload_attempts_total"
	nameUploads  = namespace + "_uploads_total"
	nameDepth    = namespace + "_queue_depth"
	nameEvicted  = namespace + "_queue_evicted_total"
)

// QueueStats is the read side of the work queue.
type QueueStats interface {
	Len() int
	Evicted() uint64
}

// Stats holds the worker counters. All methods are safe for concurrent use.
type Stats struct {
	mu       sync.Mutex
	received float64
	attempts float64
	skipped  map[string]float64
	outcomes map[string]float64
	queue    QueueStats
}

// New returns an empty Stats. q may be nil, in which case the queue gauges
// are omitted.
func New(q QueueStats) *Stats {
	return &Stats{
		skipped:  make(map[string]float64),
		outcomes: make(map[string]float64),
		queue:    q,
	}
}

// Received counts a reading taken off the queue.
func (s *Stats) Received() {
	s.mu.Lock()
	s.received++
	s.mu.Unlock()
}

// Skipped counts a reading dropped before upload (stale, backlog, invalid).
func (s *Stats) Skipped(reason string) {
	s.mu.Lock()
	s.skipped[reason]++
	s.mu.Unlock()
}

// Attempt counts one HTTP request.
func (s *Stats) Attempt() {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
}

// Outcome counts the final result of one reading's upload.
func (s *Stats) Outcome(kind string) {
	s.mu.Lock()
	s.outcomes[kind]++
	s.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Received float64
	Attempts float64
	Skipped  map[string]float64
	Outcomes map[string]float64
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{
		Received: s.received,
		Attempts: s.attempts,
		Skipped:  make(map[string]float64, len(s.skipped)),
		Outcomes: make(map[string]float64, len(s.outcomes)),
	}
	for k, v := range s.skipped {
		out.Skipped[k] = v
	}
	for k, v := range s.outcomes {
		out.Outcomes[k] = v
	}
	return out
}

// Families converts the counters into metric families, sorted by name.
// Labeled families with no samples yet are left out.
func (s *Stats) Families() []*dto.MetricFamily {
	snap := s.Snapshot()

	fams := []*dto.MetricFamily{
		counter(nameReceived, "Readings taken off the work queue.", snap.Received),
		counter(nameAttempts, "HTTP upload attempts, including retries.", snap.Attempts),
		labeledCounter(nameSkipped, "Readings dropped before upload, by reason.", "reason", snap.Skipped),
		labeledCounter(nameUploads, "Final upload results, by outcome.", "outcome", snap.Outcomes),
	}
	if s.queue != nil {
		fams = append(fams,
			gauge(nameDepth, "Readings waiting in the work queue.", float64(s.queue.Len())),
			counter(nameEvicted, "Readings evicted because the queue was full.", float64(s.queue.Evicted())),
		)
	}

	// expfmt rejects families without samples; labeled counters start empty.
	out := fams[:0]
	for _, mf := range fams {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// WriteText renders all families in the text exposition format.
func (s *Stats) WriteText(buf *bytes.Buffer) error {
	for _, mf := range s.Families() {
		if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Handler serves the counters for Prometheus scrapes.
func (s *Stats) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		if err := s.WriteText(&buf); err != nil {
			slog.Error("metrics: render failed", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		_, _ = w.Write(buf.Bytes())
	})
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{
			{Counter: &dto.Counter{Value: proto.Float64(v)}},
		},
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: proto.Float64(v)}},
		},
	}
}

func labeledCounter(name, help, label string, values map[string]float64) *dto.MetricFamily {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mf := &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, k := range keys {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: proto.String(label), Value: proto.String(k)}},
			Counter: &dto.Counter{Value: proto.Float64(values[k])},
		})
	}
	return mf
}
