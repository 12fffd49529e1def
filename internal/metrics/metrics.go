// Package metrics implements the in-process counters and histograms
// exposed at /metrics. No metrics client exists anywhere in the
// dependency pool this repo draws from, so the exposition format is a
// small hand-rolled Prometheus-text writer over the standard library —
// this is a deliberate, narrow exception to the "always prefer an
// ecosystem library" rule, recorded in DESIGN.md.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry holds every counter and histogram the server tracks. The zero
// value is not usable (its maps are nil); build one with NewRegistry.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string]*histogram
}

type histogram struct {
	buckets []float64 // upper bounds, ascending, +Inf implicit last
	counts  []uint64
	sum     float64
	count   uint64
}

var defaultHashDurationBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   map[string]float64{},
		histograms: map[string]*histogram{},
	}
}

// Inc increments a named counter by 1.
func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

// Add increments a named counter by delta.
func (r *Registry) Add(name string, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

// ObserveHashDuration records a hashing duration in the hash_duration_seconds
// histogram.
func (r *Registry) ObserveHashDuration(d time.Duration) {
	r.observe("hash_duration_seconds", defaultHashDurationBuckets, d.Seconds())
}

func (r *Registry) observe(name string, buckets []float64, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.histograms[name]
	if !ok {
		h = &histogram{buckets: buckets, counts: make([]uint64, len(buckets)+1)}
		r.histograms[name] = h
	}
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
			return
		}
	}
	h.counts[len(h.counts)-1]++
}

// WriteTo renders the registry in Prometheus text exposition format.
func (r *Registry) WriteTo(w *strings.Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.counters))
	for name := range r.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "# TYPE %s counter\n%s %g\n", name, name, r.counters[name])
	}

	hnames := make([]string, 0, len(r.histograms))
	for name := range r.histograms {
		hnames = append(hnames, name)
	}
	sort.Strings(hnames)
	for _, name := range hnames {
		h := r.histograms[name]
		fmt.Fprintf(w, "# TYPE %s histogram\n", name)
		var cumulative uint64
		for i, b := range h.buckets {
			cumulative += h.counts[i]
			fmt.Fprintf(w, "%s_bucket{le=\"%g\"} %d\n", name, b, cumulative)
		}
		cumulative += h.counts[len(h.counts)-1]
		fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", name, cumulative)
		fmt.Fprintf(w, "%s_sum %g\n", name, h.sum)
		fmt.Fprintf(w, "%s_count %d\n", name, h.count)
	}
}

// Render returns the full exposition text in one call.
func (r *Registry) Render() string {
	var b strings.Builder
	r.WriteTo(&b)
	return b.String()
}

// Names used by the ingestion/retrieval/admin controllers, centralized
// here so a rename touches one place.
const (
	CounterInitTotal     = "upload_init_total"
	CounterCompleteTotal = "upload_complete_total"
	CounterFailTotal     = "upload_fail_total"
	CounterDedupTotal    = "upload_dedup_total"
	CounterPinTotal      = "ipfs_pin_total"
	CounterPinFailTotal  = "ipfs_pin_fail_total"
	CounterDownloadTotal = "artifact_download_total"
)
