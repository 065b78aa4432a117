package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Step labels for derived-asset outcomes.
const (
	StepThumbnail = "thumbnail"
	StepOptimize  = "optimize"
)

// Pipeline counts upload pipeline events.
type Pipeline struct {
	uploads     prometheus.Counter
	skipped     prometheus.Counter
	deletes     prometheus.Counter
	steps       *prometheus.CounterVec
	storedBytes prometheus.Counter
}

// NewPipeline creates the upload pipeline collectors and registers them on reg.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	p := &Pipeline{
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgupload_uploads_total",
			Help: "Images stored successfully.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgupload_skipped_files_total",
			Help: "Files dropped from multi-file uploads by validation.",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgupload_deletes_total",
			Help: "Images deleted.",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgupload_derived_total",
			Help: "Thumbnail and optimize attempts by outcome.",
		}, []string{"step", "result"}),
		storedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgupload_stored_bytes_total",
			Help: "Bytes written for original uploads, before optimization.",
		}),
	}

	for _, c := range []prometheus.Collector{p.uploads, p.skipped, p.deletes, p.steps, p.storedBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Stored records one stored original of size bytes.
func (p *Pipeline) Stored(size int64) {
	if p == nil {
		return
	}
	p.uploads.Inc()
	p.storedBytes.Add(float64(size))
}

// Skipped records n files dropped by validation.
func (p *Pipeline) Skipped(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.skipped.Add(float64(n))
}

// Deleted records one removed image.
func (p *Pipeline) Deleted() {
	if p == nil {
		return
	}
	p.deletes.Inc()
}

// Step records the result of a thumbnail or optimize attempt.
func (p *Pipeline) Step(step string, ok bool) {
	if p == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	p.steps.WithLabelValues(step, result).Inc()
}

// Handler exposes the metrics gathered by g for Prometheus scraping.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
