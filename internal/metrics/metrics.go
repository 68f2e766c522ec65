// Package metrics records what a scrape run did, for the node_exporter
// textfile collector. Each Recorder owns its registry; nothing is registered
// globally.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeHTTPError = "http_error"
	OutcomeNetwork   = "network_error"
	OutcomeParse     = "parse_error"
	OutcomeEmpty     = "empty"
	OutcomeRejected  = "rejected"
	OutcomeFailure   = "failure"
)

type Recorder struct {
	registry *prometheus.Registry

	catalogAttempts *prometheus.CounterVec
	catalogCourses  *prometheus.CounterVec
	detailRequests  *prometheus.CounterVec
	uploads         *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		catalogAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursera_catalog_attempts_total",
				Help: "Catalog endpoint attempts by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		catalogCourses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursera_catalog_courses_total",
				Help: "Courses extracted, by the source that produced them.",
			},
			[]string{"source"},
		),
		detailRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursera_detail_requests_total",
				Help: "GraphQL detail requests by outcome.",
			},
			[]string{"outcome"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursera_uploads_total",
				Help: "Object uploads by storage backend and outcome.",
			},
			[]string{"backend", "outcome"},
		),
	}
	r.registry.MustRegister(r.catalogAttempts, r.catalogCourses, r.detailRequests, r.uploads)
	return r
}

// A nil *Recorder is valid and records nothing.

func (r *Recorder) CatalogAttempt(endpoint, outcome string) {
	if r == nil {
		return
	}
	r.catalogAttempts.WithLabelValues(endpoint, outcome).Inc()
}

func (r *Recorder) CatalogCourses(source string, n int) {
	if r == nil {
		return
	}
	r.catalogCourses.WithLabelValues(source).Add(float64(n))
}

func (r *Recorder) DetailRequest(outcome string) {
	if r == nil {
		return
	}
	r.detailRequests.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Upload(backend string, success bool) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	r.uploads.WithLabelValues(backend, outcome).Inc()
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the registry atomically in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write textfile %s: %w", path, err)
	}
	return nil
}
