// Package metrics exposes the Prometheus collectors of the app.
package metrics

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
)

const namespace = "classroom"

type Metrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	blobOps     *prometheus.CounterVec
	blobsReaped prometheus.Counter
	started     prometheus.Counter
	completed   prometheus.Counter
	scores      prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		blobOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_operations_total",
			Help:      "Blob store operations by driver, operation and outcome.",
		}, []string{"driver", "op", "outcome"}),
		blobsReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blobs_reaped_total",
			Help:      "Orphan blobs deleted by the reaper.",
		}),
		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_attempts_started_total",
			Help:      "Quiz attempts started.",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_attempts_completed_total",
			Help:      "Quiz attempts completed.",
		}),
		scores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quiz_attempt_score",
			Help:      "Scores of completed quiz attempts.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
	}
}

// Middleware counts & times every request by its route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err) // writes the status
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func (m *Metrics) BlobsReaped(n int) {
	m.blobsReaped.Add(float64(n))
}

func (m *Metrics) AttemptStarted() {
	m.started.Inc()
}

func (m *Metrics) AttemptCompleted(score int) {
	m.completed.Inc()
	m.scores.Observe(float64(score))
}

func (m *Metrics) blobOp(driver, op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case core.IsNotFound(err):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	m.blobOps.WithLabelValues(driver, op, outcome).Inc()
}

type instrumentedStore struct {
	next   material.BlobStore
	driver string
	m      *Metrics
}

var (
	_ material.BlobStore  = (*instrumentedStore)(nil)
	_ material.BlobLister = (*instrumentedStore)(nil)
)

// InstrumentBlobStore counts the operations of next under the driver label.
func InstrumentBlobStore(next material.BlobStore, driver string, m *Metrics) material.BlobStore {
	return &instrumentedStore{next: next, driver: driver, m: m}
}

func (s *instrumentedStore) Put(ctx context.Context, name string, r io.Reader) error {
	err := s.next.Put(ctx, name, r)
	s.m.blobOp(s.driver, "put", err)
	return err
}

func (s *instrumentedStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.next.Open(ctx, name)
	s.m.blobOp(s.driver, "open", err)
	return rc, err
}

func (s *instrumentedStore) Remove(ctx context.Context, name string) error {
	err := s.next.Remove(ctx, name)
	s.m.blobOp(s.driver, "remove", err)
	return err
}

func (s *instrumentedStore) List(ctx context.Context) ([]material.BlobInfo, error) {
	lister, ok := s.next.(material.BlobLister)
	if !ok {
		return nil, material.ErrCannotList
	}
	blobs, err := lister.List(ctx)
	s.m.blobOp(s.driver, "list", err)
	return blobs, err
}
