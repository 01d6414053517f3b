package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/services/filestore"
)

func TestMiddleware(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/quizzes/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return echo.ErrNotFound
		}
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/v1/quizzes/1", "/v1/quizzes/2", "/v1/quizzes/0", "/nope"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), promtest.ToFloat64(m.requests.WithLabelValues("GET", "/v1/quizzes/:id", "200")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.requests.WithLabelValues("GET", "/v1/quizzes/:id", "404")))
	assert.Equal(t, 1, promtest.CollectAndCount(m.latency.WithLabelValues("GET", "/v1/quizzes/:id").(prometheus.Histogram)))
}

func TestInstrumentBlobStore(t *testing.T) {
	m := New(prometheus.NewRegistry())
	local, err := filestore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() failed: %v", err)
	}
	store := InstrumentBlobStore(local, core.StorageLocal, m)
	ctx := context.Background()

	assert.NoError(t, store.Put(ctx, "a.txt", strings.NewReader("a")))
	rc, err := store.Open(ctx, "a.txt")
	if assert.NoError(t, err) {
		_ = rc.Close()
	}
	_, err = store.Open(ctx, "missing.txt")
	assert.True(t, core.IsNotFound(err))
	assert.Error(t, store.Put(ctx, "../a.txt", strings.NewReader("a")))

	count := func(op, outcome string) float64 {
		return promtest.ToFloat64(m.blobOps.WithLabelValues(core.StorageLocal, op, outcome))
	}
	assert.Equal(t, float64(1), count("put", "ok"))
	assert.Equal(t, float64(1), count("put", "error"))
	assert.Equal(t, float64(1), count("open", "ok"))
	assert.Equal(t, float64(1), count("open", "not_found"))
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.BlobsReaped(3)
	m.AttemptStarted()
	m.AttemptStarted()
	m.AttemptCompleted(50)

	assert.Equal(t, float64(3), promtest.ToFloat64(m.blobsReaped))
	assert.Equal(t, float64(2), promtest.ToFloat64(m.started))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.completed))
	assert.Equal(t, 1, promtest.CollectAndCount(m.scores))
}
