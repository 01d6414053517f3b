package jobs

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
	"github.com/trezcool/classroom/services/filestore"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/services/metrics"
	inmemdb "github.com/trezcool/classroom/storage/database/inmem"
)

func newReaper(t *testing.T) (*BlobReaper, *filestore.LocalStore) {
	t.Helper()
	conf := &core.Config{Env: "TEST", TestMode: true}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	blobs, err := filestore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() failed: %v", err)
	}
	svc := material.NewService(inmemdb.NewMaterialRepository(inmemdb.Open()), blobs, logger)
	return NewBlobReaper(svc, time.Hour, metrics.New(prometheus.NewRegistry()), logger), blobs
}

func TestBlobReaper_Run(t *testing.T) {
	r, blobs := newReaper(t)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{"a.pdf", "b.pdf"} {
		if err := blobs.Put(ctx, name, strings.NewReader(name)); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
		if err := os.Chtimes(filepath.Join(blobs.Dir(), name), old, old); err != nil {
			t.Fatalf("Chtimes() failed: %v", err)
		}
	}

	n, err := r.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.Run(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestBlobReaper_Schedule(t *testing.T) {
	r, _ := newReaper(t)

	_, err := r.Schedule("every now and then")
	assert.Error(t, err)

	c, err := r.Schedule("@hourly")
	if assert.NoError(t, err) {
		assert.Len(t, c.Entries(), 1)
	}
}
