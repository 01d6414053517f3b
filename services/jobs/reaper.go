// Package jobs schedules the background maintenance of the app.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
	"github.com/trezcool/classroom/services/metrics"
)

const reapTimeout = 4 * time.Minute

// BlobReaper periodically deletes the stored files no material references.
type BlobReaper struct {
	svc    *material.Service
	grace  time.Duration
	m      *metrics.Metrics // optional
	logger core.Logger
}

func NewBlobReaper(svc *material.Service, grace time.Duration, m *metrics.Metrics, logger core.Logger) *BlobReaper {
	return &BlobReaper{svc: svc, grace: grace, m: m, logger: logger}
}

// Run reaps once.
func (r *BlobReaper) Run(ctx context.Context) (int, error) {
	n, err := r.svc.ReapOrphanBlobs(ctx, r.grace)
	if r.m != nil {
		r.m.BlobsReaped(n)
	}
	if err != nil {
		return n, errors.Wrap(err, "reaping orphan blobs")
	}
	if n > 0 {
		r.logger.Info(fmt.Sprintf("reaped %d orphan blob(s)", n))
	}
	return n, nil
}

// Schedule returns a cron running r on spec; overlapping runs are skipped.
// The returned scheduler is not started.
func (r *BlobReaper) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			r.logger.Error(err.Error(), err)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scheduling blob reaper on %q", spec)
	}
	return c, nil
}
