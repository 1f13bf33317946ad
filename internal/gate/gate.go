// Package gate serializes memory-heavy audio work and refuses to start it
// when the process is close to its memory ceiling.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"creator-scout-go/internal/metrics"
)

var ErrResourceExhausted = errors.New("insufficient memory headroom")

// MemoryProbe returns current resident memory in bytes.
type MemoryProbe func() uint64

// Gate admits one task at a time, in arrival order. The weighted semaphore
// queues waiters FIFO, so a waiting task cannot be overtaken.
type Gate struct {
	sem    *semaphore.Weighted
	probe  MemoryProbe
	limit  uint64
	margin uint64
	log    *logrus.Entry
}

type Options struct {
	// LimitBytes is the memory ceiling. Zero disables headroom checks.
	LimitBytes  uint64
	MarginBytes uint64
	Probe       MemoryProbe
}

func New(opts Options, log *logrus.Entry) *Gate {
	probe := opts.Probe
	if probe == nil {
		probe = ResidentMemory
	}
	return &Gate{
		sem:    semaphore.NewWeighted(1),
		probe:  probe,
		limit:  opts.LimitBytes,
		margin: opts.MarginBytes,
		log:    log.WithField("component", "enrichment-gate"),
	}
}

// WithExclusiveAccess waits for the gate, checks headroom and runs task.
// The gate is released when task returns, whatever the outcome.
func (g *Gate) WithExclusiveAccess(ctx context.Context, task func(ctx context.Context) error) error {
	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for enrichment gate: %w", err)
	}
	defer g.sem.Release(1)
	metrics.ObserveGateWait(time.Since(start))

	if err := g.CheckHeadroom(); err != nil {
		return err
	}
	return task(ctx)
}

// CheckHeadroom fails with ErrResourceExhausted when resident memory is above
// the limit minus the safety margin. Tasks call it at their own checkpoints.
func (g *Gate) CheckHeadroom() error {
	if g.limit == 0 {
		return nil
	}
	used := g.probe()
	threshold := uint64(0)
	if g.limit > g.margin {
		threshold = g.limit - g.margin
	}
	if used > threshold {
		metrics.IncGateRejection()
		g.log.WithFields(logrus.Fields{
			"rss_mb":       used >> 20,
			"threshold_mb": threshold >> 20,
		}).Warn("memory headroom exhausted")
		return fmt.Errorf("%w: rss %d MiB above %d MiB", ErrResourceExhausted, used>>20, threshold>>20)
	}
	return nil
}
