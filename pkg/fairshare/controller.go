// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package fairshare

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clusterfair/fairshare-core/pkg/fairshare/config"
	"github.com/clusterfair/fairshare-core/pkg/fairshare/log"
	"github.com/clusterfair/fairshare-core/pkg/fairshare/metrics"
)

// AlphaFunc resolves the current EMA smoothing coefficient. Re-read every
// tick per spec.md §6 ("resolved from process-wide configuration at each
// controller tick, permitting live updates").
type AlphaFunc func() float64

// Controller is the fairness controller: a periodic loop that polls each
// job for usage stats, computes a redistributed fair share, and submits
// an EMA-smoothed priority revision to the policy server.
//
// Grounded on pkg/scheduler/cache/usagedb/usagedb.go's UsageLister: a
// time.Ticker-driven goroutine guarded by a stopCh, with the same
// fetch-on-start-then-tick shape, adapted to poll jobs instead of a
// Prometheus usage backend and to push revisions instead of caching
// reads.
type Controller struct {
	server        *Server
	alpha         AlphaFunc
	interval      time.Duration
	statsDeadline time.Duration

	totalCores   int64 // atomic; updated from the server's topology subscription
	topologyCh   <-chan int
	stopCh       chan struct{}
	stoppedCh    chan struct{}
	stopOnce     sync.Once

	onTick func() // test hook, invoked after each tick's work completes
}

// NewController wires a fairness controller to server. The controller
// subscribes to topology updates immediately; call Start to begin
// ticking.
func NewController(server *Server, alpha AlphaFunc) *Controller {
	return &Controller{
		server:        server,
		alpha:         alpha,
		interval:      config.FairyInterval,
		statsDeadline: 100 * time.Millisecond,
		topologyCh:    server.SubscribeTopology(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
}

// WithStatsDeadline overrides the per-job poll deadline (default 100ms).
func (c *Controller) WithStatsDeadline(d time.Duration) *Controller {
	c.statsDeadline = d
	return c
}

// WithInterval overrides the tick period. Production wiring never calls
// this: spec.md §9 fixes the fairy interval at 1000ms. Exists only so
// tests don't have to wait a full second per tick.
func (c *Controller) WithInterval(d time.Duration) *Controller {
	c.interval = d
	return c
}

// Start begins the periodic loop in a background goroutine.
func (c *Controller) Start() {
	if snap, err := c.server.SnapshotRegistry(); err == nil {
		atomic.StoreInt64(&c.totalCores, int64(snap.TotalCores))
	}

	go c.run()
}

// Stop ends the loop and waits for the goroutine to exit.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.stoppedCh
}

func (c *Controller) run() {
	defer close(c.stoppedCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case cores := <-c.topologyCh:
			atomic.StoreInt64(&c.totalCores, int64(cores))
		case <-ticker.C:
			c.tick()
			if c.onTick != nil {
				c.onTick()
			}
		case <-c.stopCh:
			return
		}
	}
}

// tick runs one iteration of spec.md §4.2's per-tick algorithm.
func (c *Controller) tick() {
	totalCores := int(atomic.LoadInt64(&c.totalCores))
	if totalCores == 0 {
		metrics.RecordTick(true)
		return
	}

	alpha := c.alpha()

	snap, err := c.server.SnapshotRegistry()
	if err != nil {
		// A failure to obtain the registry snapshot terminates the tick;
		// the loop continues next interval (spec.md §4.2 failure semantics).
		metrics.RecordTick(true)
		return
	}

	responsive := c.pollAll(snap)
	if len(responsive) == 0 {
		metrics.RecordTick(true)
		return
	}

	revisions, donors, needy := computeRevisions(responsive, totalCores, alpha)
	metrics.RecordShareSplit(donors, needy)

	c.server.ApplyPriorityRevision(revisions)
	metrics.RecordTick(false)
}

// pollAll fetches (pending_tasks, running_tasks) for every job in the
// snapshot with a bounded per-job deadline, dropping jobs that fail,
// time out, or crash in response (spec.md §4.2 step 4).
func (c *Controller) pollAll(snap RegistrySnapshot) []polledJob {
	responsive := make([]polledJob, 0, len(snap.Jobs))
	for id, job := range snap.Jobs {
		ctx, cancel := context.WithTimeout(context.Background(), c.statsDeadline)
		stats, err := job.getStats(ctx)
		cancel()
		if err != nil {
			log.InfraLogger.V(4).Infof("fairness controller: job %q unresponsive: %v", id, err)
			metrics.RecordDroppedPoll()
			continue
		}
		responsive = append(responsive, polledJob{
			id:       id,
			priority: job.Priority,
			cputime:  job.CPUTime,
			stats:    stats,
		})
	}
	return responsive
}
