// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package fairshare

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterfair/fairshare-core/pkg/fairshare/jobhandle"
)

// awaitTick blocks until the controller's test hook fires once.
func awaitTick(t *testing.T, c *Controller) {
	t.Helper()
	ticked := make(chan struct{}, 1)
	c.onTick = func() {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not tick in time")
	}
}

func TestControllerSkipsTickWithZeroCores(t *testing.T) {
	s := NewServer()
	defer s.Close()

	c := NewController(s, func() float64 { return 0.5 }).WithInterval(20 * time.Millisecond)
	c.Start()
	defer c.Stop()

	awaitTick(t, c)
	// No topology was ever reported: the registry can't have been revised,
	// so this is mostly a smoke test that tick() doesn't block or panic.
}

func TestControllerAppliesRevisionEachTick(t *testing.T) {
	s := NewServer()
	defer s.Close()

	s.UpdateTopology([]NodeCapacity{{NodeID: "n1", Cores: 4}})
	require.NoError(t, s.NewJob("a", "job-a", jobhandle.NewFakeHandle(1, 2)))
	require.NoError(t, s.NewJob("b", "job-b", jobhandle.NewFakeHandle(3, 0)))

	c := NewController(s, func() float64 { return 0.5 }).WithInterval(20 * time.Millisecond)
	c.Start()
	defer c.Stop()

	awaitTick(t, c)

	snap, err := s.SnapshotRegistry()
	require.NoError(t, err)
	// Both jobs should have had their bias reset to zero by the revision.
	for _, job := range snap.Jobs {
		assert.Equal(t, 0.0, job.Bias)
	}
}

func TestControllerDropsUnresponsiveJobs(t *testing.T) {
	s := NewServer()
	defer s.Close()

	s.UpdateTopology([]NodeCapacity{{NodeID: "n1", Cores: 2}})
	responsive := jobhandle.NewFakeHandle(1, 1)
	unresponsive := jobhandle.NewFakeHandle(1, 1)
	unresponsive.SetUnresponsive(true)

	require.NoError(t, s.NewJob("ok", "job-ok", responsive))
	require.NoError(t, s.NewJob("stuck", "job-stuck", unresponsive))

	c := NewController(s, func() float64 { return 0.5 }).
		WithInterval(20 * time.Millisecond).
		WithStatsDeadline(50 * time.Millisecond)
	c.Start()
	defer c.Stop()

	awaitTick(t, c)

	snap, err := s.SnapshotRegistry()
	require.NoError(t, err)
	// The unresponsive job survives in the registry (polling failure never
	// deregisters a job) but its priority/bias are left untouched by the
	// tick that dropped it.
	require.Contains(t, snap.Jobs, JobID("stuck"))
	require.Contains(t, snap.Jobs, JobID("ok"))
}

// TestControllerDropsSlowJobOnDeadline exercises the timeout branch of
// FakeHandle.GetStats (as opposed to TestControllerDropsUnresponsiveJobs'
// explicit-error branch): a job whose handle never answers within the
// stats deadline is dropped from the tick but survives in the registry.
func TestControllerDropsSlowJobOnDeadline(t *testing.T) {
	s := NewServer()
	defer s.Close()

	s.UpdateTopology([]NodeCapacity{{NodeID: "n1", Cores: 2}})
	responsive := jobhandle.NewFakeHandle(1, 1)
	slow := jobhandle.NewFakeHandle(1, 1)
	slow.BlockUntil(make(chan struct{})) // never closed: GetStats blocks until ctx expires

	require.NoError(t, s.NewJob("ok", "job-ok", responsive))
	require.NoError(t, s.NewJob("slow", "job-slow", slow))

	c := NewController(s, func() float64 { return 0.5 }).
		WithInterval(20 * time.Millisecond).
		WithStatsDeadline(30 * time.Millisecond)
	c.Start()
	defer c.Stop()

	awaitTick(t, c)

	snap, err := s.SnapshotRegistry()
	require.NoError(t, err)
	require.Contains(t, snap.Jobs, JobID("slow"))
	require.Contains(t, snap.Jobs, JobID("ok"))
	assert.Equal(t, -0.5, snap.Jobs["slow"].Priority, "a job that never answers keeps its starting priority")
}

// TestControllerRepollsStatsEveryTick confirms the controller reads live
// stats on each tick rather than caching the first poll: changing a fake
// handle's reported stats between ticks changes the next revision.
func TestControllerRepollsStatsEveryTick(t *testing.T) {
	s := NewServer()
	defer s.Close()

	s.UpdateTopology([]NodeCapacity{{NodeID: "n1", Cores: 4}})
	handle := jobhandle.NewFakeHandle(1, 0)
	require.NoError(t, s.NewJob("a", "job-a", handle))

	c := NewController(s, func() float64 { return 1.0 }).WithInterval(20 * time.Millisecond)
	c.Start()
	defer c.Stop()

	awaitTick(t, c)
	snap, err := s.SnapshotRegistry()
	require.NoError(t, err)
	firstPriority := snap.Jobs["a"].Priority

	handle.SetStats(3, 4)
	awaitTick(t, c)

	snap, err = s.SnapshotRegistry()
	require.NoError(t, err)
	assert.NotEqual(t, firstPriority, snap.Jobs["a"].Priority)
}

func TestControllerTracksTopologyUpdates(t *testing.T) {
	s := NewServer()
	defer s.Close()

	c := NewController(s, func() float64 { return 0.5 }).WithInterval(20 * time.Millisecond)
	c.Start()
	defer c.Stop()

	s.UpdateTopology([]NodeCapacity{{NodeID: "n1", Cores: 6}})
	require.NoError(t, s.NewJob("a", "job-a", jobhandle.NewFakeHandle(1, 1)))

	awaitTick(t, c)

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&c.totalCores) == 6
	}, time.Second, 10*time.Millisecond, "controller should pick up the new total_cores")

	snap, err := s.SnapshotRegistry()
	require.NoError(t, err)
	assert.Equal(t, 6, snap.TotalCores)
}
