// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

// Package fairshare implements the fair-share scheduling policy: an
// in-memory job registry and priority queue (the policy server) plus a
// periodic control loop (the fairness controller) that redistributes
// unused capacity and smooths priorities with an exponential moving
// average.
package fairshare

import (
	"context"

	"github.com/clusterfair/fairshare-core/pkg/fairshare/jobhandle"
)

// JobID uniquely identifies a job; also the registry key.
type JobID string

// Stats is the (pending_tasks, running_tasks) pair a job handle reports.
type Stats struct {
	PendingTasks int
	RunningTasks int
}

// Job is one live job's registry record. priority is more negative for
// higher scheduling preference. bias is an intra-interval correction
// reset at every fairness-controller revision.
type Job struct {
	ID       JobID
	Name     string
	Priority float64
	Bias     float64
	CPUTime  int64
	Handle   jobhandle.Handle
}

// projectedPriority is the value the priority queue orders by: the job's
// base priority plus its accumulated intra-interval bias.
func (j *Job) projectedPriority() float64 {
	return j.Priority + j.Bias
}

// getStats is a thin pass-through kept so callers in this package never
// touch j.Handle directly, matching the rest of the codebase's habit of
// routing all handle access through the Job record.
func (j *Job) getStats(ctx context.Context) (Stats, error) {
	pending, running, err := j.Handle.GetStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{PendingTasks: pending, RunningTasks: running}, nil
}
