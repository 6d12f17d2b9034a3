// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

// Package jobhandle defines the interface the policy server and fairness
// controller use to reach an external job process: report its pending and
// running task counts, and notify on termination. Two implementations are
// provided: GRPCHandle for real job processes, and FakeHandle for tests
// and the demo CLI.
package jobhandle

import "context"

// Handle is the external collaborator interface named in spec.md §6: a
// get_stats request/reply and a lifecycle monitor.
type Handle interface {
	// GetStats returns the job's current (pending_tasks, running_tasks).
	// Implementations must respect ctx's deadline.
	GetStats(ctx context.Context) (pending int, running int, err error)

	// Done returns a channel that is closed when the external job process
	// has terminated. The policy server treats this as the lifecycle
	// monitor firing.
	Done() <-chan struct{}
}
