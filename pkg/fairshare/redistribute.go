// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package fairshare

// polledJob is one job's snapshot as seen by a single controller tick:
// its prior priority/cputime (read from the registry) and its freshly
// polled stats. Jobs whose poll failed or timed out get no polledJob.
type polledJob struct {
	id       JobID
	priority float64
	cputime  int64
	stats    Stats
}

// revision is the per-job outcome of one controller tick's share/EMA
// computation, ready to submit to the policy server.
type revision struct {
	id       JobID
	priority float64
	cputime  int64
}

// computeRevisions implements spec.md §4.2 steps 6-11: nominal share,
// donor/needy redistribution of unused capacity, deficit, and the EMA
// priority update. responsive must be non-empty; totalCores must be > 0.
//
// Conceptually grounded on the teacher's proportion-plugin share
// division (cmd/fairshare-simulator wraps
// plugins/proportion/resource_division.SetResourcesShare) and the
// donor/ratio math in plugins/proportion/reclaimable/reclaimable.go; the
// concrete arithmetic here follows spec.md §4.2 directly since the
// resource_division package itself wasn't present in the retrieval pack.
func computeRevisions(responsive []polledJob, totalCores int, alpha float64) (revisions []revision, donors, needy int) {
	n := len(responsive)
	if n == 0 || totalCores <= 0 {
		return nil, 0, 0
	}

	share := float64(totalCores) / float64(n)

	var donatedTotal float64
	for _, job := range responsive {
		if float64(job.stats.PendingTasks) < share {
			donatedTotal += share - float64(job.stats.PendingTasks)
			donors++
		} else {
			needy++
		}
	}

	var extraShare float64
	if needy > 0 {
		extraShare = donatedTotal / float64(needy)
	}

	revisions = make([]revision, 0, n)
	for _, job := range responsive {
		var myShare float64
		if float64(job.stats.PendingTasks) < share {
			myShare = float64(job.stats.PendingTasks)
		} else {
			myShare = share + extraShare
		}

		deficit := (float64(job.stats.RunningTasks) - myShare) / float64(totalCores)
		newPriority := alpha*deficit + (1-alpha)*job.priority

		revisions = append(revisions, revision{
			id:       job.id,
			priority: newPriority,
			cputime:  job.cputime + int64(job.stats.RunningTasks),
		})
	}
	return revisions, donors, needy
}
