// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package fairshare

import "container/heap"

// queueEntry is one (priority, job_id) pair tracked by the priority queue.
type queueEntry struct {
	id       JobID
	priority float64
	index    int // position in the heap, maintained by container/heap
}

// jobPriorityQueue is an ascending-priority min-heap over queueEntry,
// adapted from scheduler_util.PriorityQueue: that type wraps
// container/heap around an opaque interface{} and never removes a
// non-root element. apply_priority_revision and the bias step both need
// O(log n) removal and re-priority of an arbitrary job, so this version
// keeps an id->index map and exposes update/remove-by-id.
type jobPriorityQueue struct {
	entries []*queueEntry
	index   map[JobID]*queueEntry
}

func newJobPriorityQueue() *jobPriorityQueue {
	return &jobPriorityQueue{
		index: make(map[JobID]*queueEntry),
	}
}

// heap.Interface implementation.

func (q *jobPriorityQueue) Len() int { return len(q.entries) }

func (q *jobPriorityQueue) Less(i, j int) bool {
	a, b := q.entries[i], q.entries[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	// Tiebreak resolved per spec.md §9 Open Question: deterministic
	// ascending job-id order rather than leaving it to insertion order.
	return a.id < b.id
}

func (q *jobPriorityQueue) Swap(i, j int) {
	q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	q.entries[i].index = i
	q.entries[j].index = j
}

func (q *jobPriorityQueue) Push(x interface{}) {
	e := x.(*queueEntry)
	e.index = len(q.entries)
	q.entries = append(q.entries, e)
}

func (q *jobPriorityQueue) Pop() interface{} {
	old := q.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	q.entries = old[:n-1]
	return e
}

// Insert adds job id at the given priority. id must not already be present.
func (q *jobPriorityQueue) Insert(id JobID, priority float64) {
	e := &queueEntry{id: id, priority: priority}
	q.index[id] = e
	heap.Push(q, e)
}

// Remove deletes id from the queue. No-op if id is absent.
func (q *jobPriorityQueue) Remove(id JobID) {
	e, ok := q.index[id]
	if !ok {
		return
	}
	heap.Remove(q, e.index)
	delete(q.index, id)
}

// UpdatePriority re-priorities id in place, preserving heap order. No-op
// if id is absent.
func (q *jobPriorityQueue) UpdatePriority(id JobID, priority float64) {
	e, ok := q.index[id]
	if !ok {
		return
	}
	e.priority = priority
	heap.Fix(q, e.index)
}

// Size returns the number of entries in the queue.
func (q *jobPriorityQueue) Size() int { return len(q.entries) }

// Contains reports whether id is present in the queue.
func (q *jobPriorityQueue) Contains(id JobID) bool {
	_, ok := q.index[id]
	return ok
}

// Ascending returns every (priority, job_id) pair sorted ascending by
// priority, used for introspection/snapshot and invariant checks. It does
// not mutate the heap: the pop-sort below runs over copies of each entry,
// since container/heap.Pop's Swap calls would otherwise overwrite the
// real entries' .index bookkeeping through the shared pointers.
func (q *jobPriorityQueue) Ascending() []queueEntry {
	cp := make([]*queueEntry, len(q.entries))
	for i, e := range q.entries {
		dup := *e
		cp[i] = &dup
	}
	tmp := &jobPriorityQueue{entries: cp}
	out := make([]queueEntry, 0, len(cp))
	for tmp.Len() > 0 {
		e := heap.Pop(tmp).(*queueEntry)
		out = append(out, *e)
	}
	return out
}

// first returns the job id with lowest priority among those not in
// exclude, without mutating the queue. Used by next_job, which must scan
// past excluded entries while leaving their queue positions untouched.
func (q *jobPriorityQueue) first(exclude map[JobID]struct{}) (JobID, bool) {
	if len(q.entries) == 0 {
		return "", false
	}
	ordered := q.Ascending()
	for _, e := range ordered {
		if _, skip := exclude[e.id]; !skip {
			return e.id, true
		}
	}
	return "", false
}
