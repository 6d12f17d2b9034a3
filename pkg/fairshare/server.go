// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package fairshare

import (
	"sort"
	"sync"

	"github.com/clusterfair/fairshare-core/pkg/fairshare/jobhandle"
	"github.com/clusterfair/fairshare-core/pkg/fairshare/log"
	"github.com/clusterfair/fairshare-core/pkg/fairshare/metrics"
)

// NodeCapacity is one node's reported core count, as carried by
// update_topology (spec.md §4.1).
type NodeCapacity struct {
	NodeID string
	Cores  int
}

// NextJobResult is the outcome of a next_job call: either no job is
// available, or Selected names the chosen job.
type NextJobResult struct {
	Found    bool
	Selected JobID
}

// RegistrySnapshot is a coherent, point-in-time copy of the job registry,
// returned by snapshot_registry.
type RegistrySnapshot struct {
	TotalCores int
	Jobs       map[JobID]Job
}

// Server is the policy server: the authoritative in-memory registry of
// live jobs and the priority queue used to answer next_job. Every
// operation is serialized through a single goroutine's message loop
// (request/request), the actor-boundary mutual exclusion spec.md §5
// requires in place of exposed locks — grounded on the teacher's
// single-threaded per-cycle session model and on
// cache/usagedb.UsageLister's goroutine+stopCh shape.
type Server struct {
	requests chan func()
	closeCh  chan struct{}
	closed   chan struct{}
	once     sync.Once

	registry   map[JobID]*Job
	queue      *jobPriorityQueue
	totalCores int

	topologySubs []chan int
}

// NewServer creates a policy server with an empty registry and zero
// cores, and starts its message loop. Call Close when done.
func NewServer() *Server {
	s := &Server{
		requests: make(chan func()),
		closeCh:  make(chan struct{}),
		closed:   make(chan struct{}),
		registry: make(map[JobID]*Job),
		queue:    newJobPriorityQueue(),
	}
	go s.run()
	return s
}

func (s *Server) run() {
	defer close(s.closed)
	for {
		select {
		case fn := <-s.requests:
			fn()
		case <-s.closeCh:
			return
		}
	}
}

// Close stops the message loop. Pending and future calls return
// errServerClosed; in-flight monitor goroutines exit on their next
// Done()/closeCh select.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.closeCh)
	})
	<-s.closed
}

// call submits fn to the message loop and blocks until it runs, or
// returns errServerClosed if the server has stopped. Every public method
// is built on this so every mutation of registry/queue/totalCores happens
// on the single loop goroutine.
func (s *Server) call(fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case s.requests <- wrapped:
	case <-s.closeCh:
		return errServerClosed
	}
	select {
	case <-done:
		return nil
	case <-s.closeCh:
		return errServerClosed
	}
}

// NextJob is the hot-path query: returns the highest-priority job not in
// exclude, applying the bias step to the selected job. Total and
// non-blocking per spec.md §4.1; never returns an error.
func (s *Server) NextJob(exclude map[JobID]struct{}) NextJobResult {
	var result NextJobResult
	_ = s.call(func() {
		result = s.nextJobLocked(exclude)
	})
	return result
}

func (s *Server) nextJobLocked(exclude map[JobID]struct{}) NextJobResult {
	timer := metrics.ObserveNextJobLatency()
	defer timer()

	if len(s.registry) == 0 || s.totalCores == 0 {
		return NextJobResult{Found: false}
	}

	id, ok := s.queue.first(exclude)
	if !ok {
		return NextJobResult{Found: false}
	}

	s.applyBiasStep(id)
	return NextJobResult{Found: true, Selected: id}
}

// applyBiasStep implements spec.md §4.1's bias step: optimistically nudge
// the just-selected job toward the back of the queue so it isn't handed
// out repeatedly before the controller's next revision.
func (s *Server) applyBiasStep(id JobID) {
	job, ok := s.registry[id]
	if !ok {
		return
	}
	delta := 1.0 / float64(s.totalCores)
	job.Bias += delta
	s.queue.UpdatePriority(id, job.projectedPriority())
}

// NewJob registers a new job with initial priority -1/(|registry|+1)
// (registry size read before insertion) and zero bias/cputime, and arms a
// lifecycle monitor on handle. Returns an error if id is already
// registered, or errServerClosed if the server has stopped.
func (s *Server) NewJob(id JobID, name string, handle jobhandle.Handle) error {
	var callErr error
	if err := s.call(func() {
		if _, exists := s.registry[id]; exists {
			callErr = errDuplicateJob(id)
			return
		}

		// Initial priority is -1/k, where k is this job's ordinal position
		// among the jobs live immediately after it joins the registry
		// (the first job gets -1, the second -1/2, and so on).
		denom := len(s.registry) + 1
		job := &Job{
			ID:       id,
			Name:     name,
			Priority: -1.0 / float64(denom),
			Handle:   handle,
		}
		s.registry[id] = job
		s.queue.Insert(id, job.projectedPriority())
		metrics.SetRegistrySize(len(s.registry))

		go s.watchTermination(id, handle)
	}); err != nil {
		return err
	}
	return callErr
}

// watchTermination removes id from the registry once its handle reports
// termination. Runs outside the message loop (it only ever blocks on
// Done()/closeCh) and submits the actual removal back through call so the
// mutation itself stays serialized.
func (s *Server) watchTermination(id JobID, handle jobhandle.Handle) {
	select {
	case <-handle.Done():
		_ = s.call(func() {
			s.removeJobLocked(id)
		})
	case <-s.closeCh:
	}
}

// removeJobLocked deletes id from registry and queue. Idempotent, per
// spec.md §4.1's "Monitor-driven removal is idempotent".
func (s *Server) removeJobLocked(id JobID) {
	if _, ok := s.registry[id]; !ok {
		return
	}
	delete(s.registry, id)
	s.queue.Remove(id)
	metrics.SetRegistrySize(len(s.registry))
}

// UpdateTopology recomputes total_cores from the reported node capacities
// and notifies any fairness-controller subscribers of the new value.
func (s *Server) UpdateTopology(nodes []NodeCapacity) {
	_ = s.call(func() {
		total := 0
		for _, n := range nodes {
			total += n.Cores
		}
		s.totalCores = total
		metrics.SetTotalCores(total)

		for _, sub := range s.topologySubs {
			select {
			case sub <- total:
			default:
				// Slow subscriber: replace its unread value with the new
				// one rather than block the policy server's message loop.
				select {
				case <-sub:
				default:
				}
				select {
				case sub <- total:
				default:
					log.InfraLogger.V(2).Infof("dropping topology notification: subscriber not ready")
				}
			}
		}
	})
}

// SubscribeTopology returns a channel that receives the new total_cores
// value each time UpdateTopology runs; a value the consumer has not read
// yet is replaced by the newer one, so the channel carries the latest
// total. Intended for exactly one consumer, the fairness controller.
func (s *Server) SubscribeTopology() <-chan int {
	ch := make(chan int, 1)
	_ = s.call(func() {
		s.topologySubs = append(s.topologySubs, ch)
	})
	return ch
}

// ApplyPriorityRevision applies a controller-produced batch of revisions.
// Entries for jobs that no longer exist are silently dropped (spec.md
// §4.1); after the partial update the queue is rebuilt from the updated
// registry.
func (s *Server) ApplyPriorityRevision(revisions []revision) {
	_ = s.call(func() {
		for _, rev := range revisions {
			job, ok := s.registry[rev.id]
			if !ok {
				continue
			}
			job.Priority = rev.priority
			job.Bias = 0
			job.CPUTime = rev.cputime
		}
		s.rebuildQueueLocked()
	})
}

// rebuildQueueLocked reconstructs the priority queue from scratch by
// extracting (priority, job_id) for every live job, per spec.md §4.1.
func (s *Server) rebuildQueueLocked() {
	s.queue = newJobPriorityQueue()
	for id, job := range s.registry {
		s.queue.Insert(id, job.projectedPriority())
	}
}

// SnapshotRegistry returns a coherent copy of the registry and the
// current total_cores, for use by the fairness controller. Returns
// errServerClosed if the server has stopped.
func (s *Server) SnapshotRegistry() (RegistrySnapshot, error) {
	snap := RegistrySnapshot{Jobs: make(map[JobID]Job)}
	err := s.call(func() {
		snap.TotalCores = s.totalCores
		for id, job := range s.registry {
			snap.Jobs[id] = *job
		}
	})
	return snap, err
}

// QueueOrder returns the current queue contents sorted ascending by
// priority, for introspection/tests. Does not mutate the queue.
func (s *Server) QueueOrder() []JobID {
	var out []JobID
	_ = s.call(func() {
		ordered := s.queue.Ascending()
		out = make([]JobID, len(ordered))
		for i, e := range ordered {
			out[i] = e.id
		}
	})
	return out
}

// checkInvariants is used by tests to assert spec.md §8 properties 1-2
// hold: registry/queue membership agreement and ascending queue order.
func (s *Server) checkInvariants() (membershipOK, sortedOK bool) {
	_ = s.call(func() {
		membershipOK = s.queue.Size() == len(s.registry)
		for id := range s.registry {
			if !s.queue.Contains(id) {
				membershipOK = false
			}
		}
		ordered := s.queue.Ascending()
		sortedOK = sort.SliceIsSorted(ordered, func(i, j int) bool {
			return ordered[i].priority < ordered[j].priority
		})
	})
	return
}
