// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package jobhandle

import (
	"context"
	"errors"
	"sync"
)

// ErrUnresponsive is returned by FakeHandle.GetStats when the handle has
// been configured to simulate a crashed or hung job process.
var ErrUnresponsive = errors.New("jobhandle: job did not respond")

// FakeHandle is an in-memory Handle for tests and the demo CLI, mirroring
// the teacher's split between a real backend client and a hand-written
// fake implementing the same interface.
type FakeHandle struct {
	mu           sync.Mutex
	pending      int
	running      int
	unresponsive bool
	delay        <-chan struct{} // optional: GetStats blocks until this fires or ctx expires
	done         chan struct{}
	once         sync.Once
}

// NewFakeHandle creates a FakeHandle reporting the given stats.
func NewFakeHandle(pending, running int) *FakeHandle {
	return &FakeHandle{
		pending: pending,
		running: running,
		done:    make(chan struct{}),
	}
}

// SetStats updates the stats this handle reports.
func (f *FakeHandle) SetStats(pending, running int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = pending
	f.running = running
}

// SetUnresponsive makes subsequent GetStats calls fail with ErrUnresponsive
// until cleared, simulating a job that crashed or hung.
func (f *FakeHandle) SetUnresponsive(unresponsive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unresponsive = unresponsive
}

// BlockUntil makes GetStats hang until ch fires, simulating a slow job
// process so callers can exercise the controller's bounded-call timeout.
func (f *FakeHandle) BlockUntil(ch <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = ch
}

// GetStats implements Handle.
func (f *FakeHandle) GetStats(ctx context.Context) (int, int, error) {
	f.mu.Lock()
	unresponsive := f.unresponsive
	delay := f.delay
	f.mu.Unlock()

	if unresponsive {
		return 0, 0, ErrUnresponsive
	}

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, f.running, nil
}

// Done implements Handle.
func (f *FakeHandle) Done() <-chan struct{} {
	return f.done
}

// Terminate closes the Done channel, simulating the external job process
// exiting. Safe to call more than once.
func (f *FakeHandle) Terminate() {
	f.once.Do(func() {
		close(f.done)
	})
}
