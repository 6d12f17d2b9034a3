// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package fairshare

import "github.com/pkg/errors"

// errDuplicateJob is returned when NewJob is called with an id already
// present in the registry. Per spec.md §4.1 this is a programmer-contract
// violation, not a recoverable runtime condition.
func errDuplicateJob(id JobID) error {
	return errors.Errorf("fairshare: job %q already registered", id)
}

// errServerClosed is returned by NewJob and SnapshotRegistry when issued
// after Close; operations without an error result return their zero value.
var errServerClosed = errors.New("fairshare: policy server is closed")
