// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package config

import "github.com/pkg/errors"

func errInvalidAlpha(alpha float64) error {
	return errors.Errorf("alpha must be in (0,1], got %v", alpha)
}
