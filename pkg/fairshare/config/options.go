// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/clusterfair/fairshare-core/pkg/fairshare/log"
)

const (
	// FairyInterval is the fixed period of the fairness controller's loop.
	// Not a flag: spec-mandated at 1000ms, overridable only by tests that
	// construct a Controller directly.
	FairyInterval = time.Second

	defaultAlpha          = 0.5
	defaultStatsDeadline  = 100 * time.Millisecond
	defaultVerbosityLevel = 2
	defaultListenAddress  = ":8080"
)

// ServerOption holds the runtime-configurable parameters of the fairshare
// core. Mirrors the flags-struct-plus-AddFlags shape used by the rest of
// this family of schedulers.
type ServerOption struct {
	Alpha          float64
	StatsDeadline  time.Duration
	Verbosity      int
	ListenAddress  string
	SchedulerConf  string
	TopologyFile   string
}

// fileOverrides is the subset of ServerOption that may be supplied via
// -scheduler-conf instead of (or in addition to) flags.
type fileOverrides struct {
	Alpha *float64 `yaml:"alpha"`
}

// NewServerOption returns a ServerOption populated with defaults.
func NewServerOption() *ServerOption {
	return &ServerOption{
		Alpha:         defaultAlpha,
		StatsDeadline: defaultStatsDeadline,
		Verbosity:     defaultVerbosityLevel,
		ListenAddress: defaultListenAddress,
	}
}

// AddFlags registers the fairshare core's flags on fs.
func (s *ServerOption) AddFlags(fs *pflag.FlagSet) {
	fs.Float64Var(&s.Alpha, "alpha", defaultAlpha,
		"EMA smoothing coefficient in (0,1] used by the fairness controller")
	fs.DurationVar(&s.StatsDeadline, "stats-deadline", defaultStatsDeadline,
		"Per-job deadline for the controller's get_stats call")
	fs.IntVar(&s.Verbosity, "v", defaultVerbosityLevel, "Verbosity level")
	fs.StringVar(&s.ListenAddress, "listen-address", defaultListenAddress,
		"The address to listen on for the introspection HTTP surface")
	fs.StringVar(&s.SchedulerConf, "scheduler-conf", "",
		"Optional YAML file overriding alpha at startup")
	fs.StringVar(&s.TopologyFile, "topology-file", "",
		"Optional YAML file describing the initial cluster topology ([]{node_id, cores})")
}

// Validate parses flags, applies any -scheduler-conf overrides, logs every
// resolved flag at V(1), and rejects out-of-range values.
func (s *ServerOption) Validate() error {
	pflag.Parse()

	if s.SchedulerConf != "" {
		if err := s.applyFileOverrides(s.SchedulerConf); err != nil {
			return err
		}
	}

	if s.Alpha <= 0 || s.Alpha > 1 {
		return errInvalidAlpha(s.Alpha)
	}

	log.SetVerbosity(s.Verbosity)
	pflag.VisitAll(func(flag *pflag.Flag) {
		log.InfraLogger.V(1).Infof("FLAG: --%s=%q", flag.Name, flag.Value)
	})
	return nil
}

func (s *ServerOption) applyFileOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return err
	}

	if overrides.Alpha != nil {
		s.Alpha = *overrides.Alpha
	}
	return nil
}
