// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the fairshare core's Prometheus instrumentation,
// modeled directly on pkg/queuecontroller/metrics/metrics.go's
// promauto.NewGaugeVec pattern.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fairshare"

var (
	registrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registry_size",
		Help:      "Number of live jobs in the policy server's registry",
	})

	totalCores = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "total_cores",
		Help:      "Total cluster cores last reported via update_topology",
	})

	nextJobLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "next_job_latency_seconds",
		Help:      "Latency of next_job calls",
		Buckets:   prometheus.DefBuckets,
	})

	controllerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "controller_ticks_total",
		Help:      "Number of fairness controller ticks that ran a revision",
	})

	controllerSkippedTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "controller_skipped_ticks_total",
		Help:      "Number of fairness controller ticks skipped (zero cores, snapshot failure, or no responsive jobs)",
	})

	droppedPolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "controller_dropped_polls_total",
		Help:      "Number of per-job stats polls that timed out or errored and were dropped",
	})

	donorCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "controller_donor_jobs",
		Help:      "Number of jobs that donated unused share on the last controller tick",
	})

	needyCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "controller_needy_jobs",
		Help:      "Number of jobs that absorbed donated share on the last controller tick",
	})
)

// SetRegistrySize records the policy server's current job count.
func SetRegistrySize(n int) { registrySize.Set(float64(n)) }

// SetTotalCores records the cluster's current reported core count.
func SetTotalCores(n int) { totalCores.Set(float64(n)) }

// ObserveNextJobLatency starts a timer; call the returned func when
// next_job returns to record its duration.
func ObserveNextJobLatency() func() {
	start := time.Now()
	return func() {
		nextJobLatency.Observe(time.Since(start).Seconds())
	}
}

// RecordTick records the outcome of one fairness-controller tick.
func RecordTick(skipped bool) {
	if skipped {
		controllerSkippedTicks.Inc()
		return
	}
	controllerTicks.Inc()
}

// RecordDroppedPoll increments the count of unresponsive per-job polls.
func RecordDroppedPoll() { droppedPolls.Inc() }

// RecordShareSplit records how many jobs donated vs. absorbed share on
// the last tick.
func RecordShareSplit(donors, needy int) {
	donorCount.Set(float64(donors))
	needyCount.Set(float64(needy))
}
