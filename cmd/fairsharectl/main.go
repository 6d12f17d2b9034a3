// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

// Command fairsharectl runs the fair-share policy server and fairness
// controller as a single process, exposing new_job/next_job/snapshot over
// a small JSON HTTP surface. It is a demo/integration harness: the core
// contract (pkg/fairshare) has no network surface of its own.
package main

import (
	"net/http"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/clusterfair/fairshare-core/pkg/fairshare"
	"github.com/clusterfair/fairshare-core/pkg/fairshare/config"
)

func main() {
	opt := config.NewServerOption()
	opt.AddFlags(pflag.CommandLine)
	if err := opt.Validate(); err != nil {
		klog.Fatalf("invalid configuration: %v", err)
	}

	server := fairshare.NewServer()
	defer server.Close()

	if opt.TopologyFile != "" {
		nodes, err := loadTopology(opt.TopologyFile)
		if err != nil {
			klog.Fatalf("loading topology file: %v", err)
		}
		server.UpdateTopology(nodes)
		klog.Infof("loaded initial topology: %d node(s)", len(nodes))
	}

	controller := fairshare.NewController(server, func() float64 { return opt.Alpha }).
		WithStatsDeadline(opt.StatsDeadline)
	controller.Start()
	defer controller.Stop()

	mux := http.NewServeMux()
	newAPI(server).register(mux)

	klog.Infof("fairsharectl listening on %s", opt.ListenAddress)
	if err := http.ListenAndServe(opt.ListenAddress, mux); err != nil {
		klog.Fatalf("http server exited: %v", err)
	}
}
