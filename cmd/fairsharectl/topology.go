// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clusterfair/fairshare-core/pkg/fairshare"
)

// topologyFile is the on-disk shape accepted by -topology-file: a flat
// list of (node_id, cores) pairs, mirroring update_topology's wire shape.
type topologyFile struct {
	Nodes []struct {
		NodeID string `yaml:"node_id"`
		Cores  int    `yaml:"cores"`
	} `yaml:"nodes"`
}

func loadTopology(path string) ([]fairshare.NodeCapacity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology file: %w", err)
	}

	var doc topologyFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing topology file: %w", err)
	}

	nodes := make([]fairshare.NodeCapacity, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes = append(nodes, fairshare.NodeCapacity{NodeID: n.NodeID, Cores: n.Cores})
	}
	return nodes, nil
}
