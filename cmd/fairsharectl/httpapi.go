// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"k8s.io/klog/v2"

	"github.com/clusterfair/fairshare-core/pkg/fairshare"
	"github.com/clusterfair/fairshare-core/pkg/fairshare/jobhandle"
)

// api wires the policy server onto a tiny JSON HTTP surface, mirroring
// the teacher's joborder.JobOrderPlugin introspection handler and
// framework.PluginServer's mux-registration pattern, adapted from one
// plugin's /get-jobs dump to this core's new_job, next_job, snapshot and
// update_topology messages, plus a /queue order dump.
type api struct {
	server *fairshare.Server
}

func newAPI(server *fairshare.Server) *api {
	return &api{server: server}
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("/new-job", a.handleNewJob)
	mux.HandleFunc("/next-job", a.handleNextJob)
	mux.HandleFunc("/snapshot", a.handleSnapshot)
	mux.HandleFunc("/update-topology", a.handleUpdateTopology)
	mux.HandleFunc("/queue", a.handleQueueOrder)
}

type newJobRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	GRPCAddress    string `json:"grpc_address"`
	InitialPending int    `json:"initial_pending"`
	InitialRunning int    `json:"initial_running"`
}

type newJobResponse struct {
	ID string `json:"id"`
}

func (a *api) handleNewJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req newJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	handle, err := a.resolveHandle(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if err := a.server.NewJob(fairshare.JobID(req.ID), req.Name, handle); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, newJobResponse{ID: req.ID})
}

// resolveHandle dials a real job process when grpc_address is supplied,
// otherwise returns an in-memory fake seeded with the requested stats
// (useful for driving the demo without standing up an external job).
func (a *api) resolveHandle(req newJobRequest) (jobhandle.Handle, error) {
	if req.GRPCAddress == "" {
		return jobhandle.NewFakeHandle(req.InitialPending, req.InitialRunning), nil
	}

	conn, err := grpc.NewClient(req.GRPCAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return jobhandle.NewGRPCHandle(conn), nil
}

type nextJobRequest struct {
	Exclude []string `json:"exclude"`
}

type nextJobResponse struct {
	Found    bool   `json:"found"`
	Selected string `json:"selected,omitempty"`
}

func (a *api) handleNextJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req nextJobRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	exclude := make(map[fairshare.JobID]struct{}, len(req.Exclude))
	for _, id := range req.Exclude {
		exclude[fairshare.JobID(id)] = struct{}{}
	}

	result := a.server.NextJob(exclude)
	writeJSON(w, nextJobResponse{Found: result.Found, Selected: string(result.Selected)})
}

type jobView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Priority       float64 `json:"priority"`
	Bias           float64 `json:"bias"`
	CPUTimeSeconds int64   `json:"cputime_seconds"`
	CPUTimeHuman   string  `json:"cputime_human"`
}

type snapshotResponse struct {
	TotalCores int       `json:"total_cores"`
	Jobs       []jobView `json:"jobs"`
}

func (a *api) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := a.server.SnapshotRegistry()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	resp := snapshotResponse{TotalCores: snap.TotalCores, Jobs: make([]jobView, 0, len(snap.Jobs))}
	for id, job := range snap.Jobs {
		resp.Jobs = append(resp.Jobs, jobView{
			ID:             string(id),
			Name:           job.Name,
			Priority:       job.Priority,
			Bias:           job.Bias,
			CPUTimeSeconds: job.CPUTime,
			CPUTimeHuman:   humanize.Comma(job.CPUTime) + " core-seconds",
		})
	}
	writeJSON(w, resp)
}

type updateTopologyRequest struct {
	Nodes []struct {
		NodeID string `json:"node_id"`
		Cores  int    `json:"cores"`
	} `json:"nodes"`
}

func (a *api) handleUpdateTopology(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req updateTopologyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	nodes := make([]fairshare.NodeCapacity, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		nodes = append(nodes, fairshare.NodeCapacity{NodeID: n.NodeID, Cores: n.Cores})
	}
	a.server.UpdateTopology(nodes)
	w.WriteHeader(http.StatusNoContent)
}

type queueOrderResponse struct {
	Order []string `json:"order"`
}

// handleQueueOrder dumps the policy server's ascending-priority queue,
// the same view checkInvariants uses internally to assert ordering.
func (a *api) handleQueueOrder(w http.ResponseWriter, r *http.Request) {
	ordered := a.server.QueueOrder()
	out := make([]string, len(ordered))
	for i, id := range ordered {
		out[i] = string(id)
	}
	writeJSON(w, queueOrderResponse{Order: out})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("writing response: %v", err)
	}
}
