// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

package jobhandle

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

const getStatsMethod = "/fairshare.jobhandle.v1.JobHandle/GetStats"

// jsonCodec lets the GetStats RPC ride over grpc without a generated
// protobuf stub: the handle's wire contract is a single small
// request/response pair, so a JSON codec keeps the transport real
// (actual grpc framing, actual connectivity/deadline semantics) without
// fabricating a .proto-generated package.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type getStatsRequest struct{}

type getStatsResponse struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
}

// GRPCHandle reaches a real external job process's GetStats RPC over an
// existing grpc.ClientConn.
type GRPCHandle struct {
	conn *grpc.ClientConn
}

// NewGRPCHandle wraps an already-dialed connection to a job process.
func NewGRPCHandle(conn *grpc.ClientConn) *GRPCHandle {
	return &GRPCHandle{conn: conn}
}

// GetStats implements Handle. The deadline is whatever the caller placed
// on ctx (the fairness controller sets a per-job deadline, 100ms by
// default).
func (g *GRPCHandle) GetStats(ctx context.Context) (int, int, error) {
	var resp getStatsResponse
	err := g.conn.Invoke(ctx, getStatsMethod, &getStatsRequest{}, &resp, grpc.CallContentSubtype(jsonCodec{}.Name()))
	if err != nil {
		return 0, 0, err
	}
	return resp.Pending, resp.Running, nil
}

// Done implements Handle: closed once the connection reaches the Shutdown
// state, which happens only when the ClientConn is closed. A remote job
// process that exits or becomes unreachable leaves the connection in
// Idle or TransientFailure and does not close the channel.
func (g *GRPCHandle) Done() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		for {
			state := g.conn.GetState()
			if state == connectivity.Shutdown {
				return
			}
			if !g.conn.WaitForStateChange(context.Background(), state) {
				return
			}
		}
	}()
	return ch
}
