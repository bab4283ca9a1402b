// Package egresstest provides an in-memory egress.Client for tests.
package egresstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/killallgit/meeting-recorder/internal/services/egress"
)

// Call records one request made to the fake
type Call struct {
	Method   string
	RoomName string
	TrackSID string
	Identity string
	EgressID string
	Output   egress.FileOutput
}

var _ egress.Client = (*Client)(nil)

// Client hands out sequential egress IDs and records every call
type Client struct {
	mu    sync.Mutex
	seq   int
	calls []Call

	// StartErr fails every start call when set
	StartErr error
	// StopErr fails every stop call when set
	StopErr error
}

// New returns an empty fake
func New() *Client {
	return &Client{}
}

func (c *Client) start(call Call) (*egress.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.StartErr != nil {
		c.calls = append(c.calls, call)
		return nil, c.StartErr
	}
	c.seq++
	call.EgressID = fmt.Sprintf("EG_fake%d", c.seq)
	c.calls = append(c.calls, call)
	return &egress.Info{EgressID: call.EgressID, RoomName: call.RoomName, Status: "EGRESS_STARTING"}, nil
}

func (c *Client) StartRoomCompositeEgress(_ context.Context, roomName string, output egress.FileOutput) (*egress.Info, error) {
	return c.start(Call{Method: "StartRoomCompositeEgress", RoomName: roomName, Output: output})
}

func (c *Client) StartTrackEgress(_ context.Context, roomName, trackSID string, output egress.FileOutput) (*egress.Info, error) {
	return c.start(Call{Method: "StartTrackEgress", RoomName: roomName, TrackSID: trackSID, Output: output})
}

func (c *Client) StartParticipantEgress(_ context.Context, roomName, identity string, output egress.FileOutput) (*egress.Info, error) {
	return c.start(Call{Method: "StartParticipantEgress", RoomName: roomName, Identity: identity, Output: output})
}

func (c *Client) StopEgress(_ context.Context, egressID string) (*egress.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: "StopEgress", EgressID: egressID})
	if c.StopErr != nil {
		return nil, c.StopErr
	}
	return &egress.Info{EgressID: egressID, Status: "EGRESS_ENDING"}, nil
}

// Calls returns the recorded calls, optionally filtered by method
func (c *Client) Calls(method string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if method == "" || call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Starts counts successful and failed start calls
func (c *Client) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Method != "StopEgress" {
			n++
		}
	}
	return n
}
