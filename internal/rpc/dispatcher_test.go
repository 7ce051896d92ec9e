// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-supla/libsupla/internal/srpc"
)

type pipeAdapter struct{ net.Conn }

func TestDispatcherDrainSendsQueuedFrames(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	d := New(pipeAdapter{client}, 100)
	d.Enqueue(srpc.Frame{CallType: srpc.CallPing})
	d.Enqueue(srpc.Frame{CallType: srpc.CallPing})

	done := make(chan error, 1)
	go func() {
		_, err := d.Drain(context.Background())
		done <- err
	}()

	for i := 0; i < 2; i++ {
		if _, err := srpc.ReadFrame(server); err != nil {
			t.Fatalf("server ReadFrame: %v", err)
		}
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Drain: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Drain")
	}

	if d.Pending() != 0 {
		t.Fatalf("expected no pending frames after drain, got %d", d.Pending())
	}
}

func TestDispatcherRateLimitLeavesFramesQueued(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	d := New(pipeAdapter{client}, 1)
	d.limiter.SetBurst(1)
	for i := 0; i < 5; i++ {
		d.Enqueue(srpc.Frame{CallType: srpc.CallPing})
	}

	go srpc.ReadFrame(server)

	sent, err := d.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected exactly 1 frame sent under a 1-token burst, got %d", sent)
	}
	if d.Pending() != 4 {
		t.Fatalf("expected 4 frames left queued, got %d", d.Pending())
	}
}
