// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package rpc drives a srpc.Frame stream over a transport.Adapter: queuing
// outbound calls, rate-limiting how many are drained per tick, and decoding
// whatever frames have arrived without blocking the caller.
package rpc

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/go-supla/libsupla/internal/srpc"
	"github.com/go-supla/libsupla/internal/transport"
)

// DefaultFramesPerSecond bounds how many outbound frames Dispatcher.Drain
// will flush per second, preventing a burst of dirty channels from
// saturating the connection in a single tick.
const DefaultFramesPerSecond = 50

// Dispatcher serializes outbound frames onto a transport.Adapter and reads
// inbound frames as they arrive. It is not safe for concurrent use by
// multiple writer goroutines; callers serialize through Enqueue/Drain from
// a single tick loop, matching how the session state machine drives it.
type Dispatcher struct {
	conn    transport.Adapter
	reader  *bufio.Reader
	limiter *rate.Limiter

	mu      sync.Mutex
	pending []srpc.Frame

	nextCallID atomic.Uint32
}

// New wraps conn. framesPerSec <= 0 falls back to DefaultFramesPerSecond.
func New(conn transport.Adapter, framesPerSec int) *Dispatcher {
	if framesPerSec <= 0 {
		framesPerSec = DefaultFramesPerSecond
	}
	return &Dispatcher{
		conn:    conn,
		reader:  bufio.NewReader(connReader{conn}),
		limiter: rate.NewLimiter(rate.Limit(framesPerSec), framesPerSec),
	}
}

// connReader adapts transport.Adapter (which has no io.Reader-shaped method
// set beyond Read) to io.Reader for bufio.
type connReader struct{ c transport.Adapter }

func (r connReader) Read(p []byte) (int, error) { return r.c.Read(p) }

// NextCallID returns a fresh call ID to stamp on an outbound async call.
func (d *Dispatcher) NextCallID() uint32 {
	return d.nextCallID.Add(1)
}

// Enqueue queues f for sending on the next Drain.
func (d *Dispatcher) Enqueue(f srpc.Frame) {
	d.mu.Lock()
	d.pending = append(d.pending, f)
	d.mu.Unlock()
}

// Drain flushes as many queued frames as the rate limiter currently allows,
// returning how many were sent. It never blocks: frames that exceed the
// available token budget remain queued for the next call.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	d.mu.Lock()
	queue := d.pending
	d.pending = nil
	d.mu.Unlock()

	sent := 0
	for i, f := range queue {
		if !d.limiter.Allow() {
			d.mu.Lock()
			d.pending = append(queue[i:], d.pending...)
			d.mu.Unlock()
			return sent, nil
		}
		if err := srpc.WriteFrame(d.conn, f); err != nil {
			d.mu.Lock()
			d.pending = append(queue[i:], d.pending...)
			d.mu.Unlock()
			return sent, fmt.Errorf("rpc: writing frame %s: %w", f.CallType, err)
		}
		sent++
	}
	return sent, nil
}

// TryReadFrame reads one inbound frame if data is already buffered or
// immediately available on the connection; it is meant to be polled from a
// non-blocking tick loop with a short read deadline already set on conn by
// the caller.
func (d *Dispatcher) TryReadFrame() (srpc.Frame, error) {
	return srpc.ReadFrame(d.reader)
}

// Pending reports how many frames are currently queued for send.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
