// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-supla/libsupla/internal/clock"
	"github.com/go-supla/libsupla/internal/proto"
	"github.com/go-supla/libsupla/internal/srpc"
	"github.com/go-supla/libsupla/internal/transport"
)

type fakeChannel struct {
	num   uint8
	value [proto.ValueSize]byte
	dirty bool
}

func (c *fakeChannel) Number() uint8 { return c.num }
func (c *fakeChannel) Registration() srpc.ChannelRegistration {
	return srpc.ChannelRegistration{Number: c.num, Type: proto.ChannelTypeThermometer}
}
func (c *fakeChannel) HasExtendedValue() bool { return false }
func (c *fakeChannel) ValueDirty() bool       { return c.dirty }
func (c *fakeChannel) DrainValue() [proto.ValueSize]byte {
	c.dirty = false
	return c.value
}
func (c *fakeChannel) MarkValueSynced()                                  {}
func (c *fakeChannel) ExtendedValueDirty() bool                          { return false }
func (c *fakeChannel) DrainExtendedValue() []byte                        { return nil }
func (c *fakeChannel) MarkExtendedValueSynced()                          {}
func (c *fakeChannel) ActionTriggerDirty() bool                          { return false }
func (c *fakeChannel) DrainActionTrigger() proto.ActionCap               { return 0 }
func (c *fakeChannel) ApplyFunction(proto.Function)                      {}
func (c *fakeChannel) OnSetValue([proto.ValueSize]byte) proto.SetValueResult {
	return proto.SetValueResultTrue
}
func (c *fakeChannel) OnStateRequest(uptime, connUptime uint32, cause proto.ResetCause) srpc.ChannelStateResult {
	return srpc.ChannelStateResult{ChannelNumber: c.num, Uptime: uptime, ConnectionUptime: connUptime, LastConnectionReset: cause}
}
func (c *fakeChannel) OnCalCfgRequest(req srpc.CalCfgRequest) srpc.CalCfgResult {
	return srpc.CalCfgResult{ChannelNumber: req.ChannelNumber, Command: req.Command, Result: proto.CalCfgResultNotSupported}
}
func (c *fakeChannel) HasConfigCallback() bool  { return false }
func (c *fakeChannel) OnConfigRecv(data []byte) {}
func (c *fakeChannel) DefaultCaption() string   { return "" }

type pipeAdapter struct{ net.Conn }

func dialPipe(client net.Conn) Dialer {
	return func(ctx context.Context, addr string, opts transport.Options) (transport.Adapter, error) {
		return pipeAdapter{client}, nil
	}
}

func TestMachineConnectsRegistersAndGoesOnline(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	ch := &fakeChannel{num: 0, dirty: true}
	fc := clock.NewFake(time.Unix(0, 0))

	var gotState []State
	m := New(Config{
		ServerAddress:   "svr.example.com:2016",
		ActivityTimeout: 30,
		FramesPerSecond: 1000,
	}, Callbacks{
		OnStateChanged: func(s State) { gotState = append(gotState, s) },
	}, dialPipe(client), fc, nil, func() []ChannelHandle { return []ChannelHandle{ch} }, nil)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		f, err := srpc.ReadFrame(server)
		if err != nil || f.CallType != srpc.CallRegisterDevice {
			t.Errorf("expected RegisterDevice frame, got %+v err=%v", f, err)
			return
		}
		res := srpc.RegisterResult{Result: proto.RegisterResultSuccess, ActivityTimeout: 30}
		if err := srpc.WriteFrame(server, srpc.Frame{CallType: srpc.CallRegisterResult, Data: res.Marshal()}); err != nil {
			t.Errorf("writing register result: %v", err)
			return
		}

		f, err = srpc.ReadFrame(server)
		if err != nil || f.CallType != srpc.CallSetActivityTimeout {
			t.Errorf("expected SetActivityTimeout, got %+v err=%v", f, err)
			return
		}

		f, err = srpc.ReadFrame(server)
		if err != nil || f.CallType != srpc.CallGetChannelFunctions {
			t.Errorf("expected GetChannelFunctions, got %+v err=%v", f, err)
			return
		}

		f, err = srpc.ReadFrame(server)
		if err != nil || f.CallType != srpc.CallDeviceChannelValueChanged {
			t.Errorf("expected a channel value frame, got %+v err=%v", f, err)
			return
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.Tick(ctx) // Idle -> Init
	m.Tick(ctx) // Init -> connect -> Connected

	deadline := time.Now().Add(2 * time.Second)
	for m.State() != StateOnline && time.Now().Before(deadline) {
		m.Tick(ctx)
		time.Sleep(time.Millisecond)
	}

	if m.State() != StateOnline {
		t.Fatalf("expected state Online, got %v", m.State())
	}

	// One more tick to drain the dirty channel value into an outbound frame.
	m.Tick(ctx)

	select {
	case <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("server goroutine did not complete")
	}
}

func TestMachineEntersConfigModeOnCalCfgRequest(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	fc := clock.NewFake(time.Unix(0, 0))
	m := New(Config{ServerAddress: "svr:2016", ActivityTimeout: 60, FramesPerSecond: 1000},
		Callbacks{}, dialPipe(client), fc, nil, func() []ChannelHandle { return nil }, nil)

	go func() {
		srpc.ReadFrame(server) // register
		res := srpc.RegisterResult{Result: proto.RegisterResultSuccess, ActivityTimeout: 60}
		srpc.WriteFrame(server, srpc.Frame{CallType: srpc.CallRegisterResult, Data: res.Marshal()})
		srpc.ReadFrame(server) // set activity timeout
		srpc.ReadFrame(server) // get channel functions

		req := srpc.CalCfgRequest{ChannelNumber: -1, Command: proto.CalCfgCommandEnterCfgMode}
		var buf []byte
		buf = append(buf, byte(uint16(req.ChannelNumber)>>8), byte(req.ChannelNumber))
		cmd := uint32(req.Command)
		buf = append(buf, byte(cmd>>24), byte(cmd>>16), byte(cmd>>8), byte(cmd))
		buf = append(buf, 1) // SuperUserAuthorized
		buf = append(buf, 0, 0, 0, 0) // data size 0
		srpc.WriteFrame(server, srpc.Frame{CallType: srpc.CallCalCfgRequest, Data: buf})

		srpc.ReadFrame(server) // calcfg result
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Tick(ctx)
	m.Tick(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for m.State() != StateConfig && time.Now().Before(deadline) {
		m.Tick(ctx)
		time.Sleep(time.Millisecond)
	}

	if m.State() != StateConfig {
		t.Fatalf("expected state Config, got %v", m.State())
	}
}

func TestMachineRejectsUnauthorizedPerChannelCalCfg(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	ch := &fakeChannel{num: 0}
	fc := clock.NewFake(time.Unix(0, 0))
	m := New(Config{ServerAddress: "svr:2016", ActivityTimeout: 60, FramesPerSecond: 1000},
		Callbacks{}, dialPipe(client), fc, nil, func() []ChannelHandle { return []ChannelHandle{ch} }, nil)

	resultCh := make(chan srpc.CalCfgResult, 1)
	go func() {
		srpc.ReadFrame(server) // register
		res := srpc.RegisterResult{Result: proto.RegisterResultSuccess, ActivityTimeout: 60}
		srpc.WriteFrame(server, srpc.Frame{CallType: srpc.CallRegisterResult, Data: res.Marshal()})
		srpc.ReadFrame(server) // set activity timeout
		srpc.ReadFrame(server) // get channel functions

		req := srpc.CalCfgRequest{ChannelNumber: 0, Command: proto.CalCfgCommandIdentify}
		var buf []byte
		buf = append(buf, byte(uint16(req.ChannelNumber)>>8), byte(req.ChannelNumber))
		cmd := uint32(req.Command)
		buf = append(buf, byte(cmd>>24), byte(cmd>>16), byte(cmd>>8), byte(cmd))
		buf = append(buf, 0)          // SuperUserAuthorized = false
		buf = append(buf, 0, 0, 0, 0) // data size 0
		srpc.WriteFrame(server, srpc.Frame{CallType: srpc.CallCalCfgRequest, Data: buf})

		f, err := srpc.ReadFrame(server)
		if err != nil || f.CallType != srpc.CallCalCfgResult {
			t.Errorf("expected CalCfgResult, got %+v err=%v", f, err)
			return
		}
		res2, err := srpc.UnmarshalCalCfgResult(f.Data)
		if err != nil {
			t.Errorf("UnmarshalCalCfgResult: %v", err)
			return
		}
		resultCh <- res2
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Tick(ctx)
	m.Tick(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for m.State() != StateOnline && time.Now().Before(deadline) {
		m.Tick(ctx)
		time.Sleep(time.Millisecond)
	}
	m.Tick(ctx)

	select {
	case res := <-resultCh:
		if res.Result != proto.CalCfgResultUnauthorized {
			t.Fatalf("expected an unauthorized per-channel calcfg to be rejected before reaching the channel, got %v", res.Result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server goroutine did not complete")
	}
}

func TestExitConfigModeReturnsToIdle(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	var gotState []State
	m := New(Config{ServerAddress: "svr:2016"}, Callbacks{
		OnStateChanged: func(s State) { gotState = append(gotState, s) },
	}, nil, fc, nil, func() []ChannelHandle { return nil }, nil)

	m.setState(StateOnline)
	m.EnterConfigMode()
	if m.State() != StateConfig {
		t.Fatalf("expected EnterConfigMode to move to Config, got %v", m.State())
	}
	m.ExitConfigMode()
	if m.State() != StateIdle {
		t.Fatalf("expected ExitConfigMode to return to Idle, got %v", m.State())
	}
}
