// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package session implements the device's connection state machine: dialing
// the server, registering, negotiating the activity timeout, syncing
// channel values every tick, and reconnecting with backoff when the
// connection is lost. It is driven by repeated calls to Tick, either from a
// host-managed loop or from the goroutine Start spins up.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/go-supla/libsupla/internal/clock"
	"github.com/go-supla/libsupla/internal/proto"
	"github.com/go-supla/libsupla/internal/rpc"
	"github.com/go-supla/libsupla/internal/srpc"
	"github.com/go-supla/libsupla/internal/transport"
)

// State is a device session's position in its connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateInit
	StateConnected
	StateRegistered
	StateOnline
	StateConfig
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInit:
		return "init"
	case StateConnected:
		return "connected"
	case StateRegistered:
		return "registered"
	case StateOnline:
		return "online"
	case StateConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ChannelHandle is the narrow view the session needs of a channel to
// register it, drain its dirty slots and deliver inbound calls to it. The
// public Channel type implements this so the engine never imports the
// public package.
type ChannelHandle interface {
	Number() uint8
	Registration() srpc.ChannelRegistration
	HasExtendedValue() bool

	ValueDirty() bool
	DrainValue() [proto.ValueSize]byte
	MarkValueSynced()

	ExtendedValueDirty() bool
	DrainExtendedValue() []byte
	MarkExtendedValueSynced()

	ActionTriggerDirty() bool
	DrainActionTrigger() proto.ActionCap

	ApplyFunction(fn proto.Function)
	OnSetValue(value [proto.ValueSize]byte) proto.SetValueResult
	OnStateRequest(uptime, connUptime uint32, lastReset proto.ResetCause) srpc.ChannelStateResult
	OnCalCfgRequest(req srpc.CalCfgRequest) srpc.CalCfgResult

	HasConfigCallback() bool
	OnConfigRecv(data []byte)
	DefaultCaption() string
}

// Config carries the connection and registration parameters needed to run
// a session.
type Config struct {
	GUID            [proto.GUIDSize]byte
	AuthKey         [proto.AuthKeySize]byte
	Name            string
	SoftVersion     string
	ServerAddress   string
	ActivityTimeout uint8
	Transport       transport.Options
	FramesPerSecond int

	ManufacturerID int16
	ProductID      int16
	Flags          proto.DeviceFlag

	NotifyEnabled             bool
	NotifyServerManagedFields uint8

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Callbacks are invoked by the engine as session-level events occur. Every
// field is optional; a nil callback is simply skipped.
type Callbacks struct {
	OnStateChanged          func(State)
	OnChannelStateRequested func(channelNumber uint8)
	OnServerTimeSync        func(serverTime time.Time)
	OnServerReqRestart      func()
	OnRegisterResult        func(proto.RegisterResult)
}

// Dial opens a transport to the server. It exists as an interface point so
// tests can substitute an in-process fake instead of a real socket.
type Dialer func(ctx context.Context, addr string, opts transport.Options) (transport.Adapter, error)

// Machine is the session state machine for a single device.
type Machine struct {
	cfg       Config
	callbacks Callbacks
	dial      Dialer
	clock     clock.Clock
	logger    *slog.Logger
	channels  func() []ChannelHandle
	drainNotifications func() []srpc.SendNotification

	mu              sync.Mutex
	state           State
	disp            *rpc.Dispatcher
	conn            transport.Adapter
	pendingRegister bool
	connectedAt     time.Time
	registeredAt    time.Time
	lastPing        time.Time
	lastPong        time.Time
	resetCause      proto.ResetCause
	startTime       time.Time

	bo atomic.Pointer[backoff.ExponentialBackOff]

	stopCh chan struct{}
	stopMu sync.Once
	wg     sync.WaitGroup
}

// New constructs a Machine. channels must return the live set of channels
// to register and drain on every tick.
func New(cfg Config, cb Callbacks, dial Dialer, clk clock.Clock, logger *slog.Logger, channels func() []ChannelHandle, drainNotifications func() []srpc.SendNotification) *Machine {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ActivityTimeout == 0 {
		cfg.ActivityTimeout = proto.DefaultActivityTimeoutSec
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 2 * time.Minute
	}

	m := &Machine{
		cfg:                cfg,
		callbacks:          cb,
		dial:               dial,
		clock:              clk,
		logger:             logger.With("component", "session"),
		channels:           channels,
		drainNotifications: drainNotifications,
		stopCh:             make(chan struct{}),
		startTime:          clk.Now(),
	}
	m.resetBackoff()
	return m
}

func (m *Machine) resetBackoff() {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.InitialBackoff
	bo.MaxInterval = m.cfg.MaxBackoff
	bo.MaxElapsedTime = 0
	m.bo.Store(bo)
}

// State returns the machine's current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	if m.callbacks.OnStateChanged != nil {
		m.callbacks.OnStateChanged(s)
	}
}

// EnterConfigMode moves the session into local configuration mode, mirroring
// a server-initiated enter-config-mode calcfg command. It is a no-op unless
// the session is currently Online.
func (m *Machine) EnterConfigMode() {
	m.mu.Lock()
	if m.state != StateOnline {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.setState(StateConfig)
}

// ExitConfigMode leaves local configuration mode and resumes normal
// operation. It is a no-op unless the session is currently in Config.
func (m *Machine) ExitConfigMode() {
	m.mu.Lock()
	if m.state != StateConfig {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.setState(StateIdle)
}

// Uptime returns how long the device has been started.
func (m *Machine) Uptime() time.Duration {
	return m.clock.Since(m.startTime)
}

// ConnectionUptime returns how long ago the current connection was
// established (when the register call was sent), or zero unless the session
// is Registered or Online.
func (m *Machine) ConnectionUptime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateOnline && m.state != StateRegistered {
		return 0
	}
	return m.clock.Since(m.connectedAt)
}

// ResetCause returns why the last session ended.
func (m *Machine) ResetCause() proto.ResetCause {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCause
}

// Start launches the background goroutine that repeatedly calls Tick until
// Stop is called or ctx is canceled.
func (m *Machine) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop requests the session to shut down and blocks until it has.
func (m *Machine) Stop() {
	m.stopMu.Do(func() { close(m.stopCh) })
	m.closeConn(proto.ResetCauseManualStop)
	m.wg.Wait()
	m.setState(StateIdle)
}

func (m *Machine) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		m.Tick(ctx)

		t := m.clock.NewTimer(100 * time.Millisecond)
		select {
		case <-m.stopCh:
			t.Stop()
			return
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C():
		}
	}
}

// Tick performs one iteration of the state machine: connecting, registering,
// draining dirty channel slots and servicing inbound frames. Inbound reads
// are bounded by a short deadline; in Init a failed dial waits out the
// reconnect backoff (or until Stop or ctx cancellation) before returning.
// It is safe to call from a host-managed loop instead of Start.
func (m *Machine) Tick(ctx context.Context) {
	switch m.State() {
	case StateIdle:
		m.setState(StateInit)
	case StateInit:
		m.tryConnect(ctx)
	case StateConnected:
		m.awaitRegisterResult()
	case StateRegistered:
		m.negotiateActivityTimeout()
	case StateOnline:
		m.serviceOnline(ctx)
	case StateConfig:
		// No channel sync while in local configuration mode; still service
		// inbound calcfg exit requests.
		m.pumpInbound()
	}
}

func (m *Machine) tryConnect(ctx context.Context) {
	conn, err := m.dial(ctx, m.cfg.ServerAddress, m.cfg.Transport)
	if err != nil {
		d := m.bo.Load().NextBackOff()
		m.logger.Warn("connect failed", "error", err, "retry_in", d)
		t := m.clock.NewTimer(d)
		select {
		case <-t.C():
		case <-m.stopCh:
		case <-ctx.Done():
		}
		return
	}

	m.resetBackoff()
	m.mu.Lock()
	m.conn = conn
	m.disp = rpc.New(conn, m.cfg.FramesPerSecond)
	m.connectedAt = m.clock.Now()
	m.pendingRegister = true
	m.mu.Unlock()

	reg := srpc.RegisterDevice{
		GUID:           m.cfg.GUID,
		AuthKey:        m.cfg.AuthKey,
		Name:           m.cfg.Name,
		SoftVersion:    m.cfg.SoftVersion,
		ServerName:     m.cfg.ServerAddress,
		Flags:          m.cfg.Flags,
		ManufacturerID: m.cfg.ManufacturerID,
		ProductID:      m.cfg.ProductID,
	}
	for _, ch := range m.channels() {
		reg.Channels = append(reg.Channels, ch.Registration())
	}
	m.disp.Enqueue(srpc.Frame{CallID: m.disp.NextCallID(), CallType: srpc.CallRegisterDevice, Data: reg.Marshal()})
	if _, err := m.disp.Drain(ctx); err != nil {
		m.logger.Warn("sending register device failed", "error", err)
		m.closeConn(proto.ResetCauseServerConnectionLost)
		return
	}

	m.setState(StateConnected)
}

func (m *Machine) awaitRegisterResult() {
	if conn := m.conn; conn != nil {
		conn.SetDeadline(time.Now().Add(inboundPollTimeout))
		defer conn.SetDeadline(time.Time{})
	}
	f, err := m.disp.TryReadFrame()
	if err != nil {
		return
	}
	if f.CallType != srpc.CallRegisterResult {
		return
	}
	res, err := srpc.UnmarshalRegisterResult(f.Data)
	if err != nil {
		m.logger.Warn("bad register result", "error", err)
		return
	}
	if m.callbacks.OnRegisterResult != nil {
		m.callbacks.OnRegisterResult(res.Result)
	}
	if !res.Result.Success() {
		m.logger.Error("registration rejected", "result", res.Result.String())
		m.closeConn(proto.ResetCauseRegisterTimeout)
		return
	}
	if res.ActivityTimeout > 0 {
		m.cfg.ActivityTimeout = res.ActivityTimeout
	}
	m.registeredAt = m.clock.Now()
	m.setState(StateRegistered)
}

func (m *Machine) negotiateActivityTimeout() {
	m.disp.Enqueue(srpc.Frame{
		CallID:   m.disp.NextCallID(),
		CallType: srpc.CallSetActivityTimeout,
		Data:     srpc.SetActivityTimeout{TimeoutSec: m.cfg.ActivityTimeout}.Marshal(),
	})

	if m.callbacks.OnServerTimeSync != nil {
		m.disp.Enqueue(srpc.Frame{CallID: m.disp.NextCallID(), CallType: srpc.CallGetUserLocalTime})
	}

	for _, ch := range m.channels() {
		if caption := ch.DefaultCaption(); caption != "" {
			m.disp.Enqueue(srpc.Frame{
				CallID:   m.disp.NextCallID(),
				CallType: srpc.CallSetChannelCaption,
				Data:     srpc.SetChannelCaption{ChannelNumber: ch.Number(), Caption: caption}.Marshal(),
			})
		}
	}

	m.disp.Enqueue(srpc.Frame{CallID: m.disp.NextCallID(), CallType: srpc.CallGetChannelFunctions})

	for _, ch := range m.channels() {
		if ch.HasConfigCallback() {
			m.disp.Enqueue(srpc.Frame{
				CallID:   m.disp.NextCallID(),
				CallType: srpc.CallGetChannelConfig,
				Data:     srpc.GetChannelConfig{ChannelNumber: ch.Number()}.Marshal(),
			})
		}
	}

	if m.cfg.NotifyEnabled {
		m.disp.Enqueue(srpc.Frame{
			CallID:   m.disp.NextCallID(),
			CallType: srpc.CallRegisterPushNotification,
			Data: srpc.RegisterPushNotification{
				Enabled:             true,
				ServerManagedFields: m.cfg.NotifyServerManagedFields,
			}.Marshal(),
		})
	}

	m.disp.Drain(context.Background())

	m.mu.Lock()
	m.lastPing = m.clock.Now()
	m.lastPong = m.clock.Now()
	m.mu.Unlock()

	m.setState(StateOnline)
}

func (m *Machine) serviceOnline(ctx context.Context) {
	m.drainChannels()
	m.sendNotifications()
	m.pumpInbound()
	m.checkLiveness(ctx)
	if _, err := m.disp.Drain(ctx); err != nil {
		m.logger.Warn("drain failed, dropping session", "error", err)
		m.closeConn(proto.ResetCauseServerConnectionLost)
	}
}

func (m *Machine) drainChannels() {
	for _, ch := range m.channels() {
		if ch.ValueDirty() {
			v := ch.DrainValue()
			m.disp.Enqueue(srpc.Frame{
				CallID:   m.disp.NextCallID(),
				CallType: srpc.CallDeviceChannelValueChanged,
				Data:     srpc.ChannelValue{ChannelNumber: ch.Number(), Value: v}.Marshal(),
			})
			ch.MarkValueSynced()
		}
		if ch.HasExtendedValue() && ch.ExtendedValueDirty() {
			data := ch.DrainExtendedValue()
			m.disp.Enqueue(srpc.Frame{
				CallID:   m.disp.NextCallID(),
				CallType: srpc.CallChannelExtendedValueChanged,
				Data:     srpc.ChannelExtendedValue{ChannelNumber: ch.Number(), Data: data}.Marshal(),
			})
			ch.MarkExtendedValueSynced()
		}
		if ch.ActionTriggerDirty() {
			action := ch.DrainActionTrigger()
			m.disp.Enqueue(srpc.Frame{
				CallID:   m.disp.NextCallID(),
				CallType: srpc.CallActionTrigger,
				Data:     srpc.ActionTriggerEvent{ChannelNumber: ch.Number(), Action: action}.Marshal(),
			})
		}
	}
}

func (m *Machine) sendNotifications() {
	if m.drainNotifications == nil {
		return
	}
	for _, n := range m.drainNotifications() {
		m.disp.Enqueue(srpc.Frame{CallID: m.disp.NextCallID(), CallType: srpc.CallSendNotification, Data: n.Marshal()})
	}
}

// inboundPollTimeout bounds each inbound read so an idle connection does not
// stall the tick; the deadline is cleared again before anything is written.
const inboundPollTimeout = 50 * time.Millisecond

func (m *Machine) pumpInbound() {
	if m.disp == nil {
		return
	}
	if conn := m.conn; conn != nil {
		conn.SetDeadline(time.Now().Add(inboundPollTimeout))
		defer conn.SetDeadline(time.Time{})
	}
	for i := 0; i < 32; i++ {
		f, err := m.disp.TryReadFrame()
		if err != nil {
			return
		}
		m.handleInbound(f)
	}
}

func (m *Machine) handleInbound(f srpc.Frame) {
	m.mu.Lock()
	m.lastPong = m.clock.Now()
	m.mu.Unlock()

	switch f.CallType {
	case srpc.CallPingResult:
		// last_response already refreshed above.

	case srpc.CallVersionError:
		res, err := srpc.UnmarshalVersionError(f.Data)
		if err != nil {
			return
		}
		m.logger.Warn("server rejected protocol version", "server_version", res.ServerVersion, "server_version_min", res.ServerVersionMin)

	case srpc.CallSetChannelValue:
		cv, err := srpc.UnmarshalChannelValue(f.Data)
		if err != nil {
			return
		}
		m.dispatchSetChannelValue(f.CallID, cv.ChannelNumber, cv.Value)

	case srpc.CallChannelGroupSetValue:
		gv, err := srpc.UnmarshalChannelGroupSetValue(f.Data)
		if err != nil {
			return
		}
		m.dispatchSetChannelValue(f.CallID, gv.ChannelNumber, gv.Value)

	case srpc.CallGetChannelState:
		req, err := srpc.UnmarshalChannelStateRequest(f.Data)
		if err != nil {
			return
		}
		if m.callbacks.OnChannelStateRequested != nil {
			m.callbacks.OnChannelStateRequested(req.ChannelNumber)
		}
		for _, ch := range m.channels() {
			if ch.Number() == req.ChannelNumber {
				result := ch.OnStateRequest(uint32(m.Uptime().Seconds()), uint32(m.ConnectionUptime().Seconds()), m.ResetCause())
				m.disp.Enqueue(srpc.Frame{CallID: f.CallID, CallType: srpc.CallChannelStateResult, Data: result.Marshal()})
				return
			}
		}

	case srpc.CallCalCfgRequest:
		req, err := srpc.UnmarshalCalCfgRequest(f.Data)
		if err != nil {
			return
		}
		m.handleCalCfg(f.CallID, req)

	case srpc.CallGetChannelFunctionsResult:
		res, err := srpc.UnmarshalGetChannelFunctionsResult(f.Data)
		if err != nil {
			return
		}
		for _, ch := range m.channels() {
			if fn, ok := res.Functions[ch.Number()]; ok {
				ch.ApplyFunction(fn)
			}
		}

	case srpc.CallGetUserLocalTimeResult:
		res, err := srpc.UnmarshalUserLocalTimeResult(f.Data)
		if err != nil {
			return
		}
		if m.callbacks.OnServerTimeSync != nil {
			m.callbacks.OnServerTimeSync(time.Unix(res.UnixTime, 0))
		}

	case srpc.CallSetChannelConfig, srpc.CallGetChannelConfigResult:
		cfg, err := srpc.UnmarshalChannelConfig(f.Data)
		if err != nil {
			return
		}
		for _, ch := range m.channels() {
			if ch.Number() == cfg.ChannelNumber {
				ch.OnConfigRecv(cfg.Data)
				return
			}
		}

	case srpc.CallSetDeviceConfig:
		if _, err := srpc.UnmarshalSetDeviceConfig(f.Data); err != nil {
			return
		}
		m.disp.Enqueue(srpc.Frame{
			CallID:   f.CallID,
			CallType: srpc.CallSetDeviceConfigResult,
			Data:     srpc.SetDeviceConfigResult{Result: proto.SetValueResultTrue}.Marshal(),
		})

	case srpc.CallDeviceReconnectRequest:
		if m.callbacks.OnServerReqRestart != nil {
			m.callbacks.OnServerReqRestart()
		}
		m.closeConn(proto.ResetCauseServerConnectionLost)

	default:
		m.logger.Debug("unhandled inbound call", "call_type", f.CallType.String())
	}
}

func (m *Machine) dispatchSetChannelValue(callID uint32, channelNumber uint8, value [proto.ValueSize]byte) {
	for _, ch := range m.channels() {
		if ch.Number() == channelNumber {
			result := ch.OnSetValue(value)
			m.disp.Enqueue(srpc.Frame{
				CallID:   callID,
				CallType: srpc.CallSetChannelValueResult,
				Data: srpc.SetChannelValueResult{
					ChannelNumber: channelNumber,
					Result:        result,
					SendID:        callID,
				}.Marshal(),
			})
			return
		}
	}
}

func (m *Machine) handleCalCfg(callID uint32, req srpc.CalCfgRequest) {
	if !req.SuperUserAuthorized {
		m.disp.Enqueue(srpc.Frame{CallID: callID, CallType: srpc.CallCalCfgResult, Data: srpc.CalCfgResult{
			ChannelNumber: req.ChannelNumber, Command: req.Command, Result: proto.CalCfgResultUnauthorized,
		}.Marshal()})
		return
	}
	if req.ChannelNumber == -1 {
		switch req.Command {
		case proto.CalCfgCommandEnterCfgMode:
			m.setState(StateConfig)
			m.disp.Enqueue(srpc.Frame{CallID: callID, CallType: srpc.CallCalCfgResult, Data: srpc.CalCfgResult{
				ChannelNumber: -1, Command: req.Command, Result: proto.CalCfgResultDone,
			}.Marshal()})
			return
		case proto.CalCfgCommandExitCfgMode:
			m.setState(StateIdle)
			m.disp.Enqueue(srpc.Frame{CallID: callID, CallType: srpc.CallCalCfgResult, Data: srpc.CalCfgResult{
				ChannelNumber: -1, Command: req.Command, Result: proto.CalCfgResultDone,
			}.Marshal()})
			return
		}
	}
	for _, ch := range m.channels() {
		if int16(ch.Number()) == req.ChannelNumber {
			result := ch.OnCalCfgRequest(req)
			m.disp.Enqueue(srpc.Frame{CallID: callID, CallType: srpc.CallCalCfgResult, Data: result.Marshal()})
			return
		}
	}
	m.disp.Enqueue(srpc.Frame{CallID: callID, CallType: srpc.CallCalCfgResult, Data: srpc.CalCfgResult{
		ChannelNumber: req.ChannelNumber, Command: req.Command, Result: proto.CalCfgResultIDNotExists,
	}.Marshal()})
}

// checkLiveness sends a ping once the connection has been idle for
// activity_timeout-5 seconds, and drops the session if no pong (or any
// traffic) has arrived within activity_timeout+10 seconds of the last one,
// mirroring the margins the original firmware uses.
func (m *Machine) checkLiveness(ctx context.Context) {
	m.mu.Lock()
	idle := m.clock.Since(m.lastPing)
	sincePong := m.clock.Since(m.lastPong)
	m.mu.Unlock()

	timeout := time.Duration(m.cfg.ActivityTimeout) * time.Second
	if sincePong > timeout+10*time.Second {
		m.logger.Warn("activity timeout exceeded, reconnecting")
		m.closeConn(proto.ResetCauseActivityTimeout)
		return
	}
	if idle >= timeout-5*time.Second {
		m.mu.Lock()
		m.lastPing = m.clock.Now()
		m.mu.Unlock()
		m.disp.Enqueue(srpc.Frame{CallID: m.disp.NextCallID(), CallType: srpc.CallPing})
	}
}

func (m *Machine) closeConn(cause proto.ResetCause) {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.disp = nil
	m.resetCause = cause
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.setState(StateInit)
}
