// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/go-supla/libsupla/internal/clock"
	"github.com/go-supla/libsupla/internal/proto"
	"github.com/go-supla/libsupla/internal/session"
	"github.com/go-supla/libsupla/internal/srpc"
	"github.com/go-supla/libsupla/internal/transport"
)

// Device is a SUPLA client: a session state machine plus the set of
// channels it registers and keeps in sync with the server. A Device is
// safe for concurrent use.
type Device struct {
	logger    *slog.Logger
	callbacks Callbacks

	mu                   sync.RWMutex
	cfg                  Config
	channels             []*Channel
	machine              *session.Machine
	started              bool
	cancel               context.CancelFunc
	pendingNotifications []Notification

	notifyEnabled             bool
	notifyServerManagedFields NotificationField
}

// NewDevice constructs a Device from cfg. callbacks may be the zero value.
// logger may be nil, in which case logs are discarded.
func NewDevice(cfg Config, callbacks Callbacks, logger *slog.Logger) (*Device, error) {
	cfg = cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Device{
		logger:    logger.With("component", "device"),
		callbacks: callbacks,
		cfg:       cfg,
	}
	return d, nil
}

// AddChannel assigns ch the next available channel number and adds it to
// the device. The channel list is append-only once the device is running:
// AddChannel may still be called after Start, but channels already added
// are never removed or renumbered. It returns ErrChannelMax if the device
// already has proto.ChannelMaxCount channels.
func (d *Device) AddChannel(ch *Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) >= proto.ChannelMaxCount {
		return fmt.Errorf("%w: limit is %d", ErrChannelMax, proto.ChannelMaxCount)
	}
	ch.number = len(d.channels)
	d.channels = append(d.channels, ch)
	return nil
}

// GetChannelCount returns how many channels have been added.
func (d *Device) GetChannelCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.channels)
}

// GetChannelByNumber returns the channel at the given index, or
// ErrChannelNotFound.
func (d *Device) GetChannelByNumber(number uint8) (*Channel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if int(number) >= len(d.channels) {
		return nil, fmt.Errorf("%w: %d", ErrChannelNotFound, number)
	}
	return d.channels[number], nil
}

// SetConfig replaces the device's connection configuration. It returns
// ErrAlreadyStarted if the device is currently running.
func (d *Device) SetConfig(cfg Config) error {
	cfg = cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("%w: stop the device before changing its configuration", ErrAlreadyStarted)
	}
	d.cfg = cfg
	return nil
}

// GetConfig returns a copy of the device's current configuration.
func (d *Device) GetConfig() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Start dials the server and runs the session state machine in a
// background goroutine until Stop is called or ctx is canceled. It returns
// ErrAlreadyStarted if already running.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return ErrAlreadyStarted
	}

	sessCfg := session.Config{
		GUID:                      d.cfg.GUID,
		AuthKey:                   d.cfg.AuthKey,
		Name:                      d.cfg.Name,
		SoftVersion:               d.cfg.SoftVersion,
		ServerAddress:             d.serverAddress(),
		ActivityTimeout:           d.cfg.activityTimeout(),
		Transport:                 d.cfg.transportOptions(),
		FramesPerSecond:           d.cfg.FramesPerSecond,
		ManufacturerID:            d.cfg.ManufacturerID,
		ProductID:                 d.cfg.ProductID,
		Flags:                     d.cfg.Flags,
		NotifyEnabled:             d.notifyEnabled,
		NotifyServerManagedFields: uint8(d.notifyServerManagedFields),
		InitialBackoff:            d.cfg.ReconnectInitialBackoff,
		MaxBackoff:                d.cfg.ReconnectMaxBackoff,
	}

	cb := session.Callbacks{
		OnStateChanged: func(s session.State) {
			if d.callbacks.OnStateChanged != nil {
				d.callbacks.OnStateChanged(d, s)
			}
		},
		OnChannelStateRequested: func(channelNumber uint8) {
			if d.callbacks.OnChannelStateRequested != nil {
				d.callbacks.OnChannelStateRequested(d, channelNumber)
			}
		},
		OnServerTimeSync: func(t time.Time) {
			if d.callbacks.OnServerTimeSync != nil {
				d.callbacks.OnServerTimeSync(d, t)
			}
		},
		OnServerReqRestart: func() {
			if d.callbacks.OnServerReqRestart != nil {
				d.callbacks.OnServerReqRestart(d)
			}
		},
		OnRegisterResult: func(r proto.RegisterResult) {
			if d.callbacks.OnRegisterResult != nil {
				d.callbacks.OnRegisterResult(d, r)
			}
		},
	}

	d.machine = session.New(sessCfg, cb, transport.Dial, clock.Real(), d.logger, d.channelHandles, d.drainNotifications)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.machine.Start(runCtx)
	d.started = true
	return nil
}

// Stop shuts the session down and blocks until its goroutine has exited.
// It is a no-op if the device is not running.
func (d *Device) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	machine := d.machine
	cancel := d.cancel
	d.started = false
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	machine.Stop()
}

// Iterate runs one step of the session state machine that Start created.
// It does nothing if Start has not been called, and it does not stop or
// replace the background goroutine that Start runs.
func (d *Device) Iterate(ctx context.Context) {
	d.mu.RLock()
	m := d.machine
	d.mu.RUnlock()
	if m == nil {
		return
	}
	m.Tick(ctx)
}

// EnterConfigMode moves the device into local configuration mode, pausing
// channel synchronization until ExitConfigMode is called. It is a no-op if
// the device is not currently Online.
func (d *Device) EnterConfigMode() {
	d.mu.RLock()
	m := d.machine
	d.mu.RUnlock()
	if m != nil {
		m.EnterConfigMode()
	}
}

// ExitConfigMode leaves local configuration mode and resumes normal
// operation. It is a no-op if the device is not currently in Config.
func (d *Device) ExitConfigMode() {
	d.mu.RLock()
	m := d.machine
	d.mu.RUnlock()
	if m != nil {
		m.ExitConfigMode()
	}
}

// GetFlags returns the device-level capability flags advertised at
// registration.
func (d *Device) GetFlags() DeviceFlag {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.Flags
}

// SetFlags replaces the device-level capability flags advertised at the
// next registration. It returns ErrAlreadyStarted if the device is running.
func (d *Device) SetFlags(flags DeviceFlag) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("%w: stop the device before changing its flags", ErrAlreadyStarted)
	}
	d.cfg.Flags = flags
	return nil
}

// GetManufacturerData returns the manufacturer and product IDs reported at
// registration.
func (d *Device) GetManufacturerData() (manufacturerID, productID int16) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.ManufacturerID, d.cfg.ProductID
}

// SetManufacturerData replaces the manufacturer and product IDs reported at
// the next registration. It returns ErrAlreadyStarted if the device is
// running.
func (d *Device) SetManufacturerData(manufacturerID, productID int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("%w: stop the device before changing its manufacturer data", ErrAlreadyStarted)
	}
	d.cfg.ManufacturerID = manufacturerID
	d.cfg.ProductID = productID
	return nil
}

func (d *Device) channelHandles() []session.ChannelHandle {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]session.ChannelHandle, len(d.channels))
	for i, ch := range d.channels {
		out[i] = ch
	}
	return out
}

func (d *Device) drainNotifications() []srpc.SendNotification {
	d.mu.Lock()
	pending := d.pendingNotifications
	d.pendingNotifications = nil
	d.mu.Unlock()

	out := make([]srpc.SendNotification, len(pending))
	for i, n := range pending {
		out[i] = srpc.SendNotification{ChannelNumber: n.Ctx, Title: n.Title, Message: n.Message, SoundID: n.SoundID, WithSound: n.WithSound}
	}
	return out
}

func (d *Device) serverAddress() string {
	addr := d.cfg.ServerAddress
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return fmt.Sprintf("%s:%d", addr, defaultPort(d.cfg.UseTLS))
}

// GetState returns the device's current connection state.
func (d *Device) GetState() State {
	d.mu.RLock()
	m := d.machine
	d.mu.RUnlock()
	if m == nil {
		return StateIdle
	}
	return m.State()
}

// GetUptime returns how long the device has been started.
func (d *Device) GetUptime() time.Duration {
	d.mu.RLock()
	m := d.machine
	d.mu.RUnlock()
	if m == nil {
		return 0
	}
	return m.Uptime()
}

// GetConnectionUptime returns how long ago the current server connection
// was established, or zero unless the device is Registered or Online.
func (d *Device) GetConnectionUptime() time.Duration {
	d.mu.RLock()
	m := d.machine
	d.mu.RUnlock()
	if m == nil {
		return 0
	}
	return m.ConnectionUptime()
}

// GetResetCause returns why the last session ended.
func (d *Device) GetResetCause() ResetCause {
	d.mu.RLock()
	m := d.machine
	d.mu.RUnlock()
	if m == nil {
		return ResetCauseNone
	}
	return m.ResetCause()
}
