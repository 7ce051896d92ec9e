// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-supla/libsupla/internal/proto"
	"github.com/go-supla/libsupla/internal/slot"
	"github.com/go-supla/libsupla/internal/srpc"
)

// ChannelConfig describes a channel's static shape: its type, supported
// functions, capabilities, and whether it only syncs its value when it
// actually changes.
type ChannelConfig struct {
	Type ChannelType

	// SupportedFunctions is the bitmask of functions the server may assign;
	// DefaultFunction must be one of them.
	SupportedFunctions Function
	DefaultFunction    Function

	// SyncOnChangeOnly, when true, only marks the value slot dirty when a
	// Set call actually changes the bytes (relevant for noisy or
	// continuously-polled sensors).
	SyncOnChangeOnly bool

	// ActionCaps and ActionConflicts configure an action-trigger channel;
	// ActionConflicts maps an action to the set of other actions that
	// become unavailable once it has fired once this session.
	ActionCaps       ActionCap
	ActionConflicts  map[ActionCap]ActionCap

	// ValidityTimeSec and DefaultCaption are optional metadata sent at
	// registration.
	ValidityTimeSec uint32
	DefaultCaption  string

	// Flags advertises optional per-channel capabilities at registration.
	// ChannelFlagChannelState is OR'd in automatically when OnGetState is
	// set, so it does not need to be listed here.
	Flags ChannelFlag

	// RelatedChannel names another channel this one is functionally paired
	// with (an action trigger's controlled relay, for example). Leave nil
	// if the channel has no related channel.
	RelatedChannel *Channel

	// OnSetValue handles a server-initiated set-value call; it is required
	// for channel types the server can write to (relays, dimmers,
	// thermostats). Channels without it reply "not allowed".
	OnSetValue func(ch *Channel, value [16]byte) bool

	// OnCalCfgRequest handles a server-initiated per-channel configuration
	// command. Channels without it reply "not supported".
	OnCalCfgRequest func(ch *Channel, command CalCfgCommand, superUser bool, data []byte) CalCfgResult

	// OnGetState augments a channel-state reply with channel-specific
	// fields; it runs after the device's common state callback. Setting it
	// also sets ChannelFlagChannelState in the channel's registration flags.
	OnGetState func(ch *Channel, report *ChannelStateReport)

	// OnConfigRecv delivers a set-channel-config push or the reply to a
	// get-channel-config request. Channels that don't set it simply ignore
	// server-side configuration.
	OnConfigRecv func(ch *Channel, data []byte)
}

// ChannelStateReport is the channel-state reply a host builds in OnGetState,
// augmenting whatever the device's own network/battery state already set.
// Fields left unmarked by Set* are left as the common reply built them.
type ChannelStateReport struct {
	fields proto.ChannelStateField

	IPv4           [4]byte
	MAC            [6]byte
	BatteryLevel   uint8
	BatteryPowered bool
}

// SetNetwork overrides the IPv4/MAC fields of the reply.
func (r *ChannelStateReport) SetNetwork(ipv4 [4]byte, mac [6]byte) {
	r.IPv4 = ipv4
	r.MAC = mac
	r.fields |= proto.ChannelStateFieldIPv4 | proto.ChannelStateFieldMAC
}

// SetBattery overrides the battery level and power source fields of the
// reply.
func (r *ChannelStateReport) SetBattery(levelPercent uint8, powered bool) {
	r.BatteryLevel = levelPercent
	r.BatteryPowered = powered
	r.fields |= proto.ChannelStateFieldBatteryLevel | proto.ChannelStateFieldBatteryPowered
}

// Channel represents one logical value, sensor reading, or control surface
// exposed by a Device. Create one with NewChannel and add it with
// Device.AddChannel before starting the device.
type Channel struct {
	number int
	cfg    ChannelConfig

	value         *slot.Value
	extValue      *slot.ExtendedValue
	actionTrigger *slot.ActionTrigger

	// mu guards the fields below, which the session's tick goroutine reads
	// and a host's own goroutines write (or vice versa). It is never held
	// while invoking a host callback.
	mu sync.Mutex

	assignedFunction Function

	hasNetworkState bool
	ipv4            [4]byte
	mac             [6]byte
	hasBatteryState bool
	batteryLevel    uint8
	batteryPowered  bool
}

// NewChannel constructs a channel from cfg. It is not usable until added to
// a Device with AddChannel, which assigns it a channel number. It returns
// ErrInvalidArgument if cfg.Type is not a recognized channel type.
func NewChannel(cfg ChannelConfig) (*Channel, error) {
	if !cfg.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown channel type %v", ErrInvalidArgument, cfg.Type)
	}
	c := &Channel{number: -1, cfg: cfg, assignedFunction: cfg.DefaultFunction}
	c.value = slot.NewValue(cfg.SyncOnChangeOnly)
	if cfg.Type.HasExtendedValue() {
		c.extValue = slot.NewExtendedValue()
	}
	if cfg.Type == ChannelTypeActionTrigger {
		c.actionTrigger = slot.NewActionTrigger(cfg.ActionCaps, toSlotConflicts(cfg.ActionConflicts))
	}
	return c, nil
}

func toSlotConflicts(m map[ActionCap]ActionCap) map[proto.ActionCap]proto.ActionCap {
	if m == nil {
		return nil
	}
	out := make(map[proto.ActionCap]proto.ActionCap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Number returns the channel's assigned index. Until the channel has been
// added to a Device with AddChannel its index is -1, which Number returns
// as 255.
func (c *Channel) Number() uint8 { return uint8(c.number) }

// Type returns the channel's configured type.
func (c *Channel) Type() ChannelType { return c.cfg.Type }

// Function returns the function the server has assigned this channel, or
// the configured default if the server has not enumerated it yet.
func (c *Channel) Function() Function {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assignedFunction
}

// SetDoubleValue packs f as the channel's primary value (thermometers,
// distance sensors, humidity-only readings).
func (c *Channel) SetDoubleValue(f float64) {
	c.value.SetDouble(f)
}

// SetBinaryValue sets a single on/off byte value (binary sensors).
func (c *Channel) SetBinaryValue(on bool) {
	if on {
		c.value.SetByte(1)
	} else {
		c.value.SetByte(0)
	}
}

// SetHumidityAndTemperatureValue packs humidity and temperature into the
// two leading 4-byte fields of the value buffer, matching the wire layout
// combined humidity/temperature channels use.
func (c *Channel) SetHumidityAndTemperatureValue(humidityPercent, temperatureC float64) {
	var buf [16]byte
	binaryPutInt32(buf[0:4], int32(math.Round(temperatureC*1000)))
	binaryPutInt32(buf[4:8], int32(math.Round(humidityPercent*1000)))
	c.value.Set(buf)
}

// SetRelayValue sets a relay channel's on/off state.
func (c *Channel) SetRelayValue(on bool) {
	c.SetBinaryValue(on)
}

// SetRGBWValue packs brightness, color-brightness and RGB color into the
// value buffer.
func (c *Channel) SetRGBWValue(brightness, colorBrightness uint8, r, g, b uint8) {
	var buf [16]byte
	buf[0] = brightness
	buf[1] = colorBrightness
	buf[2] = r
	buf[3] = g
	buf[4] = b
	c.value.Set(buf)
}

// SetImpulseCounterValue sets the impulse counter's current total. Like the
// other setters it honors SyncOnChangeOnly: with it set, writing an
// unchanged total does not mark the value for sync.
func (c *Channel) SetImpulseCounterValue(total uint64) {
	var buf [16]byte
	binaryPutUint64(buf[0:8], total)
	c.value.Set(buf)
}

// SetRollerShutterValue sets a roller shutter's position (0-100%).
func (c *Channel) SetRollerShutterValue(positionPercent uint8) {
	c.value.SetByte(positionPercent)
}

// SetFacadeBlindValue sets a facade blind's position and tilt (0-100% each).
func (c *Channel) SetFacadeBlindValue(positionPercent, tiltPercent uint8) {
	var buf [16]byte
	buf[0] = positionPercent
	buf[1] = tiltPercent
	c.value.Set(buf)
}

// SetElectricityMeterValue sets the summary value buffer; detailed
// per-phase measurements go through SetElectricityMeterExtendedValue.
func (c *Channel) SetElectricityMeterValue(totalForwardActiveEnergyWh uint64) {
	var buf [16]byte
	binaryPutUint64(buf[0:8], totalForwardActiveEnergyWh)
	c.value.Set(buf)
}

// SetElectricityMeterExtendedValue stores a raw, protocol-shaped
// electricity meter measurement payload.
func (c *Channel) SetElectricityMeterExtendedValue(data []byte) error {
	_, err := c.extValue.Set(data)
	return err
}

// SetThermostatValue sets the thermostat's summary state.
func (c *Channel) SetThermostatValue(measuredTempC, targetTempC float64, on bool) {
	var buf [16]byte
	binaryPutInt32(buf[0:4], int32(math.Round(measuredTempC*100)))
	binaryPutInt32(buf[4:8], int32(math.Round(targetTempC*100)))
	if on {
		buf[8] = 1
	}
	c.value.Set(buf)
}

// SetThermostatExtendedValue stores a raw, protocol-shaped thermostat
// extended state payload (schedule, flags).
func (c *Channel) SetThermostatExtendedValue(data []byte) error {
	_, err := c.extValue.Set(data)
	return err
}

// EmitAction records that an action-trigger channel fired action. It
// returns ErrInvalidArgument if the channel is not an action-trigger
// channel, and the slot package's own errors if the action is unsupported
// or disabled by a conflicting action already fired this session.
func (c *Channel) EmitAction(action ActionCap) error {
	if c.actionTrigger == nil {
		return fmt.Errorf("%w: channel %d is not an action-trigger channel", ErrInvalidArgument, c.number)
	}
	return c.actionTrigger.Emit(action)
}

func binaryPutInt32(b []byte, v int32) { binaryPutUint32(b, uint32(v)) }

func binaryPutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func binaryPutUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// --- session.ChannelHandle implementation ---

func (c *Channel) Registration() srpc.ChannelRegistration {
	var related int16
	if c.cfg.RelatedChannel != nil {
		related = int16(c.cfg.RelatedChannel.Number()) + 1
	}
	flags := c.cfg.Flags
	if c.cfg.OnGetState != nil {
		flags |= ChannelFlagChannelState
	}
	return srpc.ChannelRegistration{
		Number:          uint8(c.number),
		Type:            c.cfg.Type,
		DefaultFunction: c.cfg.DefaultFunction,
		SupportedFuncs:  c.cfg.SupportedFunctions,
		ActionCaps:      c.cfg.ActionCaps,
		Flags:           flags,
		ValidityTimeSec: c.cfg.ValidityTimeSec,
		RelatedChannel:  related,
		DefaultCaption:  c.cfg.DefaultCaption,
	}
}

// DefaultCaption returns the caption to send to the server the first time
// the device goes online, or "" if none was configured.
func (c *Channel) DefaultCaption() string { return c.cfg.DefaultCaption }

// HasConfigCallback reports whether the channel wants its configuration
// requested and delivered via OnConfigRecv.
func (c *Channel) HasConfigCallback() bool { return c.cfg.OnConfigRecv != nil }

// OnConfigRecv delivers a set-channel-config push or a get-channel-config
// reply to the configured callback.
func (c *Channel) OnConfigRecv(data []byte) {
	if c.cfg.OnConfigRecv != nil {
		c.cfg.OnConfigRecv(c, data)
	}
}

func (c *Channel) HasExtendedValue() bool { return c.extValue != nil }

func (c *Channel) ValueDirty() bool                    { return c.value.Dirty() }
func (c *Channel) DrainValue() [proto.ValueSize]byte {
	b := c.value.Bytes()
	c.value.MarkSynced()
	return b
}
func (c *Channel) MarkValueSynced() { c.value.MarkSynced() }

func (c *Channel) ExtendedValueDirty() bool {
	if c.extValue == nil {
		return false
	}
	return c.extValue.Dirty()
}
func (c *Channel) DrainExtendedValue() []byte {
	if c.extValue == nil {
		return nil
	}
	b := c.extValue.Bytes()
	c.extValue.MarkSynced()
	return b
}
func (c *Channel) MarkExtendedValueSynced() {
	if c.extValue != nil {
		c.extValue.MarkSynced()
	}
}

func (c *Channel) ActionTriggerDirty() bool {
	if c.actionTrigger == nil {
		return false
	}
	return c.actionTrigger.Dirty()
}
func (c *Channel) DrainActionTrigger() proto.ActionCap {
	if c.actionTrigger == nil {
		return 0
	}
	return c.actionTrigger.Drain()
}

func (c *Channel) ApplyFunction(fn proto.Function) {
	if fn == proto.FunctionNone {
		return
	}
	c.mu.Lock()
	c.assignedFunction = fn
	c.mu.Unlock()
}

func (c *Channel) OnSetValue(value [proto.ValueSize]byte) proto.SetValueResult {
	if c.cfg.OnSetValue == nil {
		return proto.SetValueResultNotAllowed
	}
	if c.cfg.OnSetValue(c, value) {
		return proto.SetValueResultTrue
	}
	return proto.SetValueResultFalse
}

// SetNetworkState records the device's IPv4 address and MAC for the next
// channel state reply; a host typically sets this once at startup from its
// own network interfaces, not per reading.
func (c *Channel) SetNetworkState(ipv4 [4]byte, mac [6]byte) {
	c.mu.Lock()
	c.hasNetworkState = true
	c.ipv4 = ipv4
	c.mac = mac
	c.mu.Unlock()
}

// SetBatteryState records the device's battery level (0-100) and power
// source for the next channel state reply.
func (c *Channel) SetBatteryState(levelPercent uint8, powered bool) {
	c.mu.Lock()
	c.hasBatteryState = true
	c.batteryLevel = levelPercent
	c.batteryPowered = powered
	c.mu.Unlock()
}

func (c *Channel) OnStateRequest(uptime, connUptime uint32, cause proto.ResetCause) srpc.ChannelStateResult {
	c.mu.Lock()
	result := srpc.ChannelStateResult{
		ChannelNumber:       uint8(c.number),
		Fields:              proto.ChannelStateFieldConnectionUptime | proto.ChannelStateFieldLastConnectionResetCause,
		Uptime:              uptime,
		ConnectionUptime:    connUptime,
		LastConnectionReset: cause,
	}
	if c.hasNetworkState {
		result.Fields |= proto.ChannelStateFieldIPv4 | proto.ChannelStateFieldMAC
		result.IPv4 = c.ipv4
		result.MAC = c.mac
	}
	if c.hasBatteryState {
		result.Fields |= proto.ChannelStateFieldBatteryLevel | proto.ChannelStateFieldBatteryPowered
		result.BatteryLevel = c.batteryLevel
		result.BatteryPowered = c.batteryPowered
	}
	c.mu.Unlock()

	if c.cfg.OnGetState != nil {
		var report ChannelStateReport
		c.cfg.OnGetState(c, &report)
		result.Fields |= report.fields
		if report.fields&proto.ChannelStateFieldIPv4 != 0 {
			result.IPv4 = report.IPv4
			result.MAC = report.MAC
		}
		if report.fields&proto.ChannelStateFieldBatteryLevel != 0 {
			result.BatteryLevel = report.BatteryLevel
			result.BatteryPowered = report.BatteryPowered
		}
	}
	return result
}

func (c *Channel) OnCalCfgRequest(req srpc.CalCfgRequest) srpc.CalCfgResult {
	if c.cfg.OnCalCfgRequest == nil {
		return srpc.CalCfgResult{ChannelNumber: req.ChannelNumber, Command: req.Command, Result: proto.CalCfgResultNotSupported}
	}
	result := c.cfg.OnCalCfgRequest(c, req.Command, req.SuperUserAuthorized, req.Data)
	return srpc.CalCfgResult{ChannelNumber: req.ChannelNumber, Command: req.Command, Result: result}
}
