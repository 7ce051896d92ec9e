// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package srpc

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-supla/libsupla/internal/proto"
)

func writeLine(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte('\n')
}

func readLine(br *bufio.Reader) (string, error) {
	s, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}

// ChannelRegistration describes one channel's static shape as sent during
// device registration.
type ChannelRegistration struct {
	Number           uint8
	Type             proto.ChannelType
	Flags            proto.ChannelFlag
	DefaultFunction  proto.Function
	SupportedFuncs   proto.Function
	ActionCaps       proto.ActionCap
	ValidityTimeSec  uint32
	RelatedChannel   int16 // 0 if none, otherwise the related channel's assigned number + 1
	DefaultCaption   string
}

// RegisterDevice is the outbound registration call (Client -> Server).
type RegisterDevice struct {
	GUID         [proto.GUIDSize]byte
	AuthKey      [proto.AuthKeySize]byte
	Name         string
	SoftVersion  string
	ServerName   string
	Flags        proto.DeviceFlag
	ManufacturerID int16
	ProductID      int16
	Channels     []ChannelRegistration
}

func (r RegisterDevice) Marshal() []byte {
	var buf bytes.Buffer
	buf.Write(r.GUID[:])
	buf.Write(r.AuthKey[:])
	writeLine(&buf, r.Name)
	writeLine(&buf, r.SoftVersion)
	writeLine(&buf, r.ServerName)
	binary.Write(&buf, binary.BigEndian, uint32(r.Flags))
	binary.Write(&buf, binary.BigEndian, r.ManufacturerID)
	binary.Write(&buf, binary.BigEndian, r.ProductID)
	binary.Write(&buf, binary.BigEndian, uint8(len(r.Channels)))
	for _, c := range r.Channels {
		buf.WriteByte(c.Number)
		binary.Write(&buf, binary.BigEndian, uint32(c.Type))
		binary.Write(&buf, binary.BigEndian, uint32(c.Flags))
		binary.Write(&buf, binary.BigEndian, uint32(c.DefaultFunction))
		binary.Write(&buf, binary.BigEndian, uint32(c.SupportedFuncs))
		binary.Write(&buf, binary.BigEndian, uint32(c.ActionCaps))
		binary.Write(&buf, binary.BigEndian, c.ValidityTimeSec)
		binary.Write(&buf, binary.BigEndian, c.RelatedChannel)
		writeLine(&buf, c.DefaultCaption)
	}
	return buf.Bytes()
}

func UnmarshalRegisterDevice(data []byte) (RegisterDevice, error) {
	var r RegisterDevice
	rd := bytes.NewReader(data)
	if _, err := io.ReadFull(rd, r.GUID[:]); err != nil {
		return r, fmt.Errorf("srpc: reading guid: %w", err)
	}
	if _, err := io.ReadFull(rd, r.AuthKey[:]); err != nil {
		return r, fmt.Errorf("srpc: reading auth key: %w", err)
	}
	br := bufio.NewReader(rd)
	var err error
	if r.Name, err = readLine(br); err != nil {
		return r, fmt.Errorf("srpc: reading name: %w", err)
	}
	if r.SoftVersion, err = readLine(br); err != nil {
		return r, fmt.Errorf("srpc: reading soft version: %w", err)
	}
	if r.ServerName, err = readLine(br); err != nil {
		return r, fmt.Errorf("srpc: reading server name: %w", err)
	}
	var flags uint32
	if err := binary.Read(br, binary.BigEndian, &flags); err != nil {
		return r, fmt.Errorf("srpc: reading flags: %w", err)
	}
	r.Flags = proto.DeviceFlag(flags)
	if err := binary.Read(br, binary.BigEndian, &r.ManufacturerID); err != nil {
		return r, fmt.Errorf("srpc: reading manufacturer id: %w", err)
	}
	if err := binary.Read(br, binary.BigEndian, &r.ProductID); err != nil {
		return r, fmt.Errorf("srpc: reading product id: %w", err)
	}
	var count uint8
	if err := binary.Read(br, binary.BigEndian, &count); err != nil {
		return r, fmt.Errorf("srpc: reading channel count: %w", err)
	}
	for i := 0; i < int(count); i++ {
		var c ChannelRegistration
		if c.Number, err = br.ReadByte(); err != nil {
			return r, fmt.Errorf("srpc: reading channel number: %w", err)
		}
		var t, fl, df, sf, ac uint32
		if err := binary.Read(br, binary.BigEndian, &t); err != nil {
			return r, err
		}
		if err := binary.Read(br, binary.BigEndian, &fl); err != nil {
			return r, err
		}
		if err := binary.Read(br, binary.BigEndian, &df); err != nil {
			return r, err
		}
		if err := binary.Read(br, binary.BigEndian, &sf); err != nil {
			return r, err
		}
		if err := binary.Read(br, binary.BigEndian, &ac); err != nil {
			return r, err
		}
		c.Type, c.Flags, c.DefaultFunction, c.SupportedFuncs, c.ActionCaps =
			proto.ChannelType(t), proto.ChannelFlag(fl), proto.Function(df), proto.Function(sf), proto.ActionCap(ac)
		if err := binary.Read(br, binary.BigEndian, &c.ValidityTimeSec); err != nil {
			return r, err
		}
		if err := binary.Read(br, binary.BigEndian, &c.RelatedChannel); err != nil {
			return r, err
		}
		if c.DefaultCaption, err = readLine(br); err != nil {
			return r, fmt.Errorf("srpc: reading default caption: %w", err)
		}
		r.Channels = append(r.Channels, c)
	}
	return r, nil
}

// RegisterResult is the server's reply to RegisterDevice.
type RegisterResult struct {
	Result           proto.RegisterResult
	ActivityTimeout  uint8
	Version          string
	VersionMin       string
}

func (r RegisterResult) Marshal() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(r.Result))
	buf.WriteByte(r.ActivityTimeout)
	writeLine(&buf, r.Version)
	writeLine(&buf, r.VersionMin)
	return buf.Bytes()
}

func UnmarshalRegisterResult(data []byte) (RegisterResult, error) {
	var r RegisterResult
	rd := bufio.NewReader(bytes.NewReader(data))
	var result uint32
	if err := binary.Read(rd, binary.BigEndian, &result); err != nil {
		return r, fmt.Errorf("srpc: reading result: %w", err)
	}
	r.Result = proto.RegisterResult(result)
	var err error
	if r.ActivityTimeout, err = rd.ReadByte(); err != nil {
		return r, fmt.Errorf("srpc: reading activity timeout: %w", err)
	}
	if r.Version, err = readLine(rd); err != nil {
		return r, fmt.Errorf("srpc: reading version: %w", err)
	}
	if r.VersionMin, err = readLine(rd); err != nil {
		return r, fmt.Errorf("srpc: reading version min: %w", err)
	}
	return r, nil
}

// SetActivityTimeout negotiates the idle/ping window (Client -> Server).
type SetActivityTimeout struct {
	TimeoutSec uint8
}

func (s SetActivityTimeout) Marshal() []byte { return []byte{s.TimeoutSec} }

func UnmarshalSetActivityTimeout(data []byte) (SetActivityTimeout, error) {
	if len(data) < 1 {
		return SetActivityTimeout{}, fmt.Errorf("srpc: short SetActivityTimeout payload")
	}
	return SetActivityTimeout{TimeoutSec: data[0]}, nil
}

// SetActivityTimeoutResult is the server's reply, confirming the effective
// timeout and the server's ping grace windows.
type SetActivityTimeoutResult struct {
	TimeoutSec uint8
	Min        uint8
	Max        uint8
}

func (s SetActivityTimeoutResult) Marshal() []byte {
	return []byte{s.TimeoutSec, s.Min, s.Max}
}

func UnmarshalSetActivityTimeoutResult(data []byte) (SetActivityTimeoutResult, error) {
	if len(data) < 3 {
		return SetActivityTimeoutResult{}, fmt.Errorf("srpc: short SetActivityTimeoutResult payload")
	}
	return SetActivityTimeoutResult{TimeoutSec: data[0], Min: data[1], Max: data[2]}, nil
}

// ChannelValue carries a channel's current value.
type ChannelValue struct {
	ChannelNumber uint8
	Value         [proto.ValueSize]byte
}

func (c ChannelValue) Marshal() []byte {
	buf := make([]byte, 1+proto.ValueSize)
	buf[0] = c.ChannelNumber
	copy(buf[1:], c.Value[:])
	return buf
}

func UnmarshalChannelValue(data []byte) (ChannelValue, error) {
	var c ChannelValue
	if len(data) < 1+proto.ValueSize {
		return c, fmt.Errorf("srpc: short ChannelValue payload")
	}
	c.ChannelNumber = data[0]
	copy(c.Value[:], data[1:1+proto.ValueSize])
	return c, nil
}

// SetChannelValueResult reports whether a requested set-value call applied.
type SetChannelValueResult struct {
	ChannelNumber uint8
	Result        proto.SetValueResult
	SendID        uint32
}

func (s SetChannelValueResult) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(s.ChannelNumber)
	buf.WriteByte(byte(s.Result))
	binary.Write(&buf, binary.BigEndian, s.SendID)
	return buf.Bytes()
}

func UnmarshalSetChannelValueResult(data []byte) (SetChannelValueResult, error) {
	var s SetChannelValueResult
	if len(data) < 6 {
		return s, fmt.Errorf("srpc: short SetChannelValueResult payload")
	}
	s.ChannelNumber = data[0]
	s.Result = proto.SetValueResult(data[1])
	s.SendID = binary.BigEndian.Uint32(data[2:6])
	return s, nil
}

// ChannelExtendedValue carries a channel's extended value payload.
type ChannelExtendedValue struct {
	ChannelNumber uint8
	Data          []byte
}

func (c ChannelExtendedValue) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(c.ChannelNumber)
	binary.Write(&buf, binary.BigEndian, uint32(len(c.Data)))
	buf.Write(c.Data)
	return buf.Bytes()
}

func UnmarshalChannelExtendedValue(data []byte) (ChannelExtendedValue, error) {
	var c ChannelExtendedValue
	if len(data) < 5 {
		return c, fmt.Errorf("srpc: short ChannelExtendedValue payload")
	}
	c.ChannelNumber = data[0]
	size := binary.BigEndian.Uint32(data[1:5])
	if int(size) > len(data)-5 {
		return c, fmt.Errorf("srpc: ChannelExtendedValue size out of bounds")
	}
	c.Data = append([]byte(nil), data[5:5+size]...)
	return c, nil
}

// ActionTriggerEvent carries one emitted action.
type ActionTriggerEvent struct {
	ChannelNumber uint8
	Action        proto.ActionCap
}

func (a ActionTriggerEvent) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(a.ChannelNumber)
	binary.Write(&buf, binary.BigEndian, uint32(a.Action))
	return buf.Bytes()
}

func UnmarshalActionTriggerEvent(data []byte) (ActionTriggerEvent, error) {
	var a ActionTriggerEvent
	if len(data) < 5 {
		return a, fmt.Errorf("srpc: short ActionTriggerEvent payload")
	}
	a.ChannelNumber = data[0]
	a.Action = proto.ActionCap(binary.BigEndian.Uint32(data[1:5]))
	return a, nil
}

// ChannelStateRequest asks the device to report a channel's state.
type ChannelStateRequest struct {
	ChannelNumber uint8
}

func UnmarshalChannelStateRequest(data []byte) (ChannelStateRequest, error) {
	if len(data) < 1 {
		return ChannelStateRequest{}, fmt.Errorf("srpc: short ChannelStateRequest payload")
	}
	return ChannelStateRequest{ChannelNumber: data[0]}, nil
}

// ChannelStateResult is the device's reply to a ChannelStateRequest.
type ChannelStateResult struct {
	ChannelNumber       uint8
	Fields              proto.ChannelStateField
	Uptime              uint32
	ConnectionUptime    uint32
	BatteryLevel        uint8
	BatteryPowered      bool
	LastConnectionReset proto.ResetCause
	IPv4                [4]byte
	MAC                 [6]byte
}

func (c ChannelStateResult) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(c.ChannelNumber)
	binary.Write(&buf, binary.BigEndian, uint32(c.Fields))
	binary.Write(&buf, binary.BigEndian, c.Uptime)
	binary.Write(&buf, binary.BigEndian, c.ConnectionUptime)
	buf.WriteByte(c.BatteryLevel)
	if c.BatteryPowered {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.WriteByte(byte(c.LastConnectionReset))
	buf.Write(c.IPv4[:])
	buf.Write(c.MAC[:])
	return buf.Bytes()
}

func UnmarshalChannelStateResult(data []byte) (ChannelStateResult, error) {
	var c ChannelStateResult
	if len(data) < 1+4+4+4+1+1+4+6 {
		return c, fmt.Errorf("srpc: short ChannelStateResult payload")
	}
	i := 0
	c.ChannelNumber = data[i]
	i++
	c.Fields = proto.ChannelStateField(binary.BigEndian.Uint32(data[i : i+4]))
	i += 4
	c.Uptime = binary.BigEndian.Uint32(data[i : i+4])
	i += 4
	c.ConnectionUptime = binary.BigEndian.Uint32(data[i : i+4])
	i += 4
	c.BatteryLevel = data[i]
	i++
	c.BatteryPowered = data[i] != 0
	i++
	c.LastConnectionReset = proto.ResetCause(data[i])
	i++
	copy(c.IPv4[:], data[i:i+4])
	i += 4
	copy(c.MAC[:], data[i:i+6])
	return c, nil
}

// CalCfgRequest is a server-initiated configuration command.
type CalCfgRequest struct {
	ChannelNumber        int16 // -1 means device-level
	Command              proto.CalCfgCommand
	SuperUserAuthorized  bool
	Data                 []byte
}

func UnmarshalCalCfgRequest(data []byte) (CalCfgRequest, error) {
	var c CalCfgRequest
	if len(data) < 2+4+1+4 {
		return c, fmt.Errorf("srpc: short CalCfgRequest payload")
	}
	c.ChannelNumber = int16(binary.BigEndian.Uint16(data[0:2]))
	c.Command = proto.CalCfgCommand(binary.BigEndian.Uint32(data[2:6]))
	c.SuperUserAuthorized = data[6] != 0
	size := binary.BigEndian.Uint32(data[7:11])
	if int(size) > len(data)-11 {
		return c, fmt.Errorf("srpc: CalCfgRequest size out of bounds")
	}
	c.Data = append([]byte(nil), data[11:11+size]...)
	return c, nil
}

// CalCfgResult is the device's reply to a CalCfgRequest.
type CalCfgResult struct {
	ChannelNumber int16
	Command       proto.CalCfgCommand
	Result        proto.CalCfgResult
	Data          []byte
}

func (c CalCfgResult) Marshal() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(c.ChannelNumber))
	binary.Write(&buf, binary.BigEndian, uint32(c.Command))
	buf.WriteByte(byte(c.Result))
	binary.Write(&buf, binary.BigEndian, uint32(len(c.Data)))
	buf.Write(c.Data)
	return buf.Bytes()
}

func UnmarshalCalCfgResult(data []byte) (CalCfgResult, error) {
	var c CalCfgResult
	if len(data) < 2+4+1+4 {
		return c, fmt.Errorf("srpc: short CalCfgResult payload")
	}
	c.ChannelNumber = int16(binary.BigEndian.Uint16(data[0:2]))
	c.Command = proto.CalCfgCommand(binary.BigEndian.Uint32(data[2:6]))
	c.Result = proto.CalCfgResult(data[6])
	size := binary.BigEndian.Uint32(data[7:11])
	if int(size) > len(data)-11 {
		return c, fmt.Errorf("srpc: CalCfgResult size out of bounds")
	}
	c.Data = append([]byte(nil), data[11:11+size]...)
	return c, nil
}

// GetChannelFunctionsResult assigns the server-chosen function to each
// enumerated channel; channels the server does not mention keep their
// default function.
type GetChannelFunctionsResult struct {
	Functions map[uint8]proto.Function
}

func UnmarshalGetChannelFunctionsResult(data []byte) (GetChannelFunctionsResult, error) {
	r := GetChannelFunctionsResult{Functions: map[uint8]proto.Function{}}
	if len(data) < 1 {
		return r, fmt.Errorf("srpc: short GetChannelFunctionsResult payload")
	}
	count := int(data[0])
	pos := 1
	for i := 0; i < count; i++ {
		if pos+5 > len(data) {
			return r, fmt.Errorf("srpc: GetChannelFunctionsResult truncated")
		}
		num := data[pos]
		fn := binary.BigEndian.Uint32(data[pos+1 : pos+5])
		r.Functions[num] = proto.Function(fn)
		pos += 5
	}
	return r, nil
}

// UserLocalTimeResult carries the server's local-time snapshot. The session
// passes it to the OnServerTimeSync callback; uptime and connection-uptime
// counters are not adjusted.
type UserLocalTimeResult struct {
	UnixTime int64
}

func UnmarshalUserLocalTimeResult(data []byte) (UserLocalTimeResult, error) {
	if len(data) < 8 {
		return UserLocalTimeResult{}, fmt.Errorf("srpc: short UserLocalTimeResult payload")
	}
	return UserLocalTimeResult{UnixTime: int64(binary.BigEndian.Uint64(data[0:8]))}, nil
}

// SetDeviceConfig carries a raw device-level configuration blob.
type SetDeviceConfig struct {
	Data []byte
}

func UnmarshalSetDeviceConfig(data []byte) (SetDeviceConfig, error) {
	return SetDeviceConfig{Data: append([]byte(nil), data...)}, nil
}

// SetDeviceConfigResult reports whether a SetDeviceConfig call applied.
type SetDeviceConfigResult struct {
	Result proto.SetValueResult
}

func (s SetDeviceConfigResult) Marshal() []byte { return []byte{byte(s.Result)} }

// SendNotification asks the server to push a message to the owning user's
// mobile app. ChannelNumber is the notification's target context: -1 for the
// device itself, otherwise the channel whose assigned number matches.
type SendNotification struct {
	ChannelNumber int16
	Title         string
	Message       string
	SoundID       uint8
	WithSound     bool
}

func (n SendNotification) Marshal() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, n.ChannelNumber)
	writeLine(&buf, n.Title)
	writeLine(&buf, n.Message)
	buf.WriteByte(n.SoundID)
	if n.WithSound {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// SetChannelCaption pushes a channel's default caption to the server
// (Client -> Server); the server acknowledges with SetChannelCaptionResult,
// which carries nothing the device needs to act on.
type SetChannelCaption struct {
	ChannelNumber uint8
	Caption       string
}

func (s SetChannelCaption) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(s.ChannelNumber)
	writeLine(&buf, s.Caption)
	return buf.Bytes()
}

// VersionError is the server's reply when the device's protocol version is
// outside the range it accepts.
type VersionError struct {
	ServerVersion    string
	ServerVersionMin string
}

func UnmarshalVersionError(data []byte) (VersionError, error) {
	var v VersionError
	br := bufio.NewReader(bytes.NewReader(data))
	var err error
	if v.ServerVersion, err = readLine(br); err != nil {
		return v, fmt.Errorf("srpc: reading server version: %w", err)
	}
	if v.ServerVersionMin, err = readLine(br); err != nil {
		return v, fmt.Errorf("srpc: reading server version min: %w", err)
	}
	return v, nil
}

// ChannelGroupSetValue is a set-value call addressed to every channel in a
// group; the device repacks it as an ordinary ChannelValue set-value and
// dispatches it the same way.
type ChannelGroupSetValue struct {
	GroupID       uint16
	ChannelNumber uint8
	Value         [proto.ValueSize]byte
}

func UnmarshalChannelGroupSetValue(data []byte) (ChannelGroupSetValue, error) {
	var g ChannelGroupSetValue
	if len(data) < 2+1+proto.ValueSize {
		return g, fmt.Errorf("srpc: short ChannelGroupSetValue payload")
	}
	g.GroupID = binary.BigEndian.Uint16(data[0:2])
	g.ChannelNumber = data[2]
	copy(g.Value[:], data[3:3+proto.ValueSize])
	return g, nil
}

// GetChannelConfig asks the server for a channel's current configuration
// blob (Client -> Server).
type GetChannelConfig struct {
	ChannelNumber uint8
}

func (g GetChannelConfig) Marshal() []byte { return []byte{g.ChannelNumber} }

// ChannelConfig carries a channel's raw configuration blob, used both when
// the server pushes a new one (set-channel-config) and when it answers a
// GetChannelConfig request (get-channel-config-result).
type ChannelConfig struct {
	ChannelNumber uint8
	Data          []byte
}

func UnmarshalChannelConfig(data []byte) (ChannelConfig, error) {
	var c ChannelConfig
	if len(data) < 1 {
		return c, fmt.Errorf("srpc: short ChannelConfig payload")
	}
	c.ChannelNumber = data[0]
	c.Data = append([]byte(nil), data[1:]...)
	return c, nil
}

// RegisterPushNotification declares the device's push-notification context:
// whether it is enabled and which fields the server manages on the device's
// behalf (suppressing client-supplied title/body/sound).
type RegisterPushNotification struct {
	Enabled             bool
	ServerManagedFields uint8
}

func (r RegisterPushNotification) Marshal() []byte {
	var enabled byte
	if r.Enabled {
		enabled = 1
	}
	return []byte{enabled, r.ServerManagedFields}
}
