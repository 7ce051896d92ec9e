// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package srpc implements the wire codec for the SUPLA RPC protocol: a
// length-prefixed frame envelope carrying an opcode and a typed payload,
// plus readers/writers for every payload this module exchanges with the
// cloud server.
package srpc

import "errors"

// Magic identifies the start of a frame on the wire.
var Magic = [5]byte{'S', 'U', 'P', 'L', 'A'}

// Version is the codec version this package speaks.
const Version byte = 1

// MaxFrameSize bounds how large a single frame's payload may be, guarding
// against a corrupt length prefix causing an unbounded allocation.
const MaxFrameSize = 64 * 1024

// CallType identifies the payload carried by a Frame.
type CallType uint32

const (
	CallRegisterDevice CallType = iota + 1
	CallRegisterResult
	CallPing
	CallPingResult
	CallSetActivityTimeout
	CallSetActivityTimeoutResult
	CallDeviceChannelValueChanged
	CallSetChannelValue
	CallSetChannelValueResult
	CallChannelExtendedValueChanged
	CallActionTrigger
	CallGetChannelState
	CallChannelStateResult
	CallCalCfgRequest
	CallCalCfgResult
	CallGetChannelFunctionsResult
	CallSetChannelConfig
	CallSetChannelConfigResult
	CallGetUserLocalTimeResult
	CallSetChannelCaption
	CallSetChannelCaptionResult
	CallDeviceReconnectRequest
	CallSetDeviceConfig
	CallSetDeviceConfigResult
	CallDeviceCalCfgRequest
	CallSendNotification
	CallVersionError
	CallChannelGroupSetValue
	CallGetUserLocalTime
	CallGetChannelFunctions
	CallGetChannelConfig
	CallGetChannelConfigResult
	CallRegisterPushNotification
	CallRegisterPushNotificationResult
)

func (c CallType) String() string {
	switch c {
	case CallRegisterDevice:
		return "RegisterDevice"
	case CallRegisterResult:
		return "RegisterResult"
	case CallPing:
		return "Ping"
	case CallPingResult:
		return "PingResult"
	case CallSetActivityTimeout:
		return "SetActivityTimeout"
	case CallSetActivityTimeoutResult:
		return "SetActivityTimeoutResult"
	case CallDeviceChannelValueChanged:
		return "DeviceChannelValueChanged"
	case CallSetChannelValue:
		return "SetChannelValue"
	case CallSetChannelValueResult:
		return "SetChannelValueResult"
	case CallChannelExtendedValueChanged:
		return "ChannelExtendedValueChanged"
	case CallActionTrigger:
		return "ActionTrigger"
	case CallGetChannelState:
		return "GetChannelState"
	case CallChannelStateResult:
		return "ChannelStateResult"
	case CallCalCfgRequest:
		return "CalCfgRequest"
	case CallCalCfgResult:
		return "CalCfgResult"
	case CallGetChannelFunctionsResult:
		return "GetChannelFunctionsResult"
	case CallSetChannelConfig:
		return "SetChannelConfig"
	case CallSetChannelConfigResult:
		return "SetChannelConfigResult"
	case CallGetUserLocalTimeResult:
		return "GetUserLocalTimeResult"
	case CallSetChannelCaption:
		return "SetChannelCaption"
	case CallSetChannelCaptionResult:
		return "SetChannelCaptionResult"
	case CallDeviceReconnectRequest:
		return "DeviceReconnectRequest"
	case CallSetDeviceConfig:
		return "SetDeviceConfig"
	case CallSetDeviceConfigResult:
		return "SetDeviceConfigResult"
	case CallDeviceCalCfgRequest:
		return "DeviceCalCfgRequest"
	case CallSendNotification:
		return "SendNotification"
	case CallVersionError:
		return "VersionError"
	case CallChannelGroupSetValue:
		return "ChannelGroupSetValue"
	case CallGetUserLocalTime:
		return "GetUserLocalTime"
	case CallGetChannelFunctions:
		return "GetChannelFunctions"
	case CallGetChannelConfig:
		return "GetChannelConfig"
	case CallGetChannelConfigResult:
		return "GetChannelConfigResult"
	case CallRegisterPushNotification:
		return "RegisterPushNotification"
	case CallRegisterPushNotificationResult:
		return "RegisterPushNotificationResult"
	default:
		return "Unknown"
	}
}

var (
	ErrInvalidMagic   = errors.New("srpc: invalid magic bytes")
	ErrInvalidVersion = errors.New("srpc: unsupported protocol version")
	ErrFrameTooLarge  = errors.New("srpc: frame exceeds maximum size")
)

// Frame is the generic envelope: every call, result and event on the wire
// is one Frame with an opaque, call-type-specific Data payload.
type Frame struct {
	CallID   uint32
	CallType CallType
	Data     []byte
}
