// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import (
	"github.com/go-supla/libsupla/internal/proto"
	"github.com/go-supla/libsupla/internal/session"
)

// ChannelType identifies the shape of a channel's value.
type ChannelType = proto.ChannelType

const (
	ChannelTypeThermometer          = proto.ChannelTypeThermometer
	ChannelTypeHumidityAndTemperature = proto.ChannelTypeHumidityAndTemperature
	ChannelTypeBinarySensor          = proto.ChannelTypeBinarySensor
	ChannelTypeRelay                 = proto.ChannelTypeRelay
	ChannelTypeDimmer                = proto.ChannelTypeDimmer
	ChannelTypeRGBLighting           = proto.ChannelTypeRGBLighting
	ChannelTypeDimmerAndRGBLighting  = proto.ChannelTypeDimmerAndRGBLighting
	ChannelTypeDistanceSensor        = proto.ChannelTypeDistanceSensor
	ChannelTypeImpulseCounter        = proto.ChannelTypeImpulseCounter
	ChannelTypeElectricityMeter      = proto.ChannelTypeElectricityMeter
	ChannelTypeThermostat            = proto.ChannelTypeThermostat
	ChannelTypeActionTrigger         = proto.ChannelTypeActionTrigger
	ChannelTypeRollerShutter         = proto.ChannelTypeRollerShutter
	ChannelTypeFacadeBlind           = proto.ChannelTypeFacadeBlind
	ChannelTypeValve                 = proto.ChannelTypeValve
)

// Function is the bitmask of functions a channel may be assigned by the
// server.
type Function = proto.Function

const (
	FunctionThermometer                 = proto.FunctionThermometer
	FunctionHumidityAndTemperature      = proto.FunctionHumidityAndTemperature
	FunctionHumidity                    = proto.FunctionHumidity
	FunctionOpeningSensorGateway        = proto.FunctionOpeningSensorGateway
	FunctionOpeningSensorGate           = proto.FunctionOpeningSensorGate
	FunctionOpeningSensorGarageDoor     = proto.FunctionOpeningSensorGarageDoor
	FunctionOpeningSensorDoor           = proto.FunctionOpeningSensorDoor
	FunctionOpeningSensorWindow         = proto.FunctionOpeningSensorWindow
	FunctionNoLiquidSensor              = proto.FunctionNoLiquidSensor
	FunctionLightSwitch                 = proto.FunctionLightSwitch
	FunctionPowerSwitch                 = proto.FunctionPowerSwitch
	FunctionStaircaseTimer              = proto.FunctionStaircaseTimer
	FunctionDimmer                      = proto.FunctionDimmer
	FunctionRGBLighting                 = proto.FunctionRGBLighting
	FunctionDimmerAndRGBLighting        = proto.FunctionDimmerAndRGBLighting
	FunctionDistanceSensor              = proto.FunctionDistanceSensor
	FunctionDepthSensor                 = proto.FunctionDepthSensor
	FunctionImpulseCounter              = proto.FunctionImpulseCounter
	FunctionElectricityMeter            = proto.FunctionElectricityMeter
	FunctionThermostat                  = proto.FunctionThermostat
	FunctionThermostatHeatPump          = proto.FunctionThermostatHeatPump
	FunctionActionTrigger               = proto.FunctionActionTrigger
	FunctionControllingTheRollerShutter = proto.FunctionControllingTheRollerShutter
	FunctionControllingTheFacadeBlind   = proto.FunctionControllingTheFacadeBlind
	FunctionValveOpenClose              = proto.FunctionValveOpenClose
	FunctionValveFloodPrevention        = proto.FunctionValveFloodPrevention
)

// ActionCap is the bitmask of actions an action-trigger channel can emit.
type ActionCap = proto.ActionCap

const (
	ActionCapTurnOn    = proto.ActionCapTurnOn
	ActionCapTurnOff   = proto.ActionCapTurnOff
	ActionCapToggleX1  = proto.ActionCapToggleX1
	ActionCapToggleX2  = proto.ActionCapToggleX2
	ActionCapToggleX3  = proto.ActionCapToggleX3
	ActionCapToggleX4  = proto.ActionCapToggleX4
	ActionCapToggleX5  = proto.ActionCapToggleX5
	ActionCapHoldOn    = proto.ActionCapHoldOn
	ActionCapHoldOff   = proto.ActionCapHoldOff
	ActionCapOpen      = proto.ActionCapOpen
	ActionCapClose     = proto.ActionCapClose
	ActionCapStop      = proto.ActionCapStop
)

// DeviceFlag is a bitmask of optional device-level capabilities negotiated
// at registration.
type DeviceFlag = proto.DeviceFlag

const (
	DeviceFlagCalCfgDownloadFirmware = proto.DeviceFlagCalCfgDownloadFirmware
	DeviceFlagCalCfgUploadUserConfig = proto.DeviceFlagCalCfgUploadUserConfig
	DeviceFlagSleepModeEnabled       = proto.DeviceFlagSleepModeEnabled
	DeviceFlagDeviceConfigSupported  = proto.DeviceFlagDeviceConfigSupported
)

// ChannelFlag is a bitmask of optional per-channel capabilities.
type ChannelFlag = proto.ChannelFlag

const (
	ChannelFlagChannelState            = proto.ChannelFlagChannelState
	ChannelFlagZigbeeDevice            = proto.ChannelFlagZigbeeDevice
	ChannelFlagCountdownTimerSupported = proto.ChannelFlagCountdownTimerSupported
)

// RegisterResult enumerates the server's reply to registration.
type RegisterResult = proto.RegisterResult

// ResetCause enumerates why the last session ended.
type ResetCause = proto.ResetCause

const (
	ResetCauseNone              = proto.ResetCauseNone
	ResetCauseActivityTimeout   = proto.ResetCauseActivityTimeout
	ResetCauseServerLost        = proto.ResetCauseServerConnectionLost
	ResetCauseManualStop        = proto.ResetCauseManualStop
	ResetCauseRegisterTimeout   = proto.ResetCauseRegisterTimeout
)

// CalCfgResult enumerates the outcome of a configuration command.
type CalCfgResult = proto.CalCfgResult

const (
	CalCfgResultDone          = proto.CalCfgResultDone
	CalCfgResultNotSupported  = proto.CalCfgResultNotSupported
	CalCfgResultUnauthorized  = proto.CalCfgResultUnauthorized
	CalCfgResultIDNotExists   = proto.CalCfgResultIDNotExists
	CalCfgResultTryAgainLater = proto.CalCfgResultTryAgainLater
)

// CalCfgCommand enumerates a configuration request's command.
type CalCfgCommand = proto.CalCfgCommand

const (
	CalCfgCommandEnterCfgMode    = proto.CalCfgCommandEnterCfgMode
	CalCfgCommandExitCfgMode     = proto.CalCfgCommandExitCfgMode
	CalCfgCommandIdentify        = proto.CalCfgCommandIdentify
	CalCfgCommandDeviceCalibrate = proto.CalCfgCommandDeviceCalibrate
	CalCfgCommandReconnect       = proto.CalCfgCommandReconnect
)

// State is the device's position in its connection lifecycle.
type State = session.State

const (
	StateIdle       = session.StateIdle
	StateInit       = session.StateInit
	StateConnected  = session.StateConnected
	StateRegistered = session.StateRegistered
	StateOnline     = session.StateOnline
	StateConfig     = session.StateConfig
)

// Buffer size limits matching the wire format.
const (
	GUIDSize    = proto.GUIDSize
	AuthKeySize = proto.AuthKeySize
)
