// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import "time"

// Callbacks are the host-supplied hooks a Device invokes as session-level
// events occur. Every field is optional.
type Callbacks struct {
	// OnStateChanged fires whenever the device's State transitions.
	OnStateChanged func(Device *Device, state State)
	// OnChannelStateRequested fires when the server asks for common
	// per-channel status fields (uptime, connection uptime, reset cause)
	// that are the same across every channel; a host can record battery or
	// network state on the channel here (Channel.SetBatteryState,
	// Channel.SetNetworkState) before the per-channel callback runs.
	OnChannelStateRequested func(Device *Device, channelNumber uint8)
	// OnServerTimeSync fires when the server's local time arrives.
	OnServerTimeSync func(Device *Device, serverTime time.Time)
	// OnServerReqRestart fires when the server asks the device to
	// reconnect.
	OnServerReqRestart func(Device *Device)
	// OnRegisterResult fires after every registration attempt, success or
	// failure.
	OnRegisterResult func(Device *Device, result RegisterResult)
}
