// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"

	"github.com/go-supla/libsupla"
	"github.com/go-supla/libsupla/internal/hostconfig"
)

// deviceChannels holds the channels buildDevice registers, so main can wire
// the simulator and host-state reporter to the right one without walking
// the device's channel list by number.
type deviceChannels struct {
	thermometer *libsupla.Channel
	relay       *libsupla.Channel
	trigger     *libsupla.Channel
}

// buildDevice constructs the device and its three channels — a thermometer,
// a relay standing in for a light, and an action-trigger channel for a push
// button — the same layout as the platform's own C example client.
func buildDevice(cfg *hostconfig.File, logger *slog.Logger, callbacks libsupla.Callbacks) (*libsupla.Device, *deviceChannels, error) {
	guid, err := cfg.GUIDBytes()
	if err != nil {
		return nil, nil, err
	}
	authKey, err := cfg.AuthKeyBytes()
	if err != nil {
		return nil, nil, err
	}

	devCfg := libsupla.Config{
		GUID:               guid,
		AuthKey:            authKey,
		Name:               cfg.Device.Name,
		SoftVersion:        cfg.Device.SoftVersion,
		ServerAddress:      cfg.Server.Address,
		UseTLS:             cfg.Server.UseTLS,
		ServerCertCAPath:   cfg.Server.ServerCertCAPath,
		DSCP:               cfg.Server.DSCP,
		ActivityTimeoutSec: cfg.Server.ActivityTimeoutSec,
		ReconnectInitialBackoff: cfg.Retry.InitialDelay,
		ReconnectMaxBackoff:     cfg.Retry.MaxDelay,
	}

	device, err := libsupla.NewDevice(devCfg, callbacks, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("constructing device: %w", err)
	}

	chans := &deviceChannels{}

	chans.thermometer, err = libsupla.NewChannel(libsupla.ChannelConfig{
		Type:               libsupla.ChannelTypeThermometer,
		SupportedFunctions: libsupla.FunctionThermometer,
		DefaultFunction:    libsupla.FunctionThermometer,
		SyncOnChangeOnly:   true,
		DefaultCaption:     "Outdoor temperature",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building thermometer channel: %w", err)
	}
	if err := device.AddChannel(chans.thermometer); err != nil {
		return nil, nil, fmt.Errorf("adding thermometer channel: %w", err)
	}

	relayLogger := logger.With("component", "relay_channel")
	chans.relay, err = libsupla.NewChannel(libsupla.ChannelConfig{
		Type:               libsupla.ChannelTypeRelay,
		SupportedFunctions: libsupla.FunctionLightSwitch | libsupla.FunctionPowerSwitch,
		DefaultFunction:    libsupla.FunctionLightSwitch,
		DefaultCaption:     "Light",
		OnSetValue: func(ch *libsupla.Channel, value [16]byte) bool {
			on := value[0] != 0
			relayLogger.Info("set relay value", "on", on)
			ch.SetRelayValue(on)
			return true
		},
		OnCalCfgRequest: func(ch *libsupla.Channel, command libsupla.CalCfgCommand, superUser bool, data []byte) libsupla.CalCfgResult {
			relayLogger.Info("calcfg request", "command", command, "super_user", superUser)
			return libsupla.CalCfgResultDone
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building relay channel: %w", err)
	}
	if err := device.AddChannel(chans.relay); err != nil {
		return nil, nil, fmt.Errorf("adding relay channel: %w", err)
	}

	chans.trigger, err = libsupla.NewChannel(libsupla.ChannelConfig{
		Type:            libsupla.ChannelTypeActionTrigger,
		ActionCaps:      libsupla.ActionCapToggleX1 | libsupla.ActionCapToggleX2,
		DefaultCaption:  "Push button",
		ActionConflicts: map[libsupla.ActionCap]libsupla.ActionCap{},
		RelatedChannel:  chans.relay,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building action-trigger channel: %w", err)
	}
	if err := device.AddChannel(chans.trigger); err != nil {
		return nil, nil, fmt.Errorf("adding action-trigger channel: %w", err)
	}

	return device, chans, nil
}
