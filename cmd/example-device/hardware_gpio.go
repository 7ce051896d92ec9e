// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

//go:build gpio

package main

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/go-supla/libsupla"
)

// gpioHardware drives the relay channel's physical pin and watches a button
// pin for the action-trigger channel, for boards built with -tags gpio
// (e.g. a Raspberry Pi). Without that tag, example-device runs against
// simulated channels only.
type gpioHardware struct {
	logger  *slog.Logger
	relay   gpio.PinIO
	button  gpio.PinIO
	trigger *libsupla.Channel
}

// openGPIOHardware initializes periph's host drivers and looks up the named
// relay and button pins (e.g. "GPIO17", "GPIO27").
func openGPIOHardware(logger *slog.Logger, relayPin, buttonPin string, trigger *libsupla.Channel) (*gpioHardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing gpio host drivers: %w", err)
	}

	relay := gpioreg.ByName(relayPin)
	if relay == nil {
		return nil, fmt.Errorf("relay pin %q not found", relayPin)
	}
	if err := relay.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configuring relay pin %q: %w", relayPin, err)
	}

	button := gpioreg.ByName(buttonPin)
	if button == nil {
		return nil, fmt.Errorf("button pin %q not found", buttonPin)
	}
	if err := button.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configuring button pin %q: %w", buttonPin, err)
	}

	h := &gpioHardware{logger: logger.With("component", "gpio_hardware"), relay: relay, button: button, trigger: trigger}
	go h.watchButton()
	return h, nil
}

// SetRelay implements the relay channel's OnSetValue against the real pin.
func (h *gpioHardware) SetRelay(on bool) bool {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := h.relay.Out(level); err != nil {
		h.logger.Error("driving relay pin", "error", err)
		return false
	}
	return true
}

func (h *gpioHardware) watchButton() {
	const debounce = 30 * time.Millisecond
	for {
		if !h.button.WaitForEdge(-1) {
			continue
		}
		time.Sleep(debounce)
		if h.button.Read() != gpio.Low {
			continue
		}
		if err := h.trigger.EmitAction(libsupla.ActionCapToggleX1); err != nil {
			h.logger.Debug("button press not emitted", "error", err)
		}
	}
}
