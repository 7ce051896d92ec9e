// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import (
	"errors"
	"testing"
)

func TestAddChannelAllowedAfterStart(t *testing.T) {
	d, err := NewDevice(validConfig(), Callbacks{}, nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	d.started = true

	ch, err := NewChannel(ChannelConfig{Type: ChannelTypeThermometer})
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	if err := d.AddChannel(ch); err != nil {
		t.Fatalf("expected AddChannel to succeed once running, got %v", err)
	}
	if d.GetChannelCount() != 1 {
		t.Fatalf("expected channel to be appended, got count %d", d.GetChannelCount())
	}
}

func TestAddChannelRejectsPastChannelMax(t *testing.T) {
	d, err := NewDevice(validConfig(), Callbacks{}, nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	for i := 0; i < 32; i++ {
		ch, err := NewChannel(ChannelConfig{Type: ChannelTypeThermometer})
		if err != nil {
			t.Fatalf("NewChannel: %v", err)
		}
		if err := d.AddChannel(ch); err != nil {
			t.Fatalf("AddChannel %d: %v", i, err)
		}
	}
	overflow, err := NewChannel(ChannelConfig{Type: ChannelTypeThermometer})
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	if err := d.AddChannel(overflow); !errors.Is(err, ErrChannelMax) {
		t.Fatalf("expected ErrChannelMax, got %v", err)
	}
}

func TestEnterExitConfigModeNoOpWithoutRunningMachine(t *testing.T) {
	d, err := NewDevice(validConfig(), Callbacks{}, nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	d.EnterConfigMode()
	d.ExitConfigMode()
	if d.GetState() != StateIdle {
		t.Fatalf("expected state to remain idle without a running machine, got %v", d.GetState())
	}
}

func TestSetFlagsAndManufacturerDataRejectedWhileStarted(t *testing.T) {
	d, err := NewDevice(validConfig(), Callbacks{}, nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	d.started = true
	if err := d.SetFlags(DeviceFlagSleepModeEnabled); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted from SetFlags, got %v", err)
	}
	if err := d.SetManufacturerData(1, 2); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted from SetManufacturerData, got %v", err)
	}
}

func TestGetSetManufacturerDataRoundTrip(t *testing.T) {
	d, err := NewDevice(validConfig(), Callbacks{}, nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if err := d.SetManufacturerData(10, 20); err != nil {
		t.Fatalf("SetManufacturerData: %v", err)
	}
	manufacturerID, productID := d.GetManufacturerData()
	if manufacturerID != 10 || productID != 20 {
		t.Fatalf("expected (10, 20), got (%d, %d)", manufacturerID, productID)
	}
}
