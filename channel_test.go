// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import (
	"errors"
	"testing"
)

func TestNewChannelRejectsUnknownType(t *testing.T) {
	_, err := NewChannel(ChannelConfig{Type: ChannelType(0)})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestChannelRegistrationEncodesRelatedChannel(t *testing.T) {
	relay, err := NewChannel(ChannelConfig{Type: ChannelTypeRelay})
	if err != nil {
		t.Fatalf("NewChannel(relay): %v", err)
	}
	relay.number = 2

	trigger, err := NewChannel(ChannelConfig{
		Type:           ChannelTypeActionTrigger,
		RelatedChannel: relay,
	})
	if err != nil {
		t.Fatalf("NewChannel(trigger): %v", err)
	}
	trigger.number = 3

	reg := trigger.Registration()
	if reg.RelatedChannel != int16(relay.Number())+1 {
		t.Fatalf("expected RelatedChannel to be relay's number+1 (%d), got %d", relay.Number()+1, reg.RelatedChannel)
	}

	standalone, err := NewChannel(ChannelConfig{Type: ChannelTypeThermometer})
	if err != nil {
		t.Fatalf("NewChannel(standalone): %v", err)
	}
	if got := standalone.Registration().RelatedChannel; got != 0 {
		t.Fatalf("expected RelatedChannel 0 when unset, got %d", got)
	}
}

func TestChannelRegistrationSetsChannelStateFlagWhenOnGetStateConfigured(t *testing.T) {
	ch, err := NewChannel(ChannelConfig{
		Type:       ChannelTypeThermometer,
		OnGetState: func(ch *Channel, report *ChannelStateReport) {},
	})
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	if reg := ch.Registration(); reg.Flags&ChannelFlagChannelState == 0 {
		t.Fatalf("expected ChannelFlagChannelState to be set automatically, got flags %v", reg.Flags)
	}
}

func TestChannelOnStateRequestAppliesOnGetStateAugmentation(t *testing.T) {
	ch, err := NewChannel(ChannelConfig{
		Type: ChannelTypeThermometer,
		OnGetState: func(ch *Channel, report *ChannelStateReport) {
			report.SetBattery(55, true)
		},
	})
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	result := ch.OnStateRequest(10, 5, ResetCauseNone)
	if result.BatteryLevel != 55 || !result.BatteryPowered {
		t.Fatalf("expected OnGetState augmentation to set battery fields, got %+v", result)
	}
}

func TestChannelHasConfigCallback(t *testing.T) {
	withCallback, err := NewChannel(ChannelConfig{
		Type:         ChannelTypeThermometer,
		OnConfigRecv: func(ch *Channel, data []byte) {},
	})
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	if !withCallback.HasConfigCallback() {
		t.Fatalf("expected HasConfigCallback to report true when OnConfigRecv is set")
	}

	without, err := NewChannel(ChannelConfig{Type: ChannelTypeThermometer})
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	if without.HasConfigCallback() {
		t.Fatalf("expected HasConfigCallback to report false without OnConfigRecv")
	}
}
