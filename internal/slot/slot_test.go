// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package slot

import (
	"testing"

	"github.com/go-supla/libsupla/internal/proto"
)

func TestValueSetAlwaysDirtyWhenNotOnChangeOnly(t *testing.T) {
	v := NewValue(false)
	if v.Dirty() {
		t.Fatalf("new value slot should start clean")
	}
	if dirty := v.SetDouble(22.5); !dirty {
		t.Fatalf("expected first Set to mark dirty")
	}
	v.MarkSynced()
	if dirty := v.SetDouble(22.5); !dirty {
		t.Fatalf("expected repeated identical Set to still mark dirty when onChangeOnly=false")
	}
}

func TestValueSetOnChangeOnlySkipsIdenticalWrites(t *testing.T) {
	v := NewValue(true)
	if dirty := v.SetByte(1); !dirty {
		t.Fatalf("expected first Set to mark dirty")
	}
	v.MarkSynced()
	if dirty := v.SetByte(1); dirty {
		t.Fatalf("expected identical Set to be a no-op when onChangeOnly=true")
	}
	if dirty := v.SetByte(0); !dirty {
		t.Fatalf("expected changed Set to mark dirty")
	}
}

func TestValueSetDoublePacksLowEightBytes(t *testing.T) {
	v := NewValue(false)
	v.SetDouble(22.5)
	b := v.Bytes()
	for i := 8; i < proto.ValueSize; i++ {
		if b[i] != 0 {
			t.Fatalf("expected bytes beyond the packed double to be zero, got %v at %d", b[i], i)
		}
	}
}

func TestExtendedValueRejectsOversizedPayload(t *testing.T) {
	e := NewExtendedValue()
	_, err := e.Set(make([]byte, proto.ExtendedValueSize+1))
	if err == nil {
		t.Fatalf("expected error for oversized payload")
	}
}

func TestExtendedValueDedupesIdenticalWrites(t *testing.T) {
	e := NewExtendedValue()
	dirty, err := e.Set([]byte{1, 2, 3})
	if err != nil || !dirty {
		t.Fatalf("expected first write to be dirty, got dirty=%v err=%v", dirty, err)
	}
	e.MarkSynced()
	dirty, err = e.Set([]byte{1, 2, 3})
	if err != nil || dirty {
		t.Fatalf("expected identical write to be a no-op, got dirty=%v err=%v", dirty, err)
	}
}

func TestActionTriggerEmitRejectsUnsupportedAction(t *testing.T) {
	at := NewActionTrigger(proto.ActionCapTurnOn, nil)
	if err := at.Emit(proto.ActionCapTurnOff); err != ErrActionNotSupported {
		t.Fatalf("expected ErrActionNotSupported, got %v", err)
	}
}

func TestActionTriggerConflictDisablesAfterFirstFire(t *testing.T) {
	conflicts := map[proto.ActionCap]proto.ActionCap{
		proto.ActionCapToggleX1: proto.ActionCapHoldOn,
		proto.ActionCapHoldOn:   proto.ActionCapToggleX1,
	}
	at := NewActionTrigger(proto.ActionCapToggleX1|proto.ActionCapHoldOn, conflicts)

	if err := at.Emit(proto.ActionCapToggleX1); err != nil {
		t.Fatalf("unexpected error on first emit: %v", err)
	}
	if err := at.Emit(proto.ActionCapHoldOn); err != ErrActionDisabled {
		t.Fatalf("expected ErrActionDisabled after conflicting action fired, got %v", err)
	}
}

func TestActionTriggerEmitIsLatestWinsNotAccumulating(t *testing.T) {
	at := NewActionTrigger(proto.ActionCapTurnOn|proto.ActionCapToggleX1, nil)
	if err := at.Emit(proto.ActionCapTurnOn); err != nil {
		t.Fatalf("unexpected error on first emit: %v", err)
	}
	if err := at.Emit(proto.ActionCapToggleX1); err != nil {
		t.Fatalf("unexpected error on second emit: %v", err)
	}
	p := at.Drain()
	if p != proto.ActionCapToggleX1 {
		t.Fatalf("expected drained action to be only the latest emit (ToggleX1), got %v", p)
	}
}

func TestActionTriggerDrainClearsPending(t *testing.T) {
	at := NewActionTrigger(proto.ActionCapTurnOn, nil)
	at.Emit(proto.ActionCapTurnOn)
	if !at.Dirty() {
		t.Fatalf("expected dirty after emit")
	}
	p := at.Drain()
	if p != proto.ActionCapTurnOn {
		t.Fatalf("expected drained action to be TurnOn, got %v", p)
	}
	if at.Dirty() {
		t.Fatalf("expected clean after drain")
	}
}
