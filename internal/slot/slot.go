// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package slot implements the dirty-bit storage cells that back a channel's
// value, extended value and action-trigger state. Each slot tracks whether
// it has been synced to the server since its last change so the dispatcher
// can decide, every tick, which channels need an outbound frame.
package slot

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/go-supla/libsupla/internal/proto"
)

// Value holds a channel's primary ValueSize-byte value buffer.
type Value struct {
	mu         sync.Mutex
	data       [proto.ValueSize]byte
	synced     bool
	onChangeOnly bool
}

// NewValue constructs a Value slot. When onChangeOnly is true (the channel's
// sync_values_onchange flag), Set only marks the slot dirty if the bytes
// actually differ from what is stored; otherwise every Set marks it dirty
// unconditionally, matching supla_val_set's behavior for channels that
// always want to push updates (e.g. impulse counters).
func NewValue(onChangeOnly bool) *Value {
	return &Value{synced: true, onChangeOnly: onChangeOnly}
}

// Set overwrites the value bytes. It returns true if the slot became dirty
// as a result (i.e. the caller should expect iterate to emit it).
func (v *Value) Set(data [proto.ValueSize]byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.onChangeOnly && v.data == data {
		return false
	}
	v.data = data
	v.synced = false
	return true
}

// SetDouble packs f into the first 8 bytes of the value buffer, little
// endian, leaving the remaining bytes zero.
func (v *Value) SetDouble(f float64) bool {
	var buf [proto.ValueSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(f))
	return v.Set(buf)
}

// SetByte packs a single byte value (used for binary sensors, relays).
func (v *Value) SetByte(b byte) bool {
	var buf [proto.ValueSize]byte
	buf[0] = b
	return v.Set(buf)
}

// Bytes returns a copy of the current value buffer.
func (v *Value) Bytes() [proto.ValueSize]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data
}

// Dirty reports whether the slot has unsynced changes.
func (v *Value) Dirty() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.synced
}

// MarkSynced clears the dirty bit, to be called once the value has been
// sent to the server.
func (v *Value) MarkSynced() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.synced = true
}

// ExtendedValue holds a channel's secondary, larger value buffer (electricity
// meter measurements, thermostat state, impulse counter totals).
type ExtendedValue struct {
	mu     sync.Mutex
	data   []byte
	size   int
	synced bool
}

// NewExtendedValue constructs an empty ExtendedValue slot.
func NewExtendedValue() *ExtendedValue {
	return &ExtendedValue{synced: true}
}

// Set stores data, which must not exceed proto.ExtendedValueSize. It returns
// an error if data is too large, and true if the slot became dirty.
func (e *ExtendedValue) Set(data []byte) (bool, error) {
	if len(data) > proto.ExtendedValueSize {
		return false, ErrExtendedValueTooLarge
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.size == len(data) && bytesEqual(e.data[:e.size], data) {
		return false, nil
	}
	if cap(e.data) < len(data) {
		e.data = make([]byte, proto.ExtendedValueSize)
	}
	copy(e.data, data)
	e.size = len(data)
	e.synced = false
	return true, nil
}

// Bytes returns a copy of the stored payload.
func (e *ExtendedValue) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]byte, e.size)
	copy(out, e.data[:e.size])
	return out
}

func (e *ExtendedValue) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.synced
}

func (e *ExtendedValue) MarkSynced() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.synced = true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ActionTriggerEvent is a single emitted action awaiting delivery.
type ActionTriggerEvent struct {
	Action proto.ActionCap
}

// ActionTrigger holds the pending-action state for an action-trigger
// channel: which actions it is capable of emitting, which actions are
// mutually exclusive, and the single pending event (if any) awaiting sync.
type ActionTrigger struct {
	mu          sync.Mutex
	caps        proto.ActionCap
	conflicts   map[proto.ActionCap]proto.ActionCap
	firedOnce   proto.ActionCap
	pending     proto.ActionCap
	synced      bool
}

// NewActionTrigger constructs a slot supporting the given capability
// bitmask. conflicts maps an action to the set of other actions that become
// unavailable once it has fired at least once, mirroring
// action_trigger_conflicts in the original firmware (e.g. a single short
// press disables the hold-to-dim flow and vice versa).
func NewActionTrigger(caps proto.ActionCap, conflicts map[proto.ActionCap]proto.ActionCap) *ActionTrigger {
	return &ActionTrigger{caps: caps, conflicts: conflicts, synced: true}
}

// Emit records that action fired. It returns ErrActionNotSupported if the
// channel was never configured to emit it, and ErrActionDisabled if a
// conflicting action has already fired during this session.
func (a *ActionTrigger) Emit(action proto.ActionCap) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.caps&action == 0 {
		return ErrActionNotSupported
	}
	if disabled, ok := a.conflicts[action]; ok && a.firedOnce&disabled != 0 {
		return ErrActionDisabled
	}
	for trigger, disables := range a.conflicts {
		if disables&action != 0 && a.firedOnce&trigger != 0 {
			return ErrActionDisabled
		}
	}

	a.pending = action
	a.firedOnce |= action
	a.synced = false
	return nil
}

// Drain returns the pending action bitmask and clears it, marking the slot
// synced.
func (a *ActionTrigger) Drain() proto.ActionCap {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.pending
	a.pending = 0
	a.synced = true
	return p
}

func (a *ActionTrigger) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.synced
}

func (a *ActionTrigger) Caps() proto.ActionCap {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.caps
}
