// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package srpc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadFrame reads one frame's envelope and payload from r.
// Wire format: Magic[5] Version[1] CallID[4] CallType[4] DataSize[4] Data[DataSize].
func ReadFrame(r io.Reader) (Frame, error) {
	var magic [5]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Frame{}, fmt.Errorf("srpc: reading magic: %w", err)
	}
	if magic != Magic {
		return Frame{}, ErrInvalidMagic
	}

	var version [1]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return Frame{}, fmt.Errorf("srpc: reading version: %w", err)
	}
	if version[0] != Version {
		return Frame{}, ErrInvalidVersion
	}

	var callID uint32
	if err := binary.Read(r, binary.BigEndian, &callID); err != nil {
		return Frame{}, fmt.Errorf("srpc: reading call id: %w", err)
	}

	var callType uint32
	if err := binary.Read(r, binary.BigEndian, &callType); err != nil {
		return Frame{}, fmt.Errorf("srpc: reading call type: %w", err)
	}

	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return Frame{}, fmt.Errorf("srpc: reading data size: %w", err)
	}
	if size > MaxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return Frame{}, fmt.Errorf("srpc: reading data: %w", err)
	}

	return Frame{CallID: callID, CallType: CallType(callType), Data: data}, nil
}

// WriteFrame writes f's envelope and payload to w.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Data) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, 0, 5+1+4+4+4+len(f.Data))
	buf = append(buf, Magic[:]...)
	buf = append(buf, Version)
	buf = binary.BigEndian.AppendUint32(buf, f.CallID)
	buf = binary.BigEndian.AppendUint32(buf, uint32(f.CallType))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Data)))
	buf = append(buf, f.Data...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("srpc: writing frame: %w", err)
	}
	return nil
}
