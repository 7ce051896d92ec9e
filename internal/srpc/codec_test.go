// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package srpc

import (
	"bytes"
	"testing"

	"github.com/go-supla/libsupla/internal/proto"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Frame{CallID: 7, CallType: CallPing, Data: []byte{1, 2, 3}}
	if err := WriteFrame(&buf, want); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.CallID != want.CallID || got.CallType != want.CallType || !bytes.Equal(got.Data, want.Data) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReadFrameRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("XXXXX")
	if _, err := ReadFrame(buf); err != ErrInvalidMagic {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestRegisterDeviceRoundTrip(t *testing.T) {
	rd := RegisterDevice{
		Name:        "kitchen-sensor",
		SoftVersion: "1.0.0",
		ServerName:  "svr1.example.com",
		Flags:       proto.DeviceFlagDeviceConfigSupported,
		Channels: []ChannelRegistration{
			{
				Number:          0,
				Type:            proto.ChannelTypeThermometer,
				DefaultFunction: proto.FunctionThermometer,
				SupportedFuncs:  proto.FunctionThermometer,
				RelatedChannel:  -1,
				DefaultCaption:  "Kitchen",
			},
		},
	}
	rd.GUID[0] = 0xAB
	rd.AuthKey[0] = 0xCD

	data := rd.Marshal()
	got, err := UnmarshalRegisterDevice(data)
	if err != nil {
		t.Fatalf("UnmarshalRegisterDevice: %v", err)
	}
	if got.Name != rd.Name || got.SoftVersion != rd.SoftVersion || got.ServerName != rd.ServerName {
		t.Fatalf("string fields mismatch: %+v", got)
	}
	if len(got.Channels) != 1 || got.Channels[0].DefaultCaption != "Kitchen" {
		t.Fatalf("channel roundtrip mismatch: %+v", got.Channels)
	}
	if got.GUID != rd.GUID || got.AuthKey != rd.AuthKey {
		t.Fatalf("guid/authkey roundtrip mismatch")
	}
}

func TestChannelValueRoundTrip(t *testing.T) {
	var cv ChannelValue
	cv.ChannelNumber = 3
	cv.Value[0] = 0x42

	got, err := UnmarshalChannelValue(cv.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalChannelValue: %v", err)
	}
	if got.ChannelNumber != 3 || got.Value[0] != 0x42 {
		t.Fatalf("got %+v", got)
	}
}

func TestGetChannelFunctionsResultSkipsUnmentionedChannels(t *testing.T) {
	data := []byte{1, 5, 0, 0, 0, 1}
	r, err := UnmarshalGetChannelFunctionsResult(data)
	if err != nil {
		t.Fatalf("UnmarshalGetChannelFunctionsResult: %v", err)
	}
	if len(r.Functions) != 1 || r.Functions[5] != proto.FunctionThermometer {
		t.Fatalf("got %+v", r.Functions)
	}
	if _, ok := r.Functions[0]; ok {
		t.Fatalf("channel 0 was not enumerated and should be absent")
	}
}
