// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package hostconfig

import (
	"os"
	"path/filepath"
	"testing"
)

const exampleYAML = `
device:
  name: kitchen-thermometer
  soft_version: 2.1.0
  guid: 000102030405060708090a0b0c0d0e0f
  auth_key: 0f0e0d0c0b0a09080706050403020100
server:
  address: svr1.supla.org:2016
  use_tls: true
  dscp: AF41
retry:
  initial_delay: 2s
  max_delay: 1m
logging:
  level: debug
  format: text
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "device.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadParsesExampleFile(t *testing.T) {
	path := writeTemp(t, exampleYAML)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Device.Name != "kitchen-thermometer" {
		t.Errorf("expected device.name 'kitchen-thermometer', got %q", f.Device.Name)
	}
	if f.Server.Address != "svr1.supla.org:2016" {
		t.Errorf("expected server.address 'svr1.supla.org:2016', got %q", f.Server.Address)
	}
	if !f.Server.UseTLS {
		t.Error("expected use_tls true")
	}
	if f.Logging.Format != "text" {
		t.Errorf("expected logging.format 'text', got %q", f.Logging.Format)
	}
}

func TestLoadMissingRequiredField(t *testing.T) {
	_, err := Load(writeTemp(t, "device:\n  name: foo\n"))
	if err == nil {
		t.Fatal("expected error for missing guid/auth_key/server")
	}
}

func TestGUIDAndAuthKeyBytes(t *testing.T) {
	path := writeTemp(t, exampleYAML)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	guid, err := f.GUIDBytes()
	if err != nil {
		t.Fatalf("GUIDBytes: %v", err)
	}
	if guid[0] != 0x00 || guid[15] != 0x0f {
		t.Errorf("unexpected decoded GUID: %x", guid)
	}
	key, err := f.AuthKeyBytes()
	if err != nil {
		t.Fatalf("AuthKeyBytes: %v", err)
	}
	if key[0] != 0x0f || key[15] != 0x00 {
		t.Errorf("unexpected decoded auth key: %x", key)
	}
}

func TestGUIDBytesRejectsWrongLength(t *testing.T) {
	f := &File{Device: DeviceInfo{GUID: "aabb"}}
	if _, err := f.GUIDBytes(); err == nil {
		t.Fatal("expected error for short GUID")
	}
}
