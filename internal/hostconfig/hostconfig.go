// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package hostconfig loads a device's identity and connection settings from
// a YAML file, the way a standalone host application (not a library caller
// embedding libsupla directly) typically wants to configure one. The core
// library itself never reads a file; it only ever takes a libsupla.Config
// value.
package hostconfig

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the top-level shape of a device configuration file.
type File struct {
	Device  DeviceInfo  `yaml:"device"`
	Server  ServerInfo  `yaml:"server"`
	Retry   RetryInfo   `yaml:"retry"`
	Logging LoggingInfo `yaml:"logging"`
}

// DeviceInfo identifies the device to the server.
type DeviceInfo struct {
	Name        string `yaml:"name"`
	SoftVersion string `yaml:"soft_version"`
	// GUID and AuthKey are hex-encoded, matching how the original firmware's
	// provisioning tools print them.
	GUID    string `yaml:"guid"`
	AuthKey string `yaml:"auth_key"`
}

// ServerInfo carries the connection parameters.
type ServerInfo struct {
	Address            string `yaml:"address"`
	UseTLS             bool   `yaml:"use_tls"`
	ServerCertCAPath   string `yaml:"server_cert_ca_path"`
	DSCP               string `yaml:"dscp"`
	ActivityTimeoutSec uint8  `yaml:"activity_timeout_sec"`
}

// RetryInfo configures the reconnect backoff policy.
type RetryInfo struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// LoggingInfo configures the host application's logger.
type LoggingInfo struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads and validates a device configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hostconfig: reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("hostconfig: parsing %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("hostconfig: validating %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Device.Name == "" {
		return fmt.Errorf("device.name is required")
	}
	if f.Device.GUID == "" {
		return fmt.Errorf("device.guid is required")
	}
	if f.Device.AuthKey == "" {
		return fmt.Errorf("device.auth_key is required")
	}
	if f.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if f.Device.SoftVersion == "" {
		f.Device.SoftVersion = "1.0.0"
	}
	if f.Retry.InitialDelay <= 0 {
		f.Retry.InitialDelay = time.Second
	}
	if f.Retry.MaxDelay <= 0 {
		f.Retry.MaxDelay = 2 * time.Minute
	}
	if f.Logging.Level == "" {
		f.Logging.Level = "info"
	}
	if f.Logging.Format == "" {
		f.Logging.Format = "json"
	}
	return nil
}

// GUIDBytes decodes the hex-encoded device GUID into a fixed 16-byte array.
func (f *File) GUIDBytes() ([16]byte, error) {
	return decodeFixed(f.Device.GUID, "device.guid")
}

// AuthKeyBytes decodes the hex-encoded auth key into a fixed 16-byte array.
func (f *File) AuthKeyBytes() ([16]byte, error) {
	return decodeFixed(f.Device.AuthKey, "device.auth_key")
}

func decodeFixed(hexStr, field string) ([16]byte, error) {
	var out [16]byte
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, fmt.Errorf("%s: invalid hex: %w", field, err)
	}
	if len(raw) != 16 {
		return out, fmt.Errorf("%s: expected 16 bytes, got %d", field, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
