// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import (
	"fmt"
	"time"

	"github.com/go-supla/libsupla/internal/proto"
	"github.com/go-supla/libsupla/internal/transport"
)

// libVersion is this module's own version, reported as part of the default
// SoftVersion string when a host doesn't set one.
const libVersion = "1.0"

// DefaultName is the device Name used when a host leaves it unset.
const DefaultName = "SUPLA device"

// Config describes a device's identity and connection parameters. It is
// passed to NewDevice or later replaced with SetConfig while the device is
// stopped.
type Config struct {
	// GUID uniquely identifies this device to the server.
	GUID [proto.GUIDSize]byte
	// AuthKey authenticates this device; both must match what the server
	// has on record for GUID.
	AuthKey [proto.AuthKeySize]byte

	// Name is a human-readable device identifier reported at registration.
	// Defaults to DefaultName if left empty.
	Name string
	// SoftVersion is the host application's version string. Defaults to
	// "libsupla <VER>" if left empty.
	SoftVersion string

	// ManufacturerID and ProductID identify the device's hardware to the
	// server's catalog; 0 means unset.
	ManufacturerID int16
	ProductID      int16
	// Flags advertises optional device-level capabilities at registration.
	Flags DeviceFlag

	// ServerAddress is the SUPLA cloud server's host or host:port; without a
	// port, 2016 (UseTLS) or 2015 is used.
	ServerAddress string
	// UseTLS selects TLS (port 2016 by convention) vs plain TCP (2015).
	UseTLS bool
	// ServerCertCAPath optionally pins an additional CA for server
	// certificate verification.
	ServerCertCAPath string
	// DSCP optionally marks the outbound socket's DSCP code point (e.g.
	// "AF41") for QoS-aware networks.
	DSCP string
	// DialTimeout bounds the TCP/TLS handshake. Zero uses a 10s default.
	DialTimeout time.Duration

	// ActivityTimeoutSec is the requested idle/ping window, clamped to
	// [proto.MinActivityTimeoutSec, proto.MaxActivityTimeoutSec]. Zero uses
	// the protocol default (120s).
	ActivityTimeoutSec uint8

	// FramesPerSecond caps how many outbound frames the dispatcher flushes
	// per second. Zero uses rpc.DefaultFramesPerSecond.
	FramesPerSecond int

	// ReconnectInitialBackoff and ReconnectMaxBackoff bound the exponential
	// backoff applied between failed connection attempts. Zero values use
	// 1s and 2m respectively.
	ReconnectInitialBackoff time.Duration
	ReconnectMaxBackoff     time.Duration
}

// applyDefaults fills in Name and SoftVersion when a host leaves them
// unset, matching create(name, software_version)'s documented defaults.
func (c Config) applyDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.SoftVersion == "" {
		c.SoftVersion = "libsupla " + libVersion
	}
	return c
}

func (c Config) validate() error {
	if len(c.Name) > proto.NameMaxSize {
		return fmt.Errorf("%w: Name exceeds %d bytes", ErrInvalidArgument, proto.NameMaxSize)
	}
	if c.ServerAddress == "" {
		return fmt.Errorf("%w: ServerAddress is required", ErrInvalidArgument)
	}
	if isZero(c.GUID[:]) {
		return fmt.Errorf("%w: GUID must be non-zero", ErrGUIDInvalid)
	}
	if isZero(c.AuthKey[:]) {
		return fmt.Errorf("%w: AuthKey must be non-zero", ErrAuthKeyInvalid)
	}
	return nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func (c Config) transportOptions() transport.Options {
	timeout := c.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return transport.Options{
		UseTLS:           c.UseTLS,
		ServerCertCAPath: c.ServerCertCAPath,
		DSCP:             c.DSCP,
		DialTimeout:      timeout,
	}
}

func (c Config) activityTimeout() uint8 {
	t := c.ActivityTimeoutSec
	if t == 0 {
		t = proto.DefaultActivityTimeoutSec
	}
	if t < proto.MinActivityTimeoutSec {
		t = proto.MinActivityTimeoutSec
	}
	if t > proto.MaxActivityTimeoutSec {
		t = proto.MaxActivityTimeoutSec
	}
	return t
}

func defaultPort(useTLS bool) int {
	if useTLS {
		return proto.DefaultTLSPort
	}
	return proto.DefaultPlainPort
}
