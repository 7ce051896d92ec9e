// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/go-supla/libsupla"
)

// hostStateReporter fills in the IPv4/MAC fields of a device's channels once
// at startup and logs the host's resource usage whenever the server asks
// for a channel's state, mirroring the system telemetry collected by a
// typical monitoring daemon but scoped to what SUPLA's channel state reply
// can carry.
type hostStateReporter struct {
	logger *slog.Logger
}

func newHostStateReporter(logger *slog.Logger) *hostStateReporter {
	return &hostStateReporter{logger: logger.With("component", "host_state")}
}

// primeNetworkState looks up the first non-loopback interface with an IPv4
// address and records it on every channel passed in.
func (h *hostStateReporter) primeNetworkState(channels ...*libsupla.Channel) {
	ipv4, mac, err := firstNonLoopbackInterface()
	if err != nil {
		h.logger.Warn("could not determine network state", "error", err)
		return
	}
	for _, ch := range channels {
		ch.SetNetworkState(ipv4, mac)
	}
}

// OnChannelStateRequested logs the host's current CPU and memory usage;
// wire it into libsupla.Callbacks.OnChannelStateRequested.
func (h *hostStateReporter) OnChannelStateRequested(_ *libsupla.Device, channelNumber uint8) {
	fields := []any{"channel", channelNumber}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		fields = append(fields, "cpu_percent", pct[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, "mem_percent", vm.UsedPercent)
	}
	h.logger.Debug("reporting channel state", fields...)
}

func firstNonLoopbackInterface() ([4]byte, [6]byte, error) {
	var ipv4 [4]byte
	var mac [6]byte

	ifaces, err := net.Interfaces()
	if err != nil {
		return ipv4, mac, fmt.Errorf("listing interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipNet.IP.To4()
			if v4 == nil {
				continue
			}
			copy(ipv4[:], v4)
			copy(mac[:], iface.HardwareAddr)
			return ipv4, mac, nil
		}
	}
	return ipv4, mac, fmt.Errorf("no usable network interface found")
}
