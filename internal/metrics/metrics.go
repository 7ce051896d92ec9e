// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package metrics exposes a Device's connection state as Prometheus
// collectors and a small JSON health endpoint, for a host application that
// wants to scrape or poll it; the core library itself has no opinion on
// observability transport.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-supla/libsupla"
)

// Collector is a prometheus.Collector pulling live gauges from a Device on
// every scrape, plus a reconnect counter fed by OnStateChanged.
type Collector struct {
	device *libsupla.Device

	reconnects atomic.Uint64
	lastState  atomic.Int32

	uptimeDesc           *prometheus.Desc
	connectionUptimeDesc *prometheus.Desc
	stateDesc            *prometheus.Desc
	reconnectsDesc       *prometheus.Desc
	dirtySlotsDesc       *prometheus.Desc
}

// NewCollector wraps device. Register the result with a prometheus.Registry
// to expose it, and chain Collector.OnStateChanged into the device's
// Callbacks to count reconnects.
func NewCollector(device *libsupla.Device) *Collector {
	c := &Collector{
		device: device,
		uptimeDesc: prometheus.NewDesc(
			"libsupla_device_uptime_seconds", "Seconds since the device was started.", nil, nil),
		connectionUptimeDesc: prometheus.NewDesc(
			"libsupla_connection_uptime_seconds", "Seconds since the current connection was established, 0 unless Registered or Online.", nil, nil),
		stateDesc: prometheus.NewDesc(
			"libsupla_session_state", "Current session state as an integer (see libsupla.State).", []string{"state"}, nil),
		reconnectsDesc: prometheus.NewDesc(
			"libsupla_reconnects_total", "Number of times the session has returned to Init after having been connected.", nil, nil),
		dirtySlotsDesc: prometheus.NewDesc(
			"libsupla_channel_dirty_slots", "Number of channel value/extended-value/action-trigger slots currently awaiting sync.", nil, nil),
	}
	c.lastState.Store(int32(libsupla.StateIdle))
	return c
}

// OnStateChanged counts a reconnect whenever the session falls back to Init
// after having previously reached Connected or later. Wire it into
// libsupla.Callbacks.OnStateChanged, chaining any existing handler.
func (c *Collector) OnStateChanged(_ *libsupla.Device, state libsupla.State) {
	prev := libsupla.State(c.lastState.Swap(int32(state)))
	if state == libsupla.StateInit && prev != libsupla.StateIdle && prev != libsupla.StateInit {
		c.reconnects.Add(1)
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.uptimeDesc
	ch <- c.connectionUptimeDesc
	ch <- c.stateDesc
	ch <- c.reconnectsDesc
	ch <- c.dirtySlotsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	state := c.device.GetState()

	ch <- prometheus.MustNewConstMetric(c.uptimeDesc, prometheus.GaugeValue, c.device.GetUptime().Seconds())
	ch <- prometheus.MustNewConstMetric(c.connectionUptimeDesc, prometheus.GaugeValue, c.device.GetConnectionUptime().Seconds())
	ch <- prometheus.MustNewConstMetric(c.stateDesc, prometheus.GaugeValue, float64(state), state.String())
	ch <- prometheus.MustNewConstMetric(c.reconnectsDesc, prometheus.CounterValue, float64(c.reconnects.Load()))
	ch <- prometheus.MustNewConstMetric(c.dirtySlotsDesc, prometheus.GaugeValue, float64(c.countDirtySlots()))
}

func (c *Collector) countDirtySlots() int {
	n := c.device.GetChannelCount()
	dirty := 0
	for i := 0; i < n; i++ {
		ch, err := c.device.GetChannelByNumber(uint8(i))
		if err != nil {
			continue
		}
		if ch.ValueDirty() {
			dirty++
		}
		if ch.HasExtendedValue() && ch.ExtendedValueDirty() {
			dirty++
		}
		if ch.ActionTriggerDirty() {
			dirty++
		}
	}
	return dirty
}
