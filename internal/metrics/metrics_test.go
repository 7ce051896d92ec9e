// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-supla/libsupla"
)

func newTestDevice(t *testing.T) *libsupla.Device {
	t.Helper()
	var cfg libsupla.Config
	cfg.Name = "test-device"
	cfg.ServerAddress = "127.0.0.1:2016"
	cfg.GUID[0] = 1
	cfg.AuthKey[0] = 1
	d, err := libsupla.NewDevice(cfg, libsupla.Callbacks{}, nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	return d
}

func TestCollectorExposesState(t *testing.T) {
	d := newTestDevice(t)
	c := NewCollector(d)

	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	if count != 5 {
		t.Fatalf("expected 5 metrics, got %d", count)
	}
}

func TestCollectorCountsReconnects(t *testing.T) {
	d := newTestDevice(t)
	c := NewCollector(d)

	c.OnStateChanged(d, libsupla.StateInit)
	c.OnStateChanged(d, libsupla.StateConnected)
	c.OnStateChanged(d, libsupla.StateOnline)
	c.OnStateChanged(d, libsupla.StateInit) // reconnect: was Online
	c.OnStateChanged(d, libsupla.StateInit) // not a reconnect: already Init

	if got := c.reconnects.Load(); got != 1 {
		t.Errorf("expected 1 reconnect, got %d", got)
	}
}

func TestHealthHandlerServesJSON(t *testing.T) {
	d := newTestDevice(t)
	h := NewHealthHandler(d)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"status": "ok"`) {
		t.Errorf("expected status ok in body, got %s", body)
	}
	if !strings.Contains(body, `"state": "idle"`) {
		t.Errorf("expected state idle in body, got %s", body)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
