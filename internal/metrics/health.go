// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-supla/libsupla"
)

// HealthResponse is the JSON body served at the health endpoint.
type HealthResponse struct {
	Status              string  `json:"status"`
	State               string  `json:"state"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
	ConnectionUptimeSec float64 `json:"connection_uptime_seconds"`
	ResetCause          string  `json:"last_reset_cause"`
	ChannelCount        int     `json:"channel_count"`
}

// NewHealthHandler returns a handler serving device's state as JSON,
// deliberately kept on net/http and encoding/json: a single read-only route
// doesn't justify a router dependency.
func NewHealthHandler(device *libsupla.Device) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:              "ok",
			State:               device.GetState().String(),
			UptimeSeconds:       device.GetUptime().Seconds(),
			ConnectionUptimeSec: device.GetConnectionUptime().Seconds(),
			ResetCause:          device.GetResetCause().String(),
			ChannelCount:        device.GetChannelCount(),
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(resp)
	})
}
