// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/robfig/cron/v3"

	"github.com/go-supla/libsupla"
)

// sensorSimulator feeds a thermometer channel with a slowly drifting
// temperature reading, standing in for the ADC read the platform's own C
// example performs every 10 seconds.
type sensorSimulator struct {
	cron        *cron.Cron
	thermometer *libsupla.Channel
	logger      *slog.Logger
	lastReading float64
}

func newSensorSimulator(thermometer *libsupla.Channel, logger *slog.Logger) *sensorSimulator {
	return &sensorSimulator{
		thermometer: thermometer,
		logger:      logger.With("component", "sensor_simulator"),
		lastReading: 21.0,
	}
}

// Start schedules the simulated reading and returns once the first job has
// been registered; it returns an error only if the cron expression is
// malformed.
func (s *sensorSimulator) Start() error {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug))))
	if _, err := c.AddFunc("@every 10s", s.tick); err != nil {
		return fmt.Errorf("scheduling sensor simulator: %w", err)
	}
	s.cron = c
	s.cron.Start()
	s.logger.Info("sensor simulator started")
	return nil
}

// Stop waits for any in-flight tick to finish or ctx to be canceled.
func (s *sensorSimulator) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

func (s *sensorSimulator) tick() {
	drift := rand.Float64()*0.6 - 0.3
	s.lastReading += drift
	if s.lastReading < -10 {
		s.lastReading = -10
	}
	if s.lastReading > 40 {
		s.lastReading = 40
	}
	s.thermometer.SetDoubleValue(s.lastReading)
	s.logger.Debug("simulated temperature reading", "celsius", s.lastReading)
}
