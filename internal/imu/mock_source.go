// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package imu

import (
	"math"
	"time"
)

type mockSource struct {
	start    time.Time
	interval time.Duration
	last     time.Time
}

// NewMockSource creates a mock sample source that generates smooth
// changing values at the given interval. Useful on machines without the
// sensor attached.
func NewMockSource(interval time.Duration) Source {
	return &mockSource{start: time.Now(), interval: interval}
}

func (m *mockSource) Ready() bool {
	return time.Since(m.last) >= m.interval
}

func (m *mockSource) Read() (Reading, error) {
	m.last = time.Now()
	elapsed := time.Since(m.start).Seconds()

	return Reading{
		Gx: float32(120 * math.Sin(elapsed)),
		Gy: float32(90 * math.Cos(elapsed*0.7)),
		Gz: float32(math.Mod(elapsed*30, 360) - 180),
		Ax: float32(0.5 * math.Sin(elapsed*1.3)),
		Ay: float32(0.5 * math.Cos(elapsed*1.1)),
		Az: float32(1 + 0.05*math.Sin(elapsed*2)),
	}, nil
}
