// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package batch

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// ErrDisconnected is returned by Fill when the peer drops while the
// batch is being collected. The partial batch is discarded.
var ErrDisconnected = errors.New("peer disconnected during batch fill")

// State of the batcher between publishes.
type State int

const (
	StateEmpty   State = iota // no readings collected since the last publish
	StateFilling              // 0 < count < size
	StateReady                // count == size, payload handed out
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFilling:
		return "filling"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Batcher accumulates a fixed number of readings and serializes them
// into one payload. The readings slice and the encode buffer are reused
// across batches and sessions; nothing is shared with the transport
// beyond a read-only handoff of the encoded payload at publish time.
type Batcher struct {
	codec    Codec
	size     int
	poll     time.Duration
	readings []imu.Reading
	buf      []byte
}

// NewBatcher creates a batcher producing batches of exactly size
// readings. poll is how long Fill yields between source polls while the
// source is not ready; zero means a bare scheduler yield.
func NewBatcher(codec Codec, size int, poll time.Duration) *Batcher {
	return &Batcher{
		codec:    codec,
		size:     size,
		poll:     poll,
		readings: make([]imu.Reading, 0, size),
		buf:      make([]byte, 0, size*ReadingSize),
	}
}

// Size returns the batch size N.
func (b *Batcher) Size() int { return b.size }

// Len returns the current fill count.
func (b *Batcher) Len() int { return len(b.readings) }

// State reports where the batcher is between publishes.
func (b *Batcher) State() State {
	switch {
	case len(b.readings) == 0:
		return StateEmpty
	case len(b.readings) < b.size:
		return StateFilling
	}
	return StateReady
}

// Reset discards any collected readings. Called after a publish, and on
// session teardown so no readings leak into the next session.
func (b *Batcher) Reset() {
	b.readings = b.readings[:0]
}

// Fill pulls readings from src one at a time until the batch holds
// exactly its size, then serializes it and returns the payload. A
// not-ready source retries the same slot without advancing, with no
// timeout: a sensor that never becomes ready stalls the fill forever.
// connected is re-checked on every poll; when it reports false the
// partial batch is discarded and ErrDisconnected returned.
//
// The returned payload aliases the batcher's internal buffer and is
// valid until the next Fill.
func (b *Batcher) Fill(src imu.Source, connected func() bool) (Payload, error) {
	for len(b.readings) < b.size {
		if connected != nil && !connected() {
			b.Reset()
			return Payload{}, ErrDisconnected
		}
		if !src.Ready() {
			if b.poll > 0 {
				time.Sleep(b.poll)
			} else {
				runtime.Gosched()
			}
			continue
		}
		r, err := src.Read()
		if err != nil {
			return Payload{}, fmt.Errorf("sample read: %w", err)
		}
		b.readings = append(b.readings, r)
	}

	b.buf = b.codec.Encode(b.buf[:0], b.readings)
	return Payload{Data: b.buf, Text: b.codec.Text()}, nil
}
