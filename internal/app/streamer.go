// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package app

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/imu_streamer/internal/batch"
	"github.com/relabs-tech/imu_streamer/internal/config"
	"github.com/relabs-tech/imu_streamer/internal/imu"
	"github.com/relabs-tech/imu_streamer/internal/link"
	"github.com/relabs-tech/imu_streamer/internal/sensors"
	"github.com/relabs-tech/imu_streamer/internal/status"
)

// RunStreamer is the firmware main loop: bring up the sample source and
// the link, then serve one session per attached peer, each session
// filling and publishing batches until the peer detaches. Initialization
// failures are fatal; everything after boot is either retried in place
// or accepted as best-effort loss.
func RunStreamer() error {
	cfg := config.Get()

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}

	codec, err := batch.NewCodec(cfg.Batch.Format)
	if err != nil {
		return err
	}
	batcher := batch.NewBatcher(codec, cfg.Batch.Size,
		time.Duration(cfg.Batch.PollIntervalMS)*time.Millisecond)

	transport, err := buildTransport(cfg)
	if err != nil {
		return err
	}
	defer transport.Close()

	panel := status.OpenPanel()
	var display *status.Display
	if cfg.Display.Enabled {
		display, err = status.OpenDisplay()
		if err != nil {
			// diagnostics only, the stream does not depend on it
			log.Printf("streamer: display unavailable: %v", err)
			display = nil
		}
	}

	panel.SetReady(true)
	log.Printf("streamer: %s source, %d readings per batch, %s payload (%s link)",
		cfg.Source.Kind, cfg.Batch.Size, codec.Name(), cfg.Link.Kind)

	stats := status.Stats{LinkKind: cfg.Link.Kind, Format: codec.Name()}
	idle := time.Duration(cfg.Link.IdlePollMS) * time.Millisecond

	for {
		peer, ok := transport.Poll()
		if !ok {
			stats.PeerConnected = false
			display.Update(stats)
			time.Sleep(idle)
			continue
		}

		log.Printf("streamer: session started")
		panel.SetStreaming(true)
		stats.PeerConnected = true

		runSession(peer, src, batcher, panel, display, &stats)

		panel.SetStreaming(false)
		stats.PeerConnected = false
		log.Printf("streamer: session ended, %d batches published so far", stats.Batches)
	}
}

// runSession streams batches to one peer until it detaches. A partial
// batch in flight when the peer drops is discarded, never published.
func runSession(peer link.Peer, src imu.Source, batcher *batch.Batcher,
	panel *status.Panel, display *status.Display, stats *status.Stats) {

	windowStart := time.Now()
	windowBatches := uint64(0)

	for {
		payload, err := batcher.Fill(src, peer.Connected)
		if errors.Is(err, batch.ErrDisconnected) {
			return
		}
		if err != nil {
			// transient source fault; the partial batch is kept and the
			// next iteration resumes filling the same slot
			log.Printf("streamer: %v", err)
			continue
		}

		// Best-effort: the link gives no acknowledgment and a failed
		// notification is not retried.
		if err := peer.Publish(payload); err != nil {
			log.Printf("streamer: publish: %v", err)
		}
		batcher.Reset()
		panel.ToggleActivity()

		stats.Batches++
		windowBatches++
		if elapsed := time.Since(windowStart); elapsed >= 2*time.Second {
			stats.BatchRate = float64(windowBatches) / elapsed.Seconds()
			windowStart = time.Now()
			windowBatches = 0
		}
		display.Update(*stats)
	}
}

func buildSource(cfg *config.Config) (imu.Source, error) {
	switch cfg.Source.Kind {
	case "mpu9250":
		return sensors.NewMPU9250()
	case "serial":
		return sensors.NewSerialSource()
	case "mock":
		log.Printf("streamer: using mock sample source")
		return imu.NewMockSource(time.Duration(cfg.Source.MockIntervalMS) * time.Millisecond), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}

func buildTransport(cfg *config.Config) (link.Transport, error) {
	switch cfg.Link.Kind {
	case "websocket":
		return link.NewWebSocket(cfg.Link.ListenAddr, cfg.Link.StreamPath,
			time.Duration(cfg.Link.WriteTimeoutMS)*time.Millisecond)
	case "mqtt":
		return link.NewMQTT(cfg.Link.Broker, cfg.Link.ClientID, cfg.Link.TopicRoot)
	}
	return nil, fmt.Errorf("unknown link kind %q", cfg.Link.Kind)
}
