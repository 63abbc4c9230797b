// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/imu_streamer/internal/batch"
	"github.com/relabs-tech/imu_streamer/internal/config"
)

// RunConsole attaches as the stream's peer and prints every reading
// to stdout.
func RunConsole() error {
	cfg := config.Get()

	codec, err := batch.NewCodec(cfg.Batch.Format)
	if err != nil {
		return err
	}

	payloads, detach, err := attachStream(cfg, cfg.Recorder.ClientID+"-console")
	if err != nil {
		return err
	}
	defer detach()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case data, ok := <-payloads:
			if !ok {
				return nil
			}
			readings, err := codec.Decode(data)
			if err != nil {
				log.Printf("console: undecodable payload (%d bytes): %v", len(data), err)
				continue
			}
			for _, r := range readings {
				fmt.Printf("[IMU] gx=%8.4f gy=%8.4f gz=%8.4f ax=%8.4f ay=%8.4f az=%8.4f\n",
					r.Gx, r.Gy, r.Gz, r.Ax, r.Ay, r.Az)
			}

		case <-sigCh:
			return nil
		}
	}
}
