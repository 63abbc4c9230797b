// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/imu_streamer/internal/app"
	"github.com/relabs-tech/imu_streamer/internal/config"
)

func main() {
	configPath := flag.String("config", "./streamer.yaml", "path to configuration file")
	flag.Parse()

	log.Println("starting imu-streamer (IMU → peer)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunStreamer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
