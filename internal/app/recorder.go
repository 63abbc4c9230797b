package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/imu_streamer/internal/batch"
	"github.com/relabs-tech/imu_streamer/internal/config"
	"github.com/relabs-tech/imu_streamer/internal/link"
	"github.com/relabs-tech/imu_streamer/internal/record"
)

// attachStream connects to the streamer as its single peer and returns
// a channel of raw payloads. The channel closes when the stream ends.
// The returned func detaches cleanly.
func attachStream(cfg *config.Config, clientID string) (<-chan []byte, func(), error) {
	payloads := make(chan []byte, 64)

	switch cfg.Link.Kind {
	case "websocket":
		url := cfg.Recorder.ServerURL
		if url == "" {
			url = "ws://localhost:8080" + cfg.Link.StreamPath
		}
		conn, _, err := websocket.DefaultDialer.Dial(url+"?service="+link.ServiceUUID, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("attach to %s: %w", url, err)
		}
		log.Printf("attached to stream at %s", url)

		go func() {
			defer close(payloads)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					log.Printf("stream closed: %v", err)
					return
				}
				payloads <- data
			}
		}()
		return payloads, func() { conn.Close() }, nil

	case "mqtt":
		presence := link.PresenceTopic(cfg.Link.TopicRoot)
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.Link.Broker).
			SetClientID(clientID).
			SetWill(presence, "offline", 1, true)

		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, nil, fmt.Errorf("MQTT connect: %w", token.Error())
		}
		log.Printf("connected to MQTT broker at %s", cfg.Link.Broker)

		samples := link.SamplesTopic(cfg.Link.TopicRoot)
		token := client.Subscribe(samples, 0, func(_ mqtt.Client, msg mqtt.Message) {
			payloads <- append([]byte(nil), msg.Payload()...)
		})
		token.Wait()
		if token.Error() != nil {
			client.Disconnect(250)
			return nil, nil, fmt.Errorf("MQTT subscribe %s: %w", samples, token.Error())
		}

		// Announce presence last, so samples only start flowing once the
		// subscription is in place.
		if token := client.Publish(presence, 1, true, "online"); token.Wait() && token.Error() != nil {
			client.Disconnect(250)
			return nil, nil, fmt.Errorf("MQTT presence publish: %w", token.Error())
		}
		log.Printf("subscribed to %s, presence announced", samples)

		detach := func() {
			if token := client.Publish(presence, 1, true, "offline"); token.Wait() && token.Error() != nil {
				log.Printf("MQTT presence retract: %v", token.Error())
			}
			client.Disconnect(250)
		}
		return payloads, detach, nil
	}

	return nil, nil, fmt.Errorf("unknown link kind %q", cfg.Link.Kind)
}

// RunRecorder attaches as the stream's peer, decodes every batch and
// appends the readings to the capture CSV, optionally forwarding them
// to InfluxDB.
func RunRecorder() error {
	cfg := config.Get()

	codec, err := batch.NewCodec(cfg.Batch.Format)
	if err != nil {
		return err
	}

	csvw, err := record.NewCSVWriter(cfg.Recorder.CSVPath)
	if err != nil {
		return err
	}
	defer csvw.Close()
	log.Printf("recorder: writing readings to %s", cfg.Recorder.CSVPath)

	var influx *record.InfluxWriter
	if cfg.Recorder.Influx.Enabled {
		influx = record.NewInfluxWriter(cfg.Recorder.Influx)
		defer influx.Close()
		log.Printf("recorder: forwarding readings to InfluxDB at %s", cfg.Recorder.Influx.URL)
	}

	payloads, detach, err := attachStream(cfg, cfg.Recorder.ClientID)
	if err != nil {
		return err
	}
	defer detach()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	batches := uint64(0)
	for {
		select {
		case data, ok := <-payloads:
			if !ok {
				log.Printf("recorder: stream ended, %d batches / %d readings captured", batches, csvw.Rows())
				return nil
			}
			readings, err := codec.Decode(data)
			if err != nil {
				log.Printf("recorder: undecodable payload (%d bytes): %v", len(data), err)
				continue
			}
			if err := csvw.Append(readings); err != nil {
				return err
			}
			if influx != nil {
				if err := influx.Append(context.Background(), readings); err != nil {
					log.Printf("recorder: influx write: %v", err)
				}
			}
			batches++
			if batches%100 == 0 {
				log.Printf("recorder: %d batches / %d readings captured", batches, csvw.Rows())
			}

		case <-sigCh:
			log.Printf("recorder: shutting down, %d batches / %d readings captured", batches, csvw.Rows())
			return nil
		}
	}
}
