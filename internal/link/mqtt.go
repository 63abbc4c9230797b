package link

import (
	"fmt"
	"log"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_streamer/internal/batch"
)

// MQTTTransport publishes batches to <root>/samples on a broker. Peer
// presence is tracked through the retained <root>/receiver/status topic:
// the receiver publishes "online" (retained) when it attaches and leaves
// a will of "offline", so the streamer sees exactly one peer come and go.
type MQTTTransport struct {
	client  mqtt.Client
	samples string
	online  atomic.Bool
}

// PresenceTopic returns the receiver status topic under root.
func PresenceTopic(root string) string { return root + "/receiver/status" }

// SamplesTopic returns the sample stream topic under root.
func SamplesTopic(root string) string { return root + "/samples" }

// NewMQTT connects to the broker and subscribes to receiver presence.
func NewMQTT(broker, clientID, topicRoot string) (*MQTTTransport, error) {
	t := &MQTTTransport{samples: SamplesTopic(topicRoot)}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	t.client = mqtt.NewClient(opts)
	if token := t.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect: %w", token.Error())
	}
	log.Printf("link: connected to MQTT broker at %s", broker)

	presence := PresenceTopic(topicRoot)
	token := t.client.Subscribe(presence, 1, func(_ mqtt.Client, msg mqtt.Message) {
		online := string(msg.Payload()) == "online"
		if online != t.online.Swap(online) {
			if online {
				log.Printf("link: receiver online")
			} else {
				log.Printf("link: receiver offline")
			}
		}
	})
	token.Wait()
	if token.Error() != nil {
		t.client.Disconnect(250)
		return nil, fmt.Errorf("MQTT subscribe %s: %w", presence, token.Error())
	}
	log.Printf("link: watching receiver presence on %s", presence)

	return t, nil
}

func (t *MQTTTransport) Poll() (Peer, bool) {
	if !t.online.Load() || !t.client.IsConnected() {
		return nil, false
	}
	return &mqttPeer{t: t}, true
}

func (t *MQTTTransport) Close() error {
	t.client.Disconnect(250)
	return nil
}

type mqttPeer struct {
	t *MQTTTransport
}

func (p *mqttPeer) Connected() bool {
	return p.t.online.Load() && p.t.client.IsConnected()
}

// Publish hands the payload to the broker without waiting for the token:
// the stream is best-effort and the fill loop must never block on the
// link.
func (p *mqttPeer) Publish(payload batch.Payload) error {
	// paho sends asynchronously while the batcher reuses its buffer, so
	// the payload must be copied before handoff.
	p.t.client.Publish(p.t.samples, 0, false, append([]byte(nil), payload.Data...))
	return nil
}
