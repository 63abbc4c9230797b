package link

import "github.com/relabs-tech/imu_streamer/internal/batch"

// ServiceUUID identifies the sample stream service. It is a versioned
// contract shared with the companion receiver, not negotiated at
// runtime; firmware and receiver must carry the same value.
const ServiceUUID = "fc0a2501-af4b-4c14-b795-a49e9f7e6b84"

// Peer is one attached receiver. Connected is a cheap poll the session
// loop re-checks every iteration. Publish is best-effort: no
// acknowledgment, no backpressure, and the transport may silently drop
// a notification when the receiver's buffer is full.
type Peer interface {
	Connected() bool
	Publish(p batch.Payload) error
}

// Transport is the single-peer notification channel the streamer
// publishes to. Poll is non-blocking and reports the currently attached
// peer, if any.
type Transport interface {
	Poll() (Peer, bool)
	Close() error
}
