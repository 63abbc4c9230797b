package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_streamer/internal/batch"
	"github.com/relabs-tech/imu_streamer/internal/imu"
	"github.com/relabs-tech/imu_streamer/internal/status"
)

// countingSource is always ready and produces sequential readings.
type countingSource struct {
	n float32
}

func (s *countingSource) Ready() bool { return true }

func (s *countingSource) Read() (imu.Reading, error) {
	s.n++
	return imu.Reading{Gx: s.n, Gy: s.n, Gz: s.n, Ax: -s.n, Ay: -s.n, Az: -s.n}, nil
}

// sessionPeer records published payloads and detaches itself after a
// fixed number of batches. maxPolls additionally bounds how many
// Connected checks it survives, to force a mid-fill drop.
type sessionPeer struct {
	payloads     [][]byte
	publishErrs  []error
	maxBatches   int
	maxPolls     int
	polls        int
	publishCalls int
}

func (p *sessionPeer) Connected() bool {
	p.polls++
	if p.maxPolls > 0 && p.polls > p.maxPolls {
		return false
	}
	return len(p.payloads) < p.maxBatches
}

func (p *sessionPeer) Publish(payload batch.Payload) error {
	p.publishCalls++
	if len(p.publishErrs) > 0 {
		err := p.publishErrs[0]
		p.publishErrs = p.publishErrs[1:]
		if err != nil {
			return err
		}
	}
	p.payloads = append(p.payloads, append([]byte(nil), payload.Data...))
	return nil
}

func newSessionBatcher(t *testing.T, format string) *batch.Batcher {
	t.Helper()
	codec, err := batch.NewCodec(format)
	require.NoError(t, err)
	return batch.NewBatcher(codec, 10, 0)
}

func TestRunSessionPublishesUntilDetach(t *testing.T) {
	batcher := newSessionBatcher(t, "binary")
	peer := &sessionPeer{maxBatches: 3}
	stats := status.Stats{}

	runSession(peer, &countingSource{}, batcher, &status.Panel{}, nil, &stats)

	require.Len(t, peer.payloads, 3)
	for _, payload := range peer.payloads {
		assert.Len(t, payload, 10*batch.ReadingSize)
	}
	assert.Equal(t, uint64(3), stats.Batches)
	assert.Equal(t, batch.StateEmpty, batcher.State())

	// Readings keep their acquisition order across batch boundaries.
	codec, err := batch.NewCodec("binary")
	require.NoError(t, err)
	second, err := codec.Decode(peer.payloads[1])
	require.NoError(t, err)
	assert.Equal(t, float32(11), second[0].Gx)
	assert.Equal(t, float32(20), second[9].Gx)
}

func TestRunSessionDiscardsPartialOnDisconnect(t *testing.T) {
	batcher := newSessionBatcher(t, "binary")
	// The peer drops after 4 connectivity checks, mid-fill of the
	// first batch. Nothing may be published.
	peer := &sessionPeer{maxBatches: 100, maxPolls: 4}

	runSession(peer, &countingSource{}, batcher, &status.Panel{}, nil, &status.Stats{})

	assert.Empty(t, peer.payloads)
	assert.Equal(t, batch.StateEmpty, batcher.State())
}

func TestRunSessionPublishFailureIsNotRetried(t *testing.T) {
	batcher := newSessionBatcher(t, "text")
	peer := &sessionPeer{
		maxBatches:  2,
		publishErrs: []error{errors.New("notify failed")},
	}
	stats := status.Stats{}

	runSession(peer, &countingSource{}, batcher, &status.Panel{}, nil, &stats)

	// Three publish attempts: the failed one is counted but its batch
	// is lost, not resent.
	assert.Equal(t, 3, peer.publishCalls)
	require.Len(t, peer.payloads, 2)
	assert.Equal(t, uint64(3), stats.Batches)

	codec, err := batch.NewCodec("text")
	require.NoError(t, err)
	first, err := codec.Decode(peer.payloads[0])
	require.NoError(t, err)
	// The lost batch carried readings 1..10, so the first delivered
	// one starts at 11.
	assert.Equal(t, float32(11), first[0].Gx)
}
