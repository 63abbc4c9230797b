package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// scriptedSource yields sequential readings, gated by a scripted Ready
// pattern. Once the pattern is exhausted Ready always reports true.
type scriptedSource struct {
	t         *testing.T
	ready     []bool
	readyIdx  int
	next      int
	lastReady bool
}

func (s *scriptedSource) Ready() bool {
	r := true
	if s.readyIdx < len(s.ready) {
		r = s.ready[s.readyIdx]
		s.readyIdx++
	}
	s.lastReady = r
	return r
}

func (s *scriptedSource) Read() (imu.Reading, error) {
	if !s.lastReady {
		s.t.Fatal("Read called without a preceding successful Ready poll")
	}
	s.lastReady = false
	s.next++
	n := float32(s.next)
	return imu.Reading{Gx: n, Gy: n + 0.1, Gz: n + 0.2, Ax: n + 0.3, Ay: n + 0.4, Az: n + 0.5}, nil
}

func alwaysConnected() bool { return true }

func TestFillCollectsExactBatch(t *testing.T) {
	b := NewBatcher(BinaryCodec{}, 10, 0)
	src := &scriptedSource{t: t}

	payload, err := b.Fill(src, alwaysConnected)
	require.NoError(t, err)
	assert.False(t, payload.Text)
	assert.Len(t, payload.Data, 10*ReadingSize)
	assert.Equal(t, StateReady, b.State())
	assert.Equal(t, 10, src.next, "exactly one reading consumed per slot")

	b.Reset()
	assert.Equal(t, StateEmpty, b.State())
	assert.Equal(t, 0, b.Len())
}

func TestFillPreservesAcquisitionOrder(t *testing.T) {
	b := NewBatcher(BinaryCodec{}, 4, 0)
	src := &scriptedSource{t: t}

	payload, err := b.Fill(src, alwaysConnected)
	require.NoError(t, err)

	decoded, err := BinaryCodec{}.Decode(payload.Data)
	require.NoError(t, err)
	require.Len(t, decoded, 4)
	for i, r := range decoded {
		assert.Equal(t, float32(i+1), r.Gx, "reading %d out of order", i)
	}

	// Batches across a session stay ordered too.
	b.Reset()
	payload, err = b.Fill(src, alwaysConnected)
	require.NoError(t, err)
	decoded, err = BinaryCodec{}.Decode(payload.Data)
	require.NoError(t, err)
	assert.Equal(t, float32(5), decoded[0].Gx)
}

func TestNotReadyRetriesSameSlot(t *testing.T) {
	// Every reading needs two failed polls before it becomes available.
	var pattern []bool
	for i := 0; i < 3; i++ {
		pattern = append(pattern, false, false, true)
	}

	b := NewBatcher(TextCodec{}, 3, 0)
	src := &scriptedSource{t: t, ready: pattern}

	fills := 0
	connected := func() bool {
		fills++
		return true
	}

	payload, err := b.Fill(src, connected)
	require.NoError(t, err)
	assert.Equal(t, 3, src.next, "fill position must not advance on a not-ready poll")
	assert.Equal(t, 9, src.readyIdx, "every slot polled until ready")

	decoded, err := TextCodec{}.Decode(payload.Data)
	require.NoError(t, err)
	assert.Equal(t, float32(1), decoded[0].Gx, "eventually-read value occupies the slot unmodified")
}

func TestDisconnectDiscardsPartialBatch(t *testing.T) {
	b := NewBatcher(BinaryCodec{}, 10, 0)
	src := &scriptedSource{t: t}

	polls := 0
	flaky := func() bool {
		polls++
		return polls <= 4 // peer drops after four readings are in
	}

	_, err := b.Fill(src, flaky)
	require.ErrorIs(t, err, ErrDisconnected)
	assert.Equal(t, StateEmpty, b.State(), "partial batch must be discarded on disconnect")

	// Reconnection: the next batch starts from a fresh fill state and
	// carries no readings from the prior session.
	payload, err := b.Fill(src, alwaysConnected)
	require.NoError(t, err)
	decoded, err := BinaryCodec{}.Decode(payload.Data)
	require.NoError(t, err)
	require.Len(t, decoded, 10)
	assert.Equal(t, float32(5), decoded[0].Gx, "first reading of the new session, not a leftover")
}

func TestFillStatesAreMonotonic(t *testing.T) {
	b := NewBatcher(BinaryCodec{}, 5, 0)
	src := &scriptedSource{t: t}

	var counts []int
	connected := func() bool {
		counts = append(counts, b.Len())
		return true
	}

	_, err := b.Fill(src, connected)
	require.NoError(t, err)

	require.Len(t, counts, 5)
	for i, c := range counts {
		assert.Equal(t, i, c)
	}
}

func TestPayloadBufferReusedAcrossBatches(t *testing.T) {
	b := NewBatcher(BinaryCodec{}, 2, 0)
	src := &scriptedSource{t: t}

	p1, err := b.Fill(src, alwaysConnected)
	require.NoError(t, err)
	first := &p1.Data[0]

	b.Reset()
	p2, err := b.Fill(src, alwaysConnected)
	require.NoError(t, err)

	assert.Equal(t, first, &p2.Data[0], "encode buffer must be reused, not reallocated")
}
