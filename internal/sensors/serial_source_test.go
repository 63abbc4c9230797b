package sensors

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sentence wraps an NMEA body (without "$") with its checksum and CRLF.
func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, cs)
}

func pimu(gx, gy, gz, ax, ay, az float64) string {
	return sentence(fmt.Sprintf("PIMU,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f", gx, gy, gz, ax, ay, az))
}

func sourceFrom(t *testing.T, data string) *serialSource {
	t.Helper()
	s := newSerialSource(io.NopCloser(strings.NewReader(data)))
	t.Cleanup(func() { s.Close() })
	return s
}

func waitReady(t *testing.T, s *serialSource) {
	t.Helper()
	require.Eventually(t, s.Ready, time.Second, time.Millisecond, "no sample became ready")
}

func TestSerialSourceParsesSentences(t *testing.T) {
	s := sourceFrom(t, pimu(1, 2, 3, 4, 5, 6)+pimu(7, 8, 9, 10, 11, 12))

	waitReady(t, s)
	r, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, float32(1), r.Gx)
	assert.Equal(t, float32(4), r.Ax)
	assert.Equal(t, float32(6), r.Az)

	waitReady(t, s)
	r, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, float32(7), r.Gx, "samples must arrive in acquisition order")
}

func TestSerialSourceSkipsForeignAndBrokenLines(t *testing.T) {
	data := "garbage\r\n" +
		sentence("GPGLL,3953.88008971,N,10506.75318910,W,034138.000,A,D") +
		"$PIMU,1.0,2.0,3.0,4.0,5.0,6.0*00\r\n" + // bad checksum
		pimu(42, 0, 0, 1, 0, 0)

	s := sourceFrom(t, data)
	waitReady(t, s)

	r, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, float32(42), r.Gx, "only the valid $PIMU sentence must survive")

	assert.False(t, s.Ready(), "stream exhausted")
}

func TestSerialSourceReadWithoutReady(t *testing.T) {
	s := sourceFrom(t, "")
	_, err := s.Read()
	assert.Error(t, err)
}

func TestSerialSourceNotReadyDoesNotConsume(t *testing.T) {
	s := sourceFrom(t, pimu(1, 2, 3, 4, 5, 6))
	waitReady(t, s)

	// Repeated polls keep reporting the same pending sample.
	assert.True(t, s.Ready())
	assert.True(t, s.Ready())

	r, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, float32(1), r.Gx)
}
