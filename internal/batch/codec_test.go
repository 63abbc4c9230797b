package batch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_streamer/internal/imu"
)

var twoReadings = []imu.Reading{
	{Gx: 1, Gy: 2, Gz: 3, Ax: 4, Ay: 5, Az: 6},
	{Gx: 7, Gy: 8, Gz: 9, Ax: 10, Ay: 11, Az: 12},
}

func TestNewCodec(t *testing.T) {
	c, err := NewCodec("binary")
	require.NoError(t, err)
	assert.Equal(t, "binary", c.Name())
	assert.False(t, c.Text())

	c, err = NewCodec("text")
	require.NoError(t, err)
	assert.Equal(t, "text", c.Name())
	assert.True(t, c.Text())

	_, err = NewCodec("json")
	assert.Error(t, err)
}

func TestBinaryEncodeLength(t *testing.T) {
	readings := make([]imu.Reading, 10)
	data := BinaryCodec{}.Encode(nil, readings)
	assert.Len(t, data, 10*ReadingSize)
	assert.Len(t, data, 240)
}

func TestBinaryRoundTrip(t *testing.T) {
	data := BinaryCodec{}.Encode(nil, twoReadings)
	require.Len(t, data, 2*ReadingSize)

	decoded, err := BinaryCodec{}.Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	// Bit-for-bit, not approximately.
	for i, want := range twoReadings {
		gotVals := decoded[i].Values()
		for j, w := range want.Values() {
			assert.Equal(t, math.Float32bits(w), math.Float32bits(gotVals[j]),
				"reading %d value %d", i, j)
		}
	}
}

func TestBinaryRoundTripAwkwardValues(t *testing.T) {
	readings := []imu.Reading{
		{Gx: -0.0001, Gy: 1e-9, Gz: -1234.5678, Ax: float32(math.Pi), Ay: -0, Az: 9.80665},
	}
	data := BinaryCodec{}.Encode(nil, readings)
	decoded, err := BinaryCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, readings, decoded)
}

func TestBinaryDecodeBadLength(t *testing.T) {
	_, err := BinaryCodec{}.Decode(make([]byte, 23))
	assert.Error(t, err)
}

func TestTextEncodeExact(t *testing.T) {
	data := TextCodec{}.Encode(nil, twoReadings)
	assert.Equal(t,
		"1.0000;2.0000;3.0000;4.0000;5.0000;6.0000;7.0000;8.0000;9.0000;10.0000;11.0000;12.0000;",
		string(data))
}

func TestTextRoundTripPrecision(t *testing.T) {
	readings := []imu.Reading{
		{Gx: 1.23456, Gy: -0.00004, Gz: 250.5, Ax: -3.99999, Ay: 0.12345, Az: 1.00001},
	}
	data := TextCodec{}.Encode(nil, readings)

	decoded, err := TextCodec{}.Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	want := readings[0].Values()
	got := decoded[0].Values()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 0.5e-4, "value %d", i)
	}
}

func TestTextDecodeTokenCount(t *testing.T) {
	data := TextCodec{}.Encode(nil, twoReadings)

	decoded, err := TextCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Len(t, decoded, 2)
}

func TestTextDecodeErrors(t *testing.T) {
	for name, payload := range map[string]string{
		"no trailing separator": "1.0000;2.0000;3.0000;4.0000;5.0000;6.0000",
		"short reading":         "1.0000;2.0000;3.0000;",
		"not a number":          "1.0000;2.0000;x;4.0000;5.0000;6.0000;",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := TextCodec{}.Decode([]byte(payload))
			assert.Error(t, err)
		})
	}
}

func TestEncodeReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 2*ReadingSize)
	data := BinaryCodec{}.Encode(buf, twoReadings)
	assert.Equal(t, &buf[:1][0], &data[0], "encode into a large enough buffer must not reallocate")
}
