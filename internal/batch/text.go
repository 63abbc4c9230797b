package batch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// TextCodec formats every value with 4 fractional digits followed by a
// semicolon, including the last value of the batch. There is no batch
// terminator beyond the final per-value semicolon, so a split on ";"
// yields a trailing empty token the receiver must discard.
type TextCodec struct{}

func (TextCodec) Name() string { return "text" }
func (TextCodec) Text() bool   { return true }

func (TextCodec) Encode(dst []byte, readings []imu.Reading) []byte {
	for _, r := range readings {
		for _, v := range r.Values() {
			dst = strconv.AppendFloat(dst, float64(v), 'f', 4, 32)
			dst = append(dst, ';')
		}
	}
	return dst
}

func (TextCodec) Decode(data []byte) ([]imu.Reading, error) {
	tokens := strings.Split(string(data), ";")
	if n := len(tokens); n == 0 || tokens[n-1] != "" {
		return nil, fmt.Errorf("text payload is not terminated by %q", ";")
	}
	tokens = tokens[:len(tokens)-1]

	if len(tokens)%imu.ValuesPerReading != 0 {
		return nil, fmt.Errorf("text payload has %d values, not a multiple of %d", len(tokens), imu.ValuesPerReading)
	}

	readings := make([]imu.Reading, 0, len(tokens)/imu.ValuesPerReading)
	for i := 0; i < len(tokens); i += imu.ValuesPerReading {
		var vals [imu.ValuesPerReading]float32
		for j := range vals {
			f, err := strconv.ParseFloat(tokens[i+j], 32)
			if err != nil {
				return nil, fmt.Errorf("text payload value %d: %w", i+j, err)
			}
			vals[j] = float32(f)
		}
		readings = append(readings, imu.FromValues(vals))
	}
	return readings, nil
}
