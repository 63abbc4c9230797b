package batch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// ReadingSize is the encoded size of one reading in the binary format.
const ReadingSize = imu.ValuesPerReading * 4

// BinaryCodec packs readings as flat 32-bit floats in field order, batch
// concatenated. No length prefix and no terminator: the receiver knows
// the batch size out of band, as a protocol constant. Floats are
// little-endian on the wire; both ends of the observed deployments are
// little-endian machines, so the receiver can reinterpret the buffer as
// a float array directly.
type BinaryCodec struct{}

func (BinaryCodec) Name() string { return "binary" }
func (BinaryCodec) Text() bool   { return false }

func (BinaryCodec) Encode(dst []byte, readings []imu.Reading) []byte {
	for _, r := range readings {
		for _, v := range r.Values() {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
		}
	}
	return dst
}

func (BinaryCodec) Decode(data []byte) ([]imu.Reading, error) {
	if len(data)%ReadingSize != 0 {
		return nil, fmt.Errorf("binary payload length %d is not a multiple of %d", len(data), ReadingSize)
	}

	readings := make([]imu.Reading, 0, len(data)/ReadingSize)
	for off := 0; off < len(data); off += ReadingSize {
		var vals [imu.ValuesPerReading]float32
		for i := range vals {
			bits := binary.LittleEndian.Uint32(data[off+i*4:])
			vals[i] = math.Float32frombits(bits)
		}
		readings = append(readings, imu.FromValues(vals))
	}
	return readings, nil
}
