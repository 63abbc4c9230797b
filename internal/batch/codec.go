package batch

import (
	"fmt"

	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// Payload is one encoded batch ready for the wire.
type Payload struct {
	Data []byte
	Text bool // true for the delimited-text wire format
}

// Codec serializes a completed batch into its wire representation and
// decodes it back on the receiving side. The two implementations are
// incompatible protocol versions of the same stream; a deployment picks
// exactly one.
type Codec interface {
	Name() string
	Text() bool

	// Encode appends the serialized batch to dst and returns the
	// resulting slice. Passing dst[:0] reuses the buffer in place.
	Encode(dst []byte, readings []imu.Reading) []byte

	// Decode parses one payload back into readings.
	Decode(data []byte) ([]imu.Reading, error)
}

// NewCodec returns the codec for a config format name.
func NewCodec(format string) (Codec, error) {
	switch format {
	case "binary":
		return BinaryCodec{}, nil
	case "text":
		return TextCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown payload format %q (want \"binary\" or \"text\")", format)
	}
}
