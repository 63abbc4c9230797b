package imu

// Reading is one synchronized gyroscope+accelerometer sample. Values are
// passed through from the sensor verbatim, gyro in °/s and accel in g.
// Field order matches the wire order: gx, gy, gz, ax, ay, az.
type Reading struct {
	Gx float32 `json:"gx"`
	Gy float32 `json:"gy"`
	Gz float32 `json:"gz"`

	Ax float32 `json:"ax"`
	Ay float32 `json:"ay"`
	Az float32 `json:"az"`
}

// ValuesPerReading is the number of scalar values in one Reading.
const ValuesPerReading = 6

// Values returns the reading's six values in wire order.
func (r Reading) Values() [ValuesPerReading]float32 {
	return [ValuesPerReading]float32{r.Gx, r.Gy, r.Gz, r.Ax, r.Ay, r.Az}
}

// FromValues builds a Reading from six values in wire order.
func FromValues(v [ValuesPerReading]float32) Reading {
	return Reading{Gx: v[0], Gy: v[1], Gz: v[2], Ax: v[3], Ay: v[4], Az: v[5]}
}

// Source supplies synchronized readings. Ready reports whether a fresh
// gyroscope AND accelerometer sample are both available since the last
// Read; a source that is ready for only one of the two must report false.
// Read is only valid after Ready returned true.
type Source interface {
	Ready() bool
	Read() (Reading, error)
}
