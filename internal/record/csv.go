package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// csvHeader matches the column layout of the desktop capture files.
var csvHeader = []string{"gyro_x", "gyro_y", "gyro_z", "accel_x", "accel_y", "accel_z"}

// CSVWriter appends decoded readings to a capture file, one row per
// reading. An existing file at the path is replaced.
type CSVWriter struct {
	f    *os.File
	w    *csv.Writer
	rows uint64
}

// NewCSVWriter creates the capture file and writes the header row.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}

	return &CSVWriter{f: f, w: w}, nil
}

// Append writes one row per reading, in order.
func (c *CSVWriter) Append(readings []imu.Reading) error {
	row := make([]string, imu.ValuesPerReading)
	for _, r := range readings {
		for i, v := range r.Values() {
			row[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		if err := c.w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
		c.rows++
	}
	c.w.Flush()
	return c.w.Error()
}

// Rows returns the number of data rows written so far.
func (c *CSVWriter) Rows() uint64 { return c.rows }

// Close flushes and closes the capture file.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
