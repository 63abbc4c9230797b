package record

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/relabs-tech/imu_streamer/internal/config"
	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// InfluxWriter forwards decoded readings to InfluxDB, one point per
// reading under the "imu" measurement.
type InfluxWriter struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

// NewInfluxWriter connects the blocking write API for the configured
// org and bucket.
func NewInfluxWriter(cfg config.InfluxConfig) *InfluxWriter {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxWriter{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// Append writes one point per reading. The batch carries no timestamps
// of its own, so points share the arrival time.
func (w *InfluxWriter) Append(ctx context.Context, readings []imu.Reading) error {
	now := time.Now()
	for _, r := range readings {
		p := influxdb2.NewPoint("imu",
			nil,
			map[string]interface{}{
				"gx": float64(r.Gx),
				"gy": float64(r.Gy),
				"gz": float64(r.Gz),
				"ax": float64(r.Ax),
				"ay": float64(r.Ay),
				"az": float64(r.Az),
			},
			now)
		if err := w.write.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the client.
func (w *InfluxWriter) Close() {
	w.client.Close()
}
