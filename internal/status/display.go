package status

import (
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_streamer/internal/config"
)

// Stats is the streamer state shown on the diagnostics panel.
type Stats struct {
	LinkKind      string
	Format        string
	PeerConnected bool
	Batches       uint64
	BatchRate     float64 // batches per second over the last window
}

// Display is an optional SSD1306 panel showing link state and stream
// throughput. Purely diagnostic: losing it never affects the stream.
type Display struct {
	dev      *ssd1306.Dev
	interval time.Duration
	last     time.Time
}

// OpenDisplay initializes the panel from the global config.
func OpenDisplay() (*Display, error) {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: periph host init: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("display: I2C open: %w", err)
	}

	// Upstream periph.io/x/devices ssd1306.NewI2C takes no address and
	// fixes 0x3C (the config default); the configured address argument
	// only exists in the relabs-tech devices fork, which requires a
	// newer Go toolchain than this build has.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("display: init at 0x%02X: %w", cfg.Display.I2CAddr, err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.Display.I2CAddr)

	return &Display{
		dev:      dev,
		interval: time.Duration(cfg.Display.UpdateIntervalMS) * time.Millisecond,
	}, nil
}

// Update redraws the panel, rate-limited to the configured interval.
// Safe to call on a nil Display.
func (d *Display) Update(s Stats) {
	if d == nil {
		return
	}
	if time.Since(d.last) < d.interval {
		return
	}
	d.last = time.Now()

	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	peer := "waiting"
	if s.PeerConnected {
		peer = "attached"
	}

	lines := []string{
		"IMU streamer",
		fmt.Sprintf("%s / %s", s.LinkKind, s.Format),
		"peer: " + peer,
		fmt.Sprintf("batch %d %.1f/s", s.Batches, s.BatchRate),
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}

	if err := d.dev.Draw(d.dev.Bounds(), img, image.Point{}); err != nil {
		log.Printf("display: draw error: %v", err)
	}
}
