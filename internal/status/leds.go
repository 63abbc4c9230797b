package status

import (
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_streamer/internal/config"
)

// Panel drives the three discrete status outputs: host-link-ready,
// per-batch activity (heartbeat toggle) and streaming-active. The
// outputs are observability only; every method is safe to call with
// unconfigured or missing pins, so the streamer runs unchanged on a
// machine without GPIO.
type Panel struct {
	ready     gpio.PinIO
	activity  gpio.PinIO
	streaming gpio.PinIO

	activityLevel gpio.Level
}

// OpenPanel resolves the configured pins. Lookup failures are logged
// and the affected output disabled; they never fail the boot.
func OpenPanel() *Panel {
	cfg := config.Get()
	p := &Panel{}

	if cfg.Status.ReadyPin == "" && cfg.Status.ActivityPin == "" && cfg.Status.StreamingPin == "" {
		return p
	}

	if _, err := host.Init(); err != nil {
		log.Printf("status: periph host init: %v (status LEDs disabled)", err)
		return p
	}

	p.ready = lookupPin(cfg.Status.ReadyPin)
	p.activity = lookupPin(cfg.Status.ActivityPin)
	p.streaming = lookupPin(cfg.Status.StreamingPin)
	return p
}

func lookupPin(name string) gpio.PinIO {
	if name == "" {
		return nil
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		log.Printf("status: pin %q not found", name)
	}
	return pin
}

// SetReady signals that the host link is up and advertising.
func (p *Panel) SetReady(on bool) { setPin(p.ready, on) }

// SetStreaming signals that a peer is attached and batches flow.
func (p *Panel) SetStreaming(on bool) { setPin(p.streaming, on) }

// ToggleActivity flips the heartbeat output, once per published batch.
func (p *Panel) ToggleActivity() {
	if p.activity == nil {
		return
	}
	p.activityLevel = !p.activityLevel
	if err := p.activity.Out(p.activityLevel); err != nil {
		log.Printf("status: activity pin write: %v", err)
	}
}

func setPin(pin gpio.PinIO, on bool) {
	if pin == nil {
		return
	}
	if err := pin.Out(gpio.Level(on)); err != nil {
		log.Printf("status: pin write: %v", err)
	}
}
