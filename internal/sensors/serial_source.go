package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/imu_streamer/internal/config"
	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// TypePIMU is the sentence type of our proprietary $PIMU sentence
// (go-nmea strips the leading proprietary marker P).
const TypePIMU = "IMU"

// PIMU is one IMU sample as an NMEA-style sentence:
//
//	$PIMU,<gx>,<gy>,<gz>,<ax>,<ay>,<az>*hh
//
// emitted by serial-attached AHRS boxes. Gyro in °/s, accel in g.
type PIMU struct {
	nmea.BaseSentence
	Gx float64
	Gy float64
	Gz float64
	Ax float64
	Ay float64
	Az float64
}

func init() {
	nmea.MustRegisterParser(TypePIMU, func(s nmea.BaseSentence) (nmea.Sentence, error) {
		p := nmea.NewParser(s)
		return PIMU{
			BaseSentence: s,
			Gx:           p.Float64(0, "gx"),
			Gy:           p.Float64(1, "gy"),
			Gz:           p.Float64(2, "gz"),
			Ax:           p.Float64(3, "ax"),
			Ay:           p.Float64(4, "ay"),
			Az:           p.Float64(5, "az"),
		}, p.Err()
	})
}

// serialSource adapts a line-oriented serial IMU to imu.Source. A
// background reader parses sentences into a buffered channel so Ready
// stays a non-blocking poll and the session loop can keep checking peer
// liveness while no sample arrives.
type serialSource struct {
	rc       io.ReadCloser
	readings chan imu.Reading
	pending  *imu.Reading
}

// NewSerialSource opens the configured serial port and starts reading
// sentences from it.
func NewSerialSource() (imu.Source, error) {
	cfg := config.Get()

	opts := serial.OpenOptions{
		PortName:        cfg.Source.SerialPort,
		BaudRate:        cfg.Source.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial source: open %s: %w", opts.PortName, err)
	}
	log.Printf("serial source: port opened on %s at %d baud", opts.PortName, opts.BaudRate)

	return newSerialSource(port), nil
}

func newSerialSource(rc io.ReadCloser) *serialSource {
	s := &serialSource{
		rc:       rc,
		readings: make(chan imu.Reading, 64),
	}
	go s.readLoop()
	return s
}

func (s *serialSource) readLoop() {
	defer close(s.readings)

	scanner := bufio.NewScanner(s.rc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy link or partial sentence
			continue
		}
		p, ok := sentence.(PIMU)
		if !ok {
			continue
		}

		r := imu.Reading{
			Gx: float32(p.Gx),
			Gy: float32(p.Gy),
			Gz: float32(p.Gz),
			Ax: float32(p.Ax),
			Ay: float32(p.Ay),
			Az: float32(p.Az),
		}
		select {
		case s.readings <- r:
		default:
			log.Printf("serial source: reader not keeping up, sample dropped")
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("serial source: read error: %v", err)
	}
}

func (s *serialSource) Ready() bool {
	if s.pending != nil {
		return true
	}
	select {
	case r, ok := <-s.readings:
		if !ok {
			return false
		}
		s.pending = &r
		return true
	default:
		return false
	}
}

func (s *serialSource) Read() (imu.Reading, error) {
	if s.pending == nil {
		return imu.Reading{}, fmt.Errorf("serial source: read with no sample pending")
	}
	r := *s.pending
	s.pending = nil
	return r, nil
}

func (s *serialSource) Close() error {
	return s.rc.Close()
}
