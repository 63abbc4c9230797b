// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package sensors

import (
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_streamer/internal/config"
	"github.com/relabs-tech/imu_streamer/internal/imu"
)

// MPU9250 reads the gyroscope and accelerometer of an MPU-9250 over
// SPI. Both sensor banks latch on the same internal sample, so the
// chip's raw-data-ready flag covers gyro and accel availability jointly.
type MPU9250 struct {
	port spi.PortCloser
	conn spi.Conn

	gyroScale  float32 // °/s per LSB
	accelScale float32 // g per LSB
}

// NewMPU9250 opens and configures the sensor from the global config.
// Any failure here is an unrecoverable boot fault for the caller.
func NewMPU9250() (*MPU9250, error) {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: periph host init: %w", err)
	}

	port, err := spireg.Open(cfg.Source.SPIDevice)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: SPI open (%s): %w", cfg.Source.SPIDevice, err)
	}

	conn, err := port.Connect(physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("mpu9250: SPI connect: %w", err)
	}

	m := &MPU9250{port: port, conn: conn}
	if err := m.init(cfg); err != nil {
		port.Close()
		return nil, err
	}
	return m, nil
}

func (m *MPU9250) init(cfg *config.Config) error {
	if err := m.writeReg(regPwrMgmt1, pwrReset); err != nil {
		return fmt.Errorf("mpu9250: reset: %w", err)
	}
	time.Sleep(100 * time.Millisecond)

	id, err := m.readReg(regWhoAmI)
	if err != nil {
		return fmt.Errorf("mpu9250: WHO_AM_I read: %w", err)
	}
	if id != whoAmIMPU9250 && id != whoAmIMPU9255 {
		return fmt.Errorf("mpu9250: unexpected WHO_AM_I 0x%02X", id)
	}
	log.Printf("mpu9250: WHO_AM_I = 0x%02X", id)

	steps := []struct {
		reg, val byte
		what     string
	}{
		{regPwrMgmt1, pwrClkselAuto, "clock select"},
		{regConfig, cfg.Source.DLPFConfig, "DLPF config"},
		{regSmplrtDiv, cfg.Source.SampleRateDiv, "sample rate divider"},
		{regGyroConfig, cfg.Source.GyroRange << 3, "gyro range"},
		{regAccelConfig, cfg.Source.AccelRange << 3, "accel range"},
		{regAccelConfig2, cfg.Source.DLPFConfig, "accel DLPF"},
		{regIntEnable, intEnableRawRdy, "raw data ready flag"},
	}
	for _, s := range steps {
		if err := m.writeReg(s.reg, s.val); err != nil {
			return fmt.Errorf("mpu9250: set %s: %w", s.what, err)
		}
	}

	gyroFS := []float32{250, 500, 1000, 2000}[cfg.Source.GyroRange]
	accelFS := []float32{2, 4, 8, 16}[cfg.Source.AccelRange]
	m.gyroScale = gyroFS / 32768
	m.accelScale = accelFS / 32768

	internalRate := 1000 // 1kHz for DLPF modes 0-6
	if cfg.Source.DLPFConfig == 7 {
		internalRate = 8000 // 8kHz when DLPF disabled
	}
	outputRate := internalRate / (1 + int(cfg.Source.SampleRateDiv))

	log.Printf("mpu9250: gyroscope range ±%.0f°/s, accelerometer range ±%.0fg", gyroFS, accelFS)
	log.Printf("mpu9250: DLPF config %d, sample rate divider %d (output rate: %d Hz)",
		cfg.Source.DLPFConfig, cfg.Source.SampleRateDiv, outputRate)

	return nil
}

// Ready polls the raw-data-ready flag. Reading the status register
// clears it, so a true result means one fresh joint sample to consume.
// Bus errors are logged and reported as not-ready; a persistently
// failing bus therefore stalls the caller, which is the intended
// fail-stop behavior for a dead sensor.
func (m *MPU9250) Ready() bool {
	st, err := m.readReg(regIntStatus)
	if err != nil {
		log.Printf("mpu9250: status read error: %v", err)
		return false
	}
	return st&intRawDataReady != 0
}

// Read bursts the 14 accel/temp/gyro data registers in one transaction
// and scales them to g and °/s.
func (m *MPU9250) Read() (imu.Reading, error) {
	w := make([]byte, 15)
	r := make([]byte, 15)
	w[0] = regAccelXoutH | spiReadFlag

	if err := m.conn.Tx(w, r); err != nil {
		return imu.Reading{}, fmt.Errorf("mpu9250: data burst read: %w", err)
	}

	buf := r[1:]
	ax := int16(binary.BigEndian.Uint16(buf[0:]))
	ay := int16(binary.BigEndian.Uint16(buf[2:]))
	az := int16(binary.BigEndian.Uint16(buf[4:]))
	// buf[6:8] is the die temperature, unused.
	gx := int16(binary.BigEndian.Uint16(buf[8:]))
	gy := int16(binary.BigEndian.Uint16(buf[10:]))
	gz := int16(binary.BigEndian.Uint16(buf[12:]))

	return imu.Reading{
		Gx: float32(gx) * m.gyroScale,
		Gy: float32(gy) * m.gyroScale,
		Gz: float32(gz) * m.gyroScale,
		Ax: float32(ax) * m.accelScale,
		Ay: float32(ay) * m.accelScale,
		Az: float32(az) * m.accelScale,
	}, nil
}

// Close releases the SPI port.
func (m *MPU9250) Close() error {
	return m.port.Close()
}

func (m *MPU9250) readReg(reg byte) (byte, error) {
	w := []byte{reg | spiReadFlag, 0}
	r := make([]byte, 2)
	if err := m.conn.Tx(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (m *MPU9250) writeReg(reg, val byte) error {
	return m.conn.Tx([]byte{reg, val}, nil)
}
