package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Batch    BatchConfig    `yaml:"batch"`
	Link     LinkConfig     `yaml:"link"`
	Status   StatusConfig   `yaml:"status"`
	Display  DisplayConfig  `yaml:"display"`
	Recorder RecorderConfig `yaml:"recorder"`
}

// SourceConfig selects and configures the sample source.
type SourceConfig struct {
	Kind string `yaml:"kind"` // "mpu9250", "serial" or "mock"

	// mpu9250
	SPIDevice string `yaml:"spi_device"`
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	GyroRange byte `yaml:"gyro_range"`
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange byte `yaml:"accel_range"`
	// Sample rate divider (output rate = internal rate / (1 + div))
	SampleRateDiv byte `yaml:"sample_rate_div"`
	// Digital Low Pass Filter configuration (0-7)
	DLPFConfig byte `yaml:"dlpf_config"`

	// serial
	SerialPort string `yaml:"serial_port"`
	BaudRate   uint   `yaml:"baud_rate"`

	// mock
	MockIntervalMS int `yaml:"mock_interval_ms"`
}

// BatchConfig owns the batch-size and wire-format contract.
type BatchConfig struct {
	Size           int    `yaml:"size"`             // readings per batch
	Format         string `yaml:"format"`           // "binary" or "text"
	PollIntervalMS int    `yaml:"poll_interval_ms"` // yield between not-ready polls
}

// LinkConfig configures the notification channel.
type LinkConfig struct {
	Kind string `yaml:"kind"` // "websocket" or "mqtt"

	// websocket
	ListenAddr     string `yaml:"listen_addr"`
	StreamPath     string `yaml:"stream_path"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`

	// mqtt
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	TopicRoot string `yaml:"topic_root"`

	IdlePollMS int `yaml:"idle_poll_ms"` // wait between peer polls while advertising
}

// StatusConfig names the status output GPIO pins. Empty pins are
// disabled; the streamer runs fine with no LEDs at all.
type StatusConfig struct {
	ReadyPin     string `yaml:"ready_pin"`     // host link up, advertising
	ActivityPin  string `yaml:"activity_pin"`  // toggled once per published batch
	StreamingPin string `yaml:"streaming_pin"` // lit while a peer is attached
}

// DisplayConfig configures the optional SSD1306 diagnostics panel.
type DisplayConfig struct {
	Enabled          bool   `yaml:"enabled"`
	I2CAddr          uint16 `yaml:"i2c_addr"`
	UpdateIntervalMS int    `yaml:"update_interval_ms"`
}

// RecorderConfig configures the companion receiver.
type RecorderConfig struct {
	ServerURL string `yaml:"server_url"` // ws://host:port/<stream_path> for websocket deployments
	ClientID  string `yaml:"client_id"`  // mqtt deployments
	CSVPath   string `yaml:"csv_path"`

	Influx InfluxConfig `yaml:"influx"`
}

// InfluxConfig is the optional InfluxDB sink of the recorder.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// Package-level unexported variables for the singleton pattern, as in
// the rest of our services: InitGlobal sets, Get reads, and the RWMutex
// keeps concurrent readers safe.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct with
// defaults applied.
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source.Kind == "" {
		c.Source.Kind = "mock"
	}
	if c.Source.MockIntervalMS == 0 {
		c.Source.MockIntervalMS = 10
	}
	if c.Source.BaudRate == 0 {
		c.Source.BaudRate = 115200
	}

	if c.Batch.Size == 0 {
		c.Batch.Size = 10
	}
	if c.Batch.Format == "" {
		c.Batch.Format = "binary"
	}
	if c.Batch.PollIntervalMS == 0 {
		c.Batch.PollIntervalMS = 1
	}

	if c.Link.Kind == "" {
		c.Link.Kind = "websocket"
	}
	if c.Link.ListenAddr == "" {
		c.Link.ListenAddr = ":8080"
	}
	if c.Link.StreamPath == "" {
		c.Link.StreamPath = "/stream"
	}
	if c.Link.WriteTimeoutMS == 0 {
		c.Link.WriteTimeoutMS = 1000
	}
	if c.Link.TopicRoot == "" {
		c.Link.TopicRoot = "imu"
	}
	if c.Link.ClientID == "" {
		c.Link.ClientID = "imu-streamer"
	}
	if c.Link.IdlePollMS == 0 {
		c.Link.IdlePollMS = 200
	}

	if c.Display.UpdateIntervalMS == 0 {
		c.Display.UpdateIntervalMS = 500
	}
	if c.Display.I2CAddr == 0 {
		c.Display.I2CAddr = 0x3C
	}

	if c.Recorder.CSVPath == "" {
		c.Recorder.CSVPath = "out.csv"
	}
	if c.Recorder.ClientID == "" {
		c.Recorder.ClientID = "imu-recorder"
	}
}

// validate checks fields that have no usable zero value.
func (c *Config) validate() error {
	switch c.Source.Kind {
	case "mock":
	case "mpu9250":
		if c.Source.SPIDevice == "" {
			return fmt.Errorf("source.spi_device is required for the mpu9250 source")
		}
		if c.Source.GyroRange > 3 {
			return fmt.Errorf("source.gyro_range must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", c.Source.GyroRange)
		}
		if c.Source.AccelRange > 3 {
			return fmt.Errorf("source.accel_range must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", c.Source.AccelRange)
		}
		if c.Source.DLPFConfig > 7 {
			return fmt.Errorf("source.dlpf_config must be 0-7, got %d", c.Source.DLPFConfig)
		}
	case "serial":
		if c.Source.SerialPort == "" {
			return fmt.Errorf("source.serial_port is required for the serial source")
		}
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}

	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch.size must be positive, got %d", c.Batch.Size)
	}
	if c.Batch.Format != "binary" && c.Batch.Format != "text" {
		return fmt.Errorf("batch.format must be \"binary\" or \"text\", got %q", c.Batch.Format)
	}

	switch c.Link.Kind {
	case "websocket":
	case "mqtt":
		if c.Link.Broker == "" {
			return fmt.Errorf("link.broker is required for the mqtt link")
		}
	default:
		return fmt.Errorf("unknown link.kind %q", c.Link.Kind)
	}

	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once so repeated calls are harmless.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
