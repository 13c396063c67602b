// Package config loads the transport's runtime settings from a yaml file
// with environment-variable overrides, backed by viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	serial "github.com/genilink/go-serial-transport"
)

// Config is the root configuration document.
type Config struct {
	Serial SerialConfig `mapstructure:"serial"`
	Log    LogConfig    `mapstructure:"log"`
}

// SerialConfig supplies everything the transport needs at open time plus
// the tick interval for the external drive loop.
type SerialConfig struct {
	PortIndex    uint          `mapstructure:"port_index"`
	Device       string        `mapstructure:"device"` // overrides port_index when set
	BaudRate     int           `mapstructure:"baud_rate"`
	DataBits     int           `mapstructure:"data_bits"`
	StopBits     int           `mapstructure:"stop_bits"`
	Parity       string        `mapstructure:"parity"` // none, even, odd
	PollWait     time.Duration `mapstructure:"poll_wait"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// LogConfig controls the diagnostic sink.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	File       string `mapstructure:"file"`   // empty means stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads the configuration file at path. A missing file is not an
// error; defaults and SERIAL_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SERIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil {
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port_index", 0)
	v.SetDefault("serial.baud_rate", 19200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "even")
	v.SetDefault("serial.poll_wait", 500*time.Millisecond)
	v.SetDefault("serial.tick_interval", 20*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Transport converts the loaded serial section into the line
// configuration the transport expects.
func (c SerialConfig) Transport() (serial.Config, error) {
	parity, err := parseParity(c.Parity)
	if err != nil {
		return serial.Config{}, err
	}
	device := c.Device
	if device == "" {
		device = serial.DevicePath(c.PortIndex)
	}
	return serial.Config{
		Device:   device,
		BaudRate: c.BaudRate,
		Parity:   parity,
		DataBits: c.DataBits,
		StopBits: c.StopBits,
		PollWait: c.PollWait,
	}, nil
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serial.ParityNone, nil
	case "even", "e":
		return serial.ParityEven, nil
	case "odd", "o":
		return serial.ParityOdd, nil
	default:
		return serial.ParityNone, fmt.Errorf("unknown parity %q", s)
	}
}
