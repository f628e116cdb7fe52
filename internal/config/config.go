// Package config loads daemon settings: built-in defaults, then an optional
// YAML file, then BUTTON_LED_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-led/internal/debounce"
	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/mqtt"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BUTTON_LED_"

type Config struct {
	GPIO     GPIOConfig    `yaml:"gpio" envPrefix:"GPIO_"`
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE"`
	MQTT     MQTTConfig    `yaml:"mqtt" envPrefix:"MQTT_"`
	HTTPAddr string        `yaml:"http_addr" env:"HTTP_ADDR"` // empty disables
}

type GPIOConfig struct {
	Chip            string `yaml:"chip" env:"CHIP"`
	Button          int    `yaml:"button" env:"BUTTON"`
	ButtonActiveLow bool   `yaml:"button_active_low" env:"BUTTON_ACTIVE_LOW"`
	LED             int    `yaml:"led" env:"LED"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker" env:"BROKER"` // empty disables
	TopicPrefix string `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
	ClientID    string `yaml:"client_id" env:"CLIENT_ID"`
	BufferSize  int    `yaml:"buffer_size" env:"BUFFER_SIZE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		GPIO: GPIOConfig{
			Chip:            gpio.DefaultChip,
			Button:          gpio.DefaultPinButton,
			ButtonActiveLow: true,
			LED:             gpio.DefaultPinLED,
		},
		Debounce: debounce.DefaultWindow,
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			TopicPrefix: mqtt.DefaultTopicPrefix,
			ClientID:    "button-led",
			BufferSize:  mqtt.DefaultBufferSize,
		},
		HTTPAddr: ":80",
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then with environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports settings the daemon cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.GPIO.Chip == "" {
		errs = append(errs, errors.New("gpio.chip is empty"))
	}
	if c.GPIO.Button < 0 {
		errs = append(errs, fmt.Errorf("gpio.button %d is negative", c.GPIO.Button))
	}
	if c.GPIO.LED < 0 {
		errs = append(errs, fmt.Errorf("gpio.led %d is negative", c.GPIO.LED))
	}
	if c.GPIO.Button == c.GPIO.LED {
		errs = append(errs, fmt.Errorf("gpio.button and gpio.led are both line %d", c.GPIO.LED))
	}
	if c.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce %v must be positive", c.Debounce))
	}
	if c.MQTT.Broker != "" && c.MQTT.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("mqtt.buffer_size %d must be positive", c.MQTT.BufferSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GPIODevice returns the settings for gpio.NewRealDevice.
func (c Config) GPIODevice() gpio.Config {
	return gpio.Config{
		Chip:           c.GPIO.Chip,
		InputOffset:    c.GPIO.Button,
		InputActiveLow: c.GPIO.ButtonActiveLow,
		OutputOffset:   c.GPIO.LED,
	}
}
