package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/bitkill/hello-blea/internal/encoding"
)

// LogLevelEnv overrides the configured log level when set.
const LogLevelEnv = "HELLO_BLEA_LOG"

const (
	SourceStdin = "stdin"
	SourceFile  = "file"
	SourceMQTT  = "mqtt"
)

// Config is the gateway configuration file.
type Config struct {
	LogLevel     string `yaml:"log_level"`
	Format       string `yaml:"format"`
	PublishEmpty bool   `yaml:"publish_empty"`
	Source       Source `yaml:"source"`
	MQTT         MQTT   `yaml:"mqtt"`
}

// Source selects where advertisements are read from.
type Source struct {
	Type string `yaml:"type"`
	// Path is read when Type is "file".
	Path string `yaml:"path"`
	// Topic is subscribed to when Type is "mqtt".
	Topic string `yaml:"topic"`
}

// MQTT configures the broker connection used for publishing readings and,
// optionally, for receiving advertisements.
type MQTT struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	TopicPrefix    string        `yaml:"topic_prefix"`
	QoS            byte          `yaml:"qos"`
	Retain         bool          `yaml:"retain"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		Format:   encoding.FormatJSON,
		Source:   Source{Type: SourceStdin},
		MQTT: MQTT{
			ClientID:       "hello-blea",
			TopicPrefix:    "hello-blea",
			QoS:            1,
			KeepAlive:      60 * time.Second,
			ConnectTimeout: 10 * time.Second,
		},
	}
}

// Load reads a YAML file on top of Default and applies the environment
// override. An empty path yields the defaults. The result is not validated;
// call Validate once command line overrides are applied.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if level := os.Getenv(LogLevelEnv); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// Overrides are command line values that take precedence over the file and
// the environment. Empty fields leave the loaded value alone.
type Overrides struct {
	LogLevel string
	Format   string
	// Input switches the source to a file.
	Input string
}

// Apply returns c with o applied. Validate afterwards, so an override can
// repair a bad file value.
func (c Config) Apply(o Overrides) Config {
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Format != "" {
		c.Format = o.Format
	}
	if o.Input != "" {
		c.Source.Type = SourceFile
		c.Source.Path = o.Input
	}
	return c
}

// Validate checks field combinations that cannot work at runtime.
func (c Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := encoding.Lookup(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("format: %w", err))
	}
	switch strings.ToLower(c.Source.Type) {
	case SourceStdin:
	case SourceFile:
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for file sources"))
		}
	case SourceMQTT:
		if c.Source.Topic == "" {
			errs = append(errs, errors.New("source.topic is required for mqtt sources"))
		}
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker is required for mqtt sources"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.type %q is not one of stdin, file, mqtt", c.Source.Type))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
