package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PRICETIME_KAFKA_TOPIC
const EnvPrefix = "PRICETIME"

// Kafka drivers
const (
	DriverNone    = "none"
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

// Config represents the application configuration
type Config struct {
	Matcher struct {
		Session  string `yaml:"session"`
		Input    string `yaml:"input"`
		TickSize string `yaml:"tick_size"`
		Depth    int    `yaml:"depth"`
		Color    bool   `yaml:"color"`
	} `yaml:"matcher"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Kafka struct {
		Driver     string `yaml:"driver"`
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`

	Otel struct {
		Enabled     bool   `yaml:"enabled"`
		Endpoint    string `yaml:"endpoint"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"otel"`
}

// Default returns the configuration used when no file or override is given
func Default() *Config {
	cfg := &Config{}
	cfg.Matcher.Session = "main"
	cfg.Matcher.Input = "-"
	cfg.Matcher.TickSize = "1"
	cfg.Matcher.Depth = 5
	cfg.Matcher.Color = true
	cfg.Log.Level = "info"
	cfg.Log.Format = "pretty"
	cfg.Kafka.Driver = DriverNone
	cfg.Kafka.BrokerAddr = "localhost:9092"
	cfg.Kafka.Topic = "pricetime-executions"
	cfg.Otel.Endpoint = "localhost:4317"
	cfg.Otel.ServiceName = "pricetime"
	return cfg
}

// Load builds the configuration in three layers: defaults, an optional YAML
// file (-config), then PRICETIME_* environment variables. Explicit flags win
// over all of them.
func Load(name string, args []string) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to config file (YAML)")
	input := fs.String("input", "", "Order input file, '-' for stdin")
	logLevel := fs.String("log_level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log_format", "", "Log format: json, pretty")
	kafkaDriver := fs.String("kafka_driver", "", "Execution publisher: none, kafka-go, sarama")
	otelEnabled := fs.Bool("otel", false, "Export traces and metrics over OTLP")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Matcher.Input = *input
		case "log_level":
			cfg.Log.Level = *logLevel
		case "log_format":
			cfg.Log.Format = *logFormat
		case "kafka_driver":
			cfg.Kafka.Driver = *kafkaDriver
		case "otel":
			cfg.Otel.Enabled = *otelEnabled
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.IsSet("matcher.session") {
		cfg.Matcher.Session = v.GetString("matcher.session")
	}
	if v.IsSet("matcher.input") {
		cfg.Matcher.Input = v.GetString("matcher.input")
	}
	if v.IsSet("matcher.tick_size") {
		cfg.Matcher.TickSize = v.GetString("matcher.tick_size")
	}
	if v.IsSet("matcher.depth") {
		cfg.Matcher.Depth = v.GetInt("matcher.depth")
	}
	if v.IsSet("matcher.color") {
		cfg.Matcher.Color = v.GetBool("matcher.color")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}
	if v.IsSet("kafka.driver") {
		cfg.Kafka.Driver = v.GetString("kafka.driver")
	}
	if v.IsSet("kafka.broker_addr") {
		cfg.Kafka.BrokerAddr = v.GetString("kafka.broker_addr")
	}
	if v.IsSet("kafka.topic") {
		cfg.Kafka.Topic = v.GetString("kafka.topic")
	}
	if v.IsSet("otel.enabled") {
		cfg.Otel.Enabled = v.GetBool("otel.enabled")
	}
	if v.IsSet("otel.endpoint") {
		cfg.Otel.Endpoint = v.GetString("otel.endpoint")
	}
	if v.IsSet("otel.service_name") {
		cfg.Otel.ServiceName = v.GetString("otel.service_name")
	}
}

// Validate checks the configuration for values the binaries cannot work with
func (c *Config) Validate() error {
	if c.Matcher.Input == "" {
		return fmt.Errorf("matcher.input must not be empty")
	}
	if c.Matcher.TickSize == "" {
		return fmt.Errorf("matcher.tick_size must not be empty")
	}
	if c.Matcher.Depth < 0 {
		return fmt.Errorf("matcher.depth must not be negative")
	}
	switch c.Kafka.Driver {
	case DriverNone, DriverKafkaGo, DriverSarama:
	default:
		return fmt.Errorf("unknown kafka.driver %q", c.Kafka.Driver)
	}
	if c.Kafka.Driver != DriverNone && (c.Kafka.BrokerAddr == "" || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.broker_addr and kafka.topic are required with driver %s", c.Kafka.Driver)
	}
	switch c.Log.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
