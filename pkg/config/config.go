// Package config loads the configuration of the hqfbp command-line tools.
//
// Sources, in order of precedence: CLI flags, HQFBP_* environment
// variables, the YAML config file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/hqfbp/internal/bytesize"
)

// Config captures the static configuration of the hqfbp tools.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Sender holds the generator defaults used by pack and simulate.
	Sender SenderConfig `mapstructure:"sender" yaml:"sender"`

	// Simulation holds the channel model defaults for simulate and explore.
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"            yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// SenderConfig holds generator defaults.
type SenderConfig struct {
	// SrcCallsign identifies this station on the air.
	SrcCallsign string `mapstructure:"src_callsign" validate:"omitempty,max=9" yaml:"src_callsign"`

	// DstCallsign optionally addresses a recipient.
	DstCallsign string `mapstructure:"dst_callsign" validate:"omitempty,max=9" yaml:"dst_callsign"`

	// MaxPayloadSize caps the PDU body; a synthetic chunk step is inserted
	// when the stack has none.
	MaxPayloadSize bytesize.ByteSize `mapstructure:"max_payload_size" yaml:"max_payload_size"`

	// Encodings is the default stack in token form, e.g. "crc32,h".
	Encodings string `mapstructure:"encodings" yaml:"encodings"`

	// AnnouncementEncodings, when set, emits an announcement PDU with this
	// stack ahead of every message.
	AnnouncementEncodings string `mapstructure:"announcement_encodings" yaml:"announcement_encodings"`

	// StartMessageID seeds the Message-Id counter.
	StartMessageID uint32 `mapstructure:"start_message_id" yaml:"start_message_id"`
}

// SimulationConfig holds channel model defaults.
type SimulationConfig struct {
	BitErrorRate   float64 `mapstructure:"bit_error_rate"   validate:"gte=0,lte=1" yaml:"bit_error_rate"`
	PacketLossRate float64 `mapstructure:"packet_loss_rate" validate:"gte=0,lte=1" yaml:"packet_loss_rate"`
	Seed           int64   `mapstructure:"seed" yaml:"seed"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stderr"},
		Sender: SenderConfig{
			SrcCallsign:    "N0CALL",
			MaxPayloadSize: 200,
			StartMessageID: 1,
		},
		Simulation: SimulationConfig{Seed: 42},
	}
}

// DefaultPath returns the default config file location,
// $XDG_CONFIG_HOME/hqfbp/config.yaml.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "hqfbp", "config.yaml")
}

// Load reads the config file at path (optional), overlays HQFBP_*
// environment variables and validates the result. A missing file is not an
// error; the defaults carry.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HQFBP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %q: %w", path, err)
			}
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	v.SetDefault("sender.src_callsign", cfg.Sender.SrcCallsign)
	v.SetDefault("sender.dst_callsign", cfg.Sender.DstCallsign)
	v.SetDefault("sender.max_payload_size", cfg.Sender.MaxPayloadSize.Int())
	v.SetDefault("sender.encodings", cfg.Sender.Encodings)
	v.SetDefault("sender.announcement_encodings", cfg.Sender.AnnouncementEncodings)
	v.SetDefault("sender.start_message_id", cfg.Sender.StartMessageID)
	v.SetDefault("simulation.bit_error_rate", cfg.Simulation.BitErrorRate)
	v.SetDefault("simulation.packet_loss_rate", cfg.Simulation.PacketLossRate)
	v.SetDefault("simulation.seed", cfg.Simulation.Seed)
}

// WriteDefault renders the default configuration as YAML at path, creating
// parent directories. It refuses to overwrite unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %q already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	out, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("render default config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
