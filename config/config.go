// Package config loads and validates the fleet controller's configuration:
// the keys under fps (including disable_precise_moves and
// broadcast_quiescence), profiles.default and a boolean top-level safe_mode
// flag. There is no positioner section. Grounded on
// marmos91-dittofs's pkg/config (viper load/unmarshal/default/validate
// shape), adapted from that package's mapstructure-decode-hook machinery
// (only a duration hook is needed here) and from the teacher's
// session.TCPConfig.check() idiom of applying defaults and rejecting
// out-of-range values — translated from a panic to a returned error, since
// this is user-facing configuration rather than a fixed protocol constant.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// FPSConfig binds the keys under the "fps" section of config.yaml.
type FPSConfig struct {
	UseLock                 bool          `mapstructure:"use_lock" yaml:"use_lock"`
	StatusPollerDelay       time.Duration `mapstructure:"status_poller_delay" yaml:"status_poller_delay"`
	PositionPollerDelay     time.Duration `mapstructure:"position_poller_delay" yaml:"position_poller_delay"`
	InitialiseTimeouts      time.Duration `mapstructure:"initialise_timeouts" yaml:"initialise_timeouts"`
	StartPollers            bool          `mapstructure:"start_pollers" yaml:"start_pollers"`
	CheckLowTemperature     bool          `mapstructure:"check_low_temperature" yaml:"check_low_temperature"`
	BroadcastQuiescence     time.Duration `mapstructure:"broadcast_quiescence" yaml:"broadcast_quiescence"`
	DisabledPositioners     []uint16      `mapstructure:"disabled_positioners" yaml:"disabled_positioners"`
	OfflinePositioners      []uint16      `mapstructure:"offline_positioners" yaml:"offline_positioners"`
	DisableCollisionDetPids []uint16      `mapstructure:"disable_collision_detection_positioners" yaml:"disable_collision_detection_positioners"`
	OpenLoopPositioners     []uint16      `mapstructure:"open_loop_positioners" yaml:"open_loop_positioners"`
	DisablePreciseMoves     bool          `mapstructure:"disable_precise_moves" yaml:"disable_precise_moves"`
}

// ProfilesConfig binds the "profiles" section.
type ProfilesConfig struct {
	Default string `mapstructure:"default" yaml:"default"`
}

// Config is the top-level configuration document.
type Config struct {
	FPS      FPSConfig      `mapstructure:"fps" yaml:"fps"`
	Profiles ProfilesConfig `mapstructure:"profiles" yaml:"profiles"`
	SafeMode bool           `mapstructure:"safe_mode" yaml:"safe_mode"`
}

// ConfigError reports an invalid or out-of-range configuration value.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Defaults, applied by check() for any zero-valued field (mirrors the
// teacher's TCPConfig.check()).
const (
	DefaultStatusPollerDelay   = 5 * time.Second
	DefaultPositionPollerDelay = 5 * time.Second
	DefaultInitialiseTimeouts  = 5 * time.Second
	DefaultBroadcastQuiescence = 500 * time.Millisecond
)

// Load reads configPath (or the default search path if empty), applies
// defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if found {
		hook := mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
		if err := v.Unmarshal(cfg, viper.DecodeHook(hook)); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// check applies defaults in place and validates the result, mirroring the
// teacher's TCPConfig.check() (session/config.go) but returning a
// ConfigError instead of panicking.
func (c *Config) check() error {
	if c.FPS.StatusPollerDelay == 0 {
		c.FPS.StatusPollerDelay = DefaultStatusPollerDelay
	}
	if c.FPS.PositionPollerDelay == 0 {
		c.FPS.PositionPollerDelay = DefaultPositionPollerDelay
	}
	if c.FPS.InitialiseTimeouts == 0 {
		c.FPS.InitialiseTimeouts = DefaultInitialiseTimeouts
	}
	if c.FPS.BroadcastQuiescence == 0 {
		c.FPS.BroadcastQuiescence = DefaultBroadcastQuiescence
	}
	if c.Profiles.Default == "" {
		c.Profiles.Default = "default"
	}

	if c.FPS.StatusPollerDelay < 0 {
		return &ConfigError{"fps.status_poller_delay", c.FPS.StatusPollerDelay, "must not be negative"}
	}
	if c.FPS.PositionPollerDelay < 0 {
		return &ConfigError{"fps.position_poller_delay", c.FPS.PositionPollerDelay, "must not be negative"}
	}
	if c.FPS.InitialiseTimeouts <= 0 {
		return &ConfigError{"fps.initialise_timeouts", c.FPS.InitialiseTimeouts, "must be positive"}
	}
	if c.FPS.BroadcastQuiescence <= 0 {
		return &ConfigError{"fps.broadcast_quiescence", c.FPS.BroadcastQuiescence, "must be positive"}
	}
	if dup := firstDuplicate(c.FPS.DisabledPositioners); dup != 0 {
		return &ConfigError{"fps.disabled_positioners", dup, "listed more than once"}
	}
	return nil
}

func firstDuplicate(ids []uint16) uint16 {
	seen := make(map[uint16]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id
		}
		seen[id] = true
	}
	return 0
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("JAEGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.AddConfigPath(".")
	v.SetConfigName("jaeger")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "jaeger")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "jaeger")
}
