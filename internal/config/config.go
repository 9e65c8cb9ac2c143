// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/auroch/internal/stability"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Motion    MotionConfig    `mapstructure:"motion" yaml:"motion"`
	Plan      PlanConfig      `mapstructure:"plan" yaml:"plan"`
	Actuator  ActuatorConfig  `mapstructure:"actuator" yaml:"actuator"`
	Stability StabilityConfig `mapstructure:"stability" yaml:"stability"`
	Control   ControlConfig   `mapstructure:"control" yaml:"control"`
	Screens   ScreensConfig   `mapstructure:"screens" yaml:"screens"`
}

type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// PlanConfig covers plan expansion and the sent-action logs.
type PlanConfig struct {
	TargetPolicy string `mapstructure:"target_policy" yaml:"target_policy"`
	LogsDir      string `mapstructure:"logs_dir" yaml:"logs_dir"`
	CompressLogs bool   `mapstructure:"compress_logs" yaml:"compress_logs"`
	HumanReport  bool   `mapstructure:"human_report" yaml:"human_report"`
}

type ActuatorConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
	// Transport is zmq for the device's REP socket or websocket for the simulator.
	Transport string        `mapstructure:"transport" yaml:"transport"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// SimulateListen is where `actuator serve --simulate` binds.
	SimulateListen string `mapstructure:"simulate_listen" yaml:"simulate_listen"`
}

// StabilityConfig holds the detector thresholds and the sampling cadence.
type StabilityConfig struct {
	StableConsec   int           `mapstructure:"stable_consec" yaml:"stable_consec"`
	StableMin      time.Duration `mapstructure:"stable_min" yaml:"stable_min"`
	QuarantineMax  time.Duration `mapstructure:"quarantine_max" yaml:"quarantine_max"`
	HashTolerance  int           `mapstructure:"hash_tolerance" yaml:"hash_tolerance"`
	StartMuted     bool          `mapstructure:"start_muted" yaml:"start_muted"`
	StartupMuteTTL time.Duration `mapstructure:"startup_mute_ttl" yaml:"startup_mute_ttl"`
	Interval       time.Duration `mapstructure:"interval" yaml:"interval"`
	MutedPoll      time.Duration `mapstructure:"muted_poll" yaml:"muted_poll"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	CommandBuffer  int           `mapstructure:"command_buffer" yaml:"command_buffer"`
	CaptureProgram string        `mapstructure:"capture_program" yaml:"capture_program"`
	CaptureArgs    []string      `mapstructure:"capture_args" yaml:"capture_args"`
	CapturePath    string        `mapstructure:"capture_path" yaml:"capture_path"`
}

type ControlConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	Address         string        `mapstructure:"address" yaml:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	AcceptRate      float64       `mapstructure:"accept_rate" yaml:"accept_rate"`
	AcceptBurst     int           `mapstructure:"accept_burst" yaml:"accept_burst"`
	DefaultMuteTTL  time.Duration `mapstructure:"default_mute_ttl" yaml:"default_mute_ttl"`
	MaxCommandBytes int64         `mapstructure:"max_command_bytes" yaml:"max_command_bytes"`
	ClientTimeout   time.Duration `mapstructure:"client_timeout" yaml:"client_timeout"`
}

// ScreensConfig covers both ends of the screenshot channel.
type ScreensConfig struct {
	ListenAddr    string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	HostAddress   string        `mapstructure:"host_address" yaml:"host_address"`
	Root          string        `mapstructure:"root" yaml:"root"`
	IndexPath     string        `mapstructure:"index_path" yaml:"index_path"`
	MaxFrameBytes uint32        `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
	SendTimeout   time.Duration `mapstructure:"send_timeout" yaml:"send_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
}

// Detector converts the thresholds for the stability package.
func (s StabilityConfig) Detector() stability.DetectorConfig {
	return stability.DetectorConfig{
		StableConsec:   s.StableConsec,
		StableMin:      s.StableMin,
		QuarantineMax:  s.QuarantineMax,
		HashTolerance:  s.HashTolerance,
		StartMuted:     s.StartMuted,
		StartupMuteTTL: s.StartupMuteTTL,
	}
}

func (s StabilityConfig) Monitor() stability.MonitorConfig {
	return stability.MonitorConfig{
		Interval:      s.Interval,
		MutedPoll:     s.MutedPoll,
		RetryDelay:    s.RetryDelay,
		CommandBuffer: s.CommandBuffer,
	}
}

func (c ControlConfig) Server() stability.ControlConfig {
	return stability.ControlConfig{
		ReadTimeout:     c.ReadTimeout,
		AcceptRate:      c.AcceptRate,
		AcceptBurst:     c.AcceptBurst,
		DefaultMuteTTL:  c.DefaultMuteTTL,
		MaxCommandBytes: c.MaxCommandBytes,
	}
}

// EnvPrefix namespaces environment overrides, e.g. AUROCH_ACTUATOR_ADDRESS.
const EnvPrefix = "AUROCH"

// BindEnv makes every key overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadFile loads cfgFile, or config.yaml from the working directory when it is
// empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "auroch")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	setMotionDefaults(v)

	// -- Plan --
	v.SetDefault("plan.target_policy", "center")
	v.SetDefault("plan.logs_dir", "runs/logs")
	v.SetDefault("plan.compress_logs", false)
	v.SetDefault("plan.human_report", false)

	// -- Actuator --
	v.SetDefault("actuator.address", "192.168.1.214:5555")
	v.SetDefault("actuator.transport", "zmq")
	v.SetDefault("actuator.timeout", "30s")
	v.SetDefault("actuator.simulate_listen", "127.0.0.1:5555")

	// -- Stability --
	v.SetDefault("stability.stable_consec", 3)
	v.SetDefault("stability.stable_min", "800ms")
	v.SetDefault("stability.quarantine_max", "6s")
	v.SetDefault("stability.hash_tolerance", 0)
	v.SetDefault("stability.start_muted", true)
	v.SetDefault("stability.startup_mute_ttl", "8760h")
	v.SetDefault("stability.interval", "500ms")
	v.SetDefault("stability.muted_poll", "200ms")
	v.SetDefault("stability.retry_delay", "5s")
	v.SetDefault("stability.command_buffer", 16)
	v.SetDefault("stability.capture_program", "gnome-screenshot")
	v.SetDefault("stability.capture_args", []string{"-f", "{path}"})
	v.SetDefault("stability.capture_path", "")

	// -- Control --
	v.SetDefault("control.listen_addr", "0.0.0.0:5002")
	v.SetDefault("control.address", "127.0.0.1:5002")
	v.SetDefault("control.read_timeout", "2s")
	v.SetDefault("control.accept_rate", 20.0)
	v.SetDefault("control.accept_burst", 5)
	v.SetDefault("control.default_mute_ttl", "120s")
	v.SetDefault("control.max_command_bytes", 4096)
	v.SetDefault("control.client_timeout", "3s")

	// -- Screens --
	v.SetDefault("screens.listen_addr", "0.0.0.0:5001")
	v.SetDefault("screens.host_address", "127.0.0.1:5001")
	v.SetDefault("screens.root", "runs/screens")
	v.SetDefault("screens.index_path", "runs/screens/index.db")
	v.SetDefault("screens.max_frame_bytes", 64<<20)
	v.SetDefault("screens.send_timeout", "5s")
	v.SetDefault("screens.read_timeout", "30s")
}

// NewConfigFromViper unmarshals, expands paths and validates.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Logger.LogFile, &c.Plan.LogsDir, &c.Screens.Root, &c.Screens.IndexPath, &c.Stability.CapturePath} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Motion.Humanoid(); err != nil {
		errs = append(errs, fmt.Errorf("motion: %w", err))
	}
	switch strings.ToLower(c.Plan.TargetPolicy) {
	case "center", "random":
	default:
		errs = append(errs, fmt.Errorf("plan.target_policy must be center or random, got %q", c.Plan.TargetPolicy))
	}
	if c.Plan.LogsDir == "" {
		errs = append(errs, errors.New("plan.logs_dir is required"))
	}
	switch strings.ToLower(c.Actuator.Transport) {
	case "zmq", "websocket":
	default:
		errs = append(errs, fmt.Errorf("actuator.transport must be zmq or websocket, got %q", c.Actuator.Transport))
	}
	if c.Actuator.Timeout <= 0 {
		errs = append(errs, errors.New("actuator.timeout must be a positive duration"))
	}
	if err := c.Stability.Detector().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stability: %w", err))
	}
	if err := c.Stability.Monitor().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stability: %w", err))
	}
	if c.Control.ReadTimeout <= 0 || c.Control.AcceptRate <= 0 || c.Control.AcceptBurst < 1 {
		errs = append(errs, errors.New("control listener limits must be positive"))
	}
	if c.Control.MaxCommandBytes < 16 {
		errs = append(errs, errors.New("control.max_command_bytes must be >= 16"))
	}
	for key, addr := range map[string]string{
		"control.listen_addr":  c.Control.ListenAddr,
		"screens.listen_addr":  c.Screens.ListenAddr,
		"screens.host_address": c.Screens.HostAddress,
	} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if c.Screens.Root == "" {
		errs = append(errs, errors.New("screens.root is required"))
	}
	if c.Screens.MaxFrameBytes == 0 {
		errs = append(errs, errors.New("screens.max_frame_bytes must be > 0"))
	}
	if c.Screens.SendTimeout <= 0 {
		errs = append(errs, errors.New("screens.send_timeout must be a positive duration"))
	}
	return errors.Join(errs...)
}
