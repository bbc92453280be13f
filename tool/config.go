package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/gcomserver-go/types"
)

// ConfigFileName is looked up in the user's home directory when no path is given.
const ConfigFileName = ".gcomserver.yaml"

// Environment variables consulted after the config file.
const (
	EnvKeepFiles    = "GCOM_KEEP_FILES"
	EnvLogLevel     = "GCOM_LOGLEVEL"
	EnvStagingDir   = "GCOM_STAGING_DIR"
	EnvOutputDir    = "GCOM_OUTPUT_DIR"
	EnvListen       = "GCOM_LISTEN"
	EnvStatusAddr   = "GCOM_STATUS_ADDR"
	EnvNotifySocket = "GCOM_NOTIFY_SOCKET"
	EnvAcceptRate   = "GCOM_ACCEPT_RATE"
)

func DefaultConfig() types.AppConfig {
	return types.AppConfig{
		Listen:         ":2001",
		StagingDir:     os.TempDir(),
		KeepFiles:      false,
		LogLevel:       types.LogLow,
		MaxConnections: 8,
		AcceptRate:     10,
	}
}

// DefaultConfigPath returns ~/.gcomserver.yaml, or the bare file name when
// the home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ConfigFileName
	}
	return filepath.Join(home, ConfigFileName)
}

// LoadConfig reads defaults, then the yaml file at path (a missing file is
// fine), then the environment.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg := DefaultConfig()

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	case err == nil:
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %v", err)
		}
		DefaultLogger.Debugf("Loaded config from %s", path)
	case os.IsNotExist(err):
		DefaultLogger.Debugf("No config file at %s, using defaults", path)
	default:
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays GCOM_* variables onto cfg.
func ApplyEnv(cfg *types.AppConfig, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvKeepFiles); ok {
		keep, err := ParseFlagValue(v)
		if err != nil {
			return fmt.Errorf("%s: %v", EnvKeepFiles, err)
		}
		cfg.KeepFiles = keep
	}
	if v, ok := lookup(EnvLogLevel); ok {
		level, err := ParseLogLevel(v)
		if err != nil {
			return fmt.Errorf("%s: %v", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}
	if v, ok := lookup(EnvStagingDir); ok && v != "" {
		cfg.StagingDir = v
	}
	if v, ok := lookup(EnvOutputDir); ok {
		cfg.OutputDir = v
	}
	if v, ok := lookup(EnvListen); ok && v != "" {
		cfg.Listen = v
	}
	if v, ok := lookup(EnvStatusAddr); ok {
		cfg.StatusAddr = v
	}
	if v, ok := lookup(EnvNotifySocket); ok {
		cfg.NotifySocket = v
	}
	if v, ok := lookup(EnvAcceptRate); ok && strings.TrimSpace(v) != "" {
		n, err := parseAcceptRate(v)
		if err != nil {
			return fmt.Errorf("%s: %v", EnvAcceptRate, err)
		}
		cfg.AcceptRate = n
	}
	return nil
}

// ApplyFlags overlays CLI flag overrides; flags win over file and environment.
func ApplyFlags(cfg *types.AppConfig, flags types.Config) error {
	if flags.Log != "" {
		level, err := ParseLogLevel(flags.Log)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if flags.UseListen != "" {
		cfg.Listen = flags.UseListen
	}
	if flags.UseStagingDir != "" {
		cfg.StagingDir = flags.UseStagingDir
	}
	if flags.UseKeepFiles {
		cfg.KeepFiles = true
	}
	if flags.UseOutputDir != "" {
		cfg.OutputDir = flags.UseOutputDir
	}
	if flags.UseStatusAddr != "" {
		cfg.StatusAddr = flags.UseStatusAddr
	}
	if flags.UseLogFile != "" {
		cfg.LogFile = flags.UseLogFile
	}
	if flags.MaxConnections > 0 {
		cfg.MaxConnections = flags.MaxConnections
	}
	if flags.UseAcceptRate != "" {
		n, err := parseAcceptRate(flags.UseAcceptRate)
		if err != nil {
			return err
		}
		cfg.AcceptRate = n
	}
	if flags.UseNotifySocket != "" {
		cfg.NotifySocket = flags.UseNotifySocket
	}
	return nil
}

// parseAcceptRate reads a connections-per-second limit; 0 disables it.
func parseAcceptRate(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid accept rate %q", v)
	}
	return n, nil
}

// ParseFlagValue reads a boolean setting: true/false words, or an integer
// where any non-zero value means true.
func ParseFlagValue(v string) (bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return false, nil
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return n != 0, nil
}

// WriteConfig persists cfg as yaml at path.
func WriteConfig(path string, cfg types.AppConfig) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
