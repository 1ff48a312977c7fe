package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	logs "github.com/danmuck/smplog"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "MATRIXD_LOG_LEVEL"
	EnvLogTimestamp = "MATRIXD_LOG_TIMESTAMP"
	EnvLogNoColor   = "MATRIXD_LOG_NOCOLOR"
	EnvLogBypass    = "MATRIXD_LOG_BYPASS"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var (
	configureOnce sync.Once
	appOnce       sync.Once
)

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		applyEnvOverrides(&cfg)
		applyConsoleParts(&cfg)
		logs.Configure(cfg)
	})
}

// SetApp tags the global logger with an app field. Only the first call applies.
func SetApp(app string) {
	appOnce.Do(func() {
		logs.SetLogger(logs.With().Str("app", app).Logger())
	})
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return logs.With().Str("component", name).Logger()
}

func defaultConfig(profile Profile) logs.Config {
	cfg := logs.DefaultConfig()
	switch profile {
	case ProfileTest:
		cfg.Level = logs.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = logs.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

// applyConsoleParts drops the time column when timestamps are off.
func applyConsoleParts(cfg *logs.Config) {
	if cfg.Timestamp {
		return
	}
	cfg.ConfigureConsole = func(w *logs.ConsoleWriter) {
		w.PartsExclude = []string{zerolog.TimestampFieldName}
	}
}

func applyEnvOverrides(cfg *logs.Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogBypass)); ok {
		cfg.Bypass = v
	}
}

func parseLevel(raw string) (logs.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return logs.InfoLevel, false
	case "trace", "diagnostics":
		return logs.TraceLevel, true
	case "debug":
		return logs.DebugLevel, true
	case "info":
		return logs.InfoLevel, true
	case "warn", "warning":
		return logs.WarnLevel, true
	case "error":
		return logs.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return logs.Disabled, true
	default:
		return logs.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
