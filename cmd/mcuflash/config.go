package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

// FileConfig is the YAML configuration file format. Command-line flags
// override values loaded from the file.
type FileConfig struct {
	Port      string `yaml:"port"`
	BaudRate  int    `yaml:"baudRate"`
	Simulated bool   `yaml:"simulated"`
	LogLevel  string `yaml:"logLevel"`
	TraceFile string `yaml:"traceFile"`
}

// loadFileConfig parses a YAML configuration file.
func loadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file: %w", err)
	}
	return fc, nil
}

// sessionFlags holds the flags shared by every command that opens a
// device.
type sessionFlags struct {
	configPath string
	port       string
	baud       int
	simulated  bool
	logLevel   string
	traceFile  string
}

// register adds the shared flags to a command's flag set.
func (sf *sessionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&sf.port, "port", "", "Serial port (empty probes for one)")
	fs.IntVar(&sf.baud, "baud", 0, "Baud rate (default 115200)")
	fs.BoolVar(&sf.simulated, "sim", false, "Use the simulated device")
	fs.StringVar(&sf.logLevel, "log-level", "", "Log level: debug, info, warn, error (default warn)")
	fs.StringVar(&sf.traceFile, "trace", "", "Write a capture trace to this file")
}

// resolve merges the config file (if any) with the flag values. Flags
// that were left at their zero value take the file's setting.
func (sf *sessionFlags) resolve() (FileConfig, error) {
	var fc FileConfig
	if sf.configPath != "" {
		loaded, err := loadFileConfig(sf.configPath)
		if err != nil {
			return fc, err
		}
		fc = loaded
	}

	if sf.port != "" {
		fc.Port = sf.port
	}
	if sf.baud != 0 {
		fc.BaudRate = sf.baud
	}
	if sf.simulated {
		fc.Simulated = true
	}
	if sf.logLevel != "" {
		fc.LogLevel = sf.logLevel
	}
	if sf.traceFile != "" {
		fc.TraceFile = sf.traceFile
	}
	return fc, nil
}

// transportConfig builds the transport configuration from the resolved
// settings.
func (fc FileConfig) transportConfig() transport.Config {
	return transport.Config{
		Port:      fc.Port,
		BaudRate:  fc.BaudRate,
		Simulated: fc.Simulated,
	}
}

// setupLogging configures the default slog logger. Command output goes
// to stdout; operational logging goes to stderr so it can be silenced
// or redirected independently.
func setupLogging(level string) *slog.Logger {
	lv := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "info":
		lv = slog.LevelInfo
	case "warn", "warning", "":
	case "error":
		lv = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
	slog.SetDefault(logger)
	return logger
}

// setupTracer opens a file tracer if a trace path is configured. The
// returned close function is safe to call when no tracer was opened.
func setupTracer(path string) (trace.Logger, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	fl, err := trace.NewFileLogger(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	return fl, func() { _ = fl.Close() }, nil
}
