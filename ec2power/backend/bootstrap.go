package backend

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mulgadc/ec2power/ec2power/config"
	"github.com/mulgadc/ec2power/ec2power/handler"
	"go.uber.org/automaxprocs/maxprocs"
)

// ConfigPathEnv names an optional TOML config file for the Lambda binaries
const ConfigPathEnv = "EC2POWER_CONFIG"

// Bootstrap loads configuration and wires a Handler to the configured
// lifecycle API. The Lambda binaries call it once per cold start.
func Bootstrap(configPath string) (*handler.Handler, func(), error) {
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		slog.Warn("Failed to set GOMAXPROCS", "err", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		undo()
		return nil, nil, err
	}

	SetupLogging(os.Stdout, cfg.Debug)

	ctrl, closeCtrl, err := NewController(cfg)
	if err != nil {
		undo()
		return nil, nil, err
	}

	slog.Info("Bootstrap: ready", "backend", cfg.Backend, "instance_id", cfg.InstanceID)

	return handler.New(cfg, ctrl), func() {
		closeCtrl()
		undo()
	}, nil
}

// SetupLogging installs a JSON slog handler as the default logger
func SetupLogging(w io.Writer, debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}
