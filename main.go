package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gcombe/batnet-go/cmd"
	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/logging"
	"github.com/gcombe/batnet-go/internal/telemetry"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	if settings.Main.Log.Enabled {
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLogger, err := logging.NewFileLogger(settings.Main.Log.Path, settings.Main.Name, level)
		if err != nil {
			logging.Warn("failed to initialize log file, file logging disabled",
				"path", settings.Main.Log.Path, "error", err)
			fileLogger = logging.NopLogger()
			closeLogger = func() error { return nil }
		}
		slog.SetDefault(fileLogger)
		defer func() { _ = closeLogger() }()
	}

	if err := telemetry.Init(settings); err != nil {
		logging.Warn("telemetry initialization failed", "error", err)
	}
	defer telemetry.Flush(2 * time.Second)

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
