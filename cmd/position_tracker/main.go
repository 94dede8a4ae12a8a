package main

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C" // This is required to import the C code

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/OCAP2/position-tracker/internal/config"
	"github.com/OCAP2/position-tracker/internal/dispatcher"
	"github.com/OCAP2/position-tracker/internal/host"
	"github.com/OCAP2/position-tracker/internal/logging"
	intOtel "github.com/OCAP2/position-tracker/internal/otel"
	"github.com/OCAP2/position-tracker/internal/tracker"
	"github.com/OCAP2/position-tracker/pkg/rvextension"

	"gopkg.in/natefinch/lumberjack.v2"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.0.1"
	BuildDate               string = "unknown"

	ExtensionName string = "position_tracker"
)

// file paths
var (
	// AddonFolder is the folder this library was loaded from; the config file lives here.
	AddonFolder string

	LogFilePath    string
	LogFile        *lumberjack.Logger
	ConsoleLogPath string
	ConsoleLogFile *lumberjack.Logger

	SessionStartTime time.Time = time.Now()
)

// global variables
var (
	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	OTelProvider *intOtel.Provider

	bridge          *host.Bridge
	positionTracker *tracker.Tracker
	eventDispatcher *dispatcher.Dispatcher
)

// init is run automatically when the module is loaded
func init() {
	AddonFolder = rvextension.ModuleDir()

	SlogManager = logging.NewSlogManager()
	SlogManager.State = func() []slog.Attr { return positionTracker.LogAttrs() }
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(AddonFolder); err != nil {
		config.UseDefaults()
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", AddonFolder)
	}

	setupLogging()
	setupOTel()

	if err := setupExtension(); err != nil {
		Logger.Error("Failed to set up extension!", "error", err)
		panic(err)
	}
	Logger.Info("Extension ready", "version", CurrentExtensionVersion, "build", BuildDate)
}

func setupLogging() {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory!", "error", err, "path", logsDir)
		return
	}

	LogFilePath = logging.LogFilePath(logsDir, ExtensionName, SessionStartTime)
	LogFile = logging.RotatingFile(LogFilePath, 10, 5, 14)
	ConsoleLogPath = filepath.Join(logsDir, ExtensionName+".console.log")
	ConsoleLogFile = logging.RotatingFile(ConsoleLogPath, 5, 3, 30)

	SlogManager.Setup(LogFile, config.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)
}

func setupOTel() {
	otelCfg := config.GetOTelConfig()
	if !otelCfg.Enabled {
		return
	}

	var logFile io.Writer
	if LogFile != nil {
		logFile = LogFile
	}

	var err error
	OTelProvider, err = intOtel.New(intOtel.FromSettings(otelCfg, logFile))
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		return
	}

	SlogManager.Setup(logFile, config.GetString("logLevel"), OTelProvider.LoggerProvider())
	Logger = SlogManager.Logger()
	Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
}

func setupExtension() error {
	rvextension.SetVersion(CurrentExtensionVersion)
	rvextension.SetExtensionName(ExtensionName)

	trackerCfg, err := config.GetTrackerConfig()
	if err != nil {
		Logger.Error("Invalid tracker config, using defaults", "error", err)
		trackerCfg = config.Defaults()
	}

	trivial := logging.NewTrivialLogger(nil)
	if ConsoleLogFile != nil {
		trivial = logging.NewTrivialLogger(ConsoleLogFile)
	}
	bridge = host.NewBridge(rvextension.WriteCallback, Logger.With("component", "host"), trivial)

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(Logger.With("component", "dispatcher")))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	positionTracker, err = tracker.New(tracker.Dependencies{
		Config:  trackerCfg,
		Bridge:  bridge,
		Logger:  Logger,
		Version: CurrentExtensionVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}
	positionTracker.RegisterHandlers(eventDispatcher)
	registerLifecycleHandlers(eventDispatcher)

	rvextension.SetDispatcher(eventDispatcher)
	return nil
}

func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	// the menu is built with callbacks, so it waits for the host to register one
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		if err := positionTracker.Start(); err != nil {
			return nil, err
		}
		return "ok", nil
	})

	d.Register(":GETDIR:LOGS:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})

	d.Register(":SHUTDOWN:", func(e dispatcher.Event) (any, error) {
		positionTracker.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := SlogManager.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush logs", "error", err)
		}
		if OTelProvider != nil {
			if err := OTelProvider.Flush(ctx); err != nil {
				Logger.Warn("Failed to flush OTel data", "error", err)
			}
			if err := OTelProvider.Shutdown(ctx); err != nil {
				Logger.Warn("Failed to shut down OTel provider", "error", err)
			}
		}
		return "ok", nil
	})
}

func main() {}
