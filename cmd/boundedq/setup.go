package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/OCAP2/boundedqueue/internal/config"
	"github.com/OCAP2/boundedqueue/internal/logging"
	intOtel "github.com/OCAP2/boundedqueue/internal/otel"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// setup loads the config and wires logging: a session log file in logsDir,
// an optional Graylog writer and an optional OTel log pipeline.
func setup(configDir, commandName string) {
	SessionStartTime = time.Now()

	// log to stdout until the log file exists
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "warn", nil)
	Logger = SlogManager.Logger()

	configErr := config.Load(configDir)
	level := config.GetString("logLevel")

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	var opts []logging.SetupOption
	if config.GetBool("graylog.enabled") {
		GraylogWriter, err = logging.NewGraylogWriter(config.GetString("graylog.address"), AppName)
		if err != nil {
			Logger.Error("Failed to initialize Graylog writer", "error", err)
		} else {
			opts = append(opts, logging.WithGraylog(GraylogWriter))
		}
	}
	opts = append(opts, logging.WithContext(func() []slog.Attr {
		attrs := []slog.Attr{slog.String("command", commandName)}
		if p := activePool.Load(); p != nil {
			attrs = append(attrs, slog.Int("pending", p.Pending()))
		}
		return attrs
	}))

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	OTelProvider, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    optionalWriter(LogFile),
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider, _ = intOtel.New(intOtel.Config{})
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider.Enabled() {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(optionalWriter(LogFile), level, otelLogProvider, opts...)
	Logger = SlogManager.Logger()

	if configErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}
	Logger.Info("Logging to file", "path", LogFilePath)

	// zerolog carries the influx and database managers; its console output
	// is only shown when it is the selected format
	console := io.Discard
	if config.GetString("logFormat") == "zerolog" {
		console = os.Stderr
	}
	ZLogger = logging.NewZerolog(console, optionalWriter(LogFile), level)

	if config.GetString("logFormat") == "zerolog" {
		ComponentLog = logging.NewZerologAdapter(ZLogger)
	} else {
		ComponentLog = logging.NewSlogAdapter(Logger)
	}
}

// optionalWriter keeps a nil *os.File from turning into a non-nil io.Writer.
func optionalWriter(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
	}
	if err := OTelProvider.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shut down OTel provider: %v\n", err)
	}
	if GraylogWriter != nil {
		GraylogWriter.Close()
		GraylogWriter = nil
	}
	if LogFile != nil {
		LogFile.Close()
		LogFile = nil
	}
}
