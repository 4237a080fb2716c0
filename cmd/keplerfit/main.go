package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iwvelando/keplerfit/internal/config"
	"github.com/iwvelando/keplerfit/internal/session"
	"github.com/iwvelando/keplerfit/pkg/constants"
	_ "github.com/iwvelando/keplerfit/pkg/lightcurve/accel"
	"github.com/iwvelando/keplerfit/pkg/output"
	"github.com/iwvelando/keplerfit/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loggerPresets maps logging.format to the zap preset it starts from.
var loggerPresets = map[string]func() zap.Config{
	"json":    zap.NewProductionConfig,
	"console": zap.NewDevelopmentConfig,
}

// initializeLogger builds the zap logger for the logging block. A non-empty
// override replaces logging.level.
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}
	preset, ok := loggerPresets[format]
	if !ok {
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zc := preset()
	zc.Level = zap.NewAtomicLevelAt(zapLevel)

	if path := loggingConfig.OutputFile; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory for %s: %w", path, err)
		}
		zc.OutputPaths = []string{path}
		zc.ErrorOutputPaths = []string{path}
	}
	return zc.Build()
}

// run builds a session from conf, evaluates it and prints the result.
func run(ctx context.Context, logger *zap.Logger, conf *config.Configuration, outputFormat, exportPath string) error {
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.run"),
		)
	}

	s, err := session.New(logger, conf)
	if err != nil {
		return fmt.Errorf("failed to build session: %w", err)
	}
	for _, warning := range s.Warnings() {
		logger.Warn("Data warning: "+warning,
			zap.String("op", "main.run"),
		)
	}

	res, err := s.Residuals(ctx)
	if err != nil {
		return fmt.Errorf("failed to evaluate models: %w", err)
	}
	logger.Info("evaluated models",
		zap.String("op", "main.run"),
		zap.String("kernel", s.KernelName()),
		zap.Float64("chi2", res.ChiSquared()),
	)

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(s, res)
	case constants.OutputFormatCSV:
		output.CsvFormat(res)
	}

	if exportPath != "" {
		if err := output.ExportParams(exportPath, s.Params()); err != nil {
			return err
		}
		logger.Info("exported parameters",
			zap.String("op", "main.run"),
			zap.String("path", exportPath),
			zap.String("basis", s.Params().Basis().Name()),
		)
	}
	return nil
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	exportFlag := flag.String("export", "", "write the fitting-basis parameters to this YAML file")
	flag.Parse()

	runtimeEnv, err := config.ParseRuntimeEnv()
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to read environment overrides\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	conf, err := config.LoadConfigurationWithEnv(*configLocation, runtimeEnv)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over environment and config
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	exportPath := conf.Output.ExportParams
	if *exportFlag != "" {
		exportPath = *exportFlag
	}

	if err := run(context.Background(), logger, conf, outputFormat, exportPath); err != nil {
		logger.Fatal("failed to run model",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
