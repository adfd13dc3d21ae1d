package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "VMDECK_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks VMDECK_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
//
// When the dashboard is running it owns the terminal, so log output goes
// to a file under the user cache directory rather than stdout.
func Initialize(level string, toFile bool) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	out := "stderr"
	if toFile {
		path, err := logFilePath()
		if err != nil {
			return err
		}
		out = path
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{out},
		ErrorOutputPaths: []string{out},
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// InitializeFromEnv initializes the logger from the VMDECK_LOG_LEVEL
// environment variable. Silent mode by default so CLI output stays clean.
func InitializeFromEnv(toFile bool) error {
	return Initialize("", toFile)
}

func logFilePath() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache dir for log file: %w", err)
	}
	dir := filepath.Join(cache, "vmdeck")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log dir: %w", err)
	}
	return filepath.Join(dir, "vmdeck.log"), nil
}

// FilePath returns where file-mode diagnostics are written, creating
// the directory if needed.
func FilePath() (string, error) {
	return logFilePath()
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogDeviceOp logs a device lifecycle operation
func LogDeviceOp(op string, platform string, deviceID string) {
	Info("device operation",
		zap.String("op", op),
		zap.String("platform", platform),
		zap.String("device_id", deviceID),
	)
}

// LogCommand logs an external tool invocation
func LogCommand(name string, args []string, err error) {
	if err != nil {
		Warn("command failed",
			zap.String("cmd", name),
			zap.Strings("args", args),
			zap.Error(err),
		)
		return
	}
	Debug("command ok",
		zap.String("cmd", name),
		zap.Strings("args", args),
	)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
