// Package observability provides the shared CLI logger.
//
// Listing output goes to stdout; the logger writes to stderr so diagnostics
// never interleave with machine-readable output.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger for command diagnostics. It defaults
// to a no-op logger so library code and tests never nil-check it; InitCLI
// replaces it during command startup.
var CLILogger = zap.NewNop()

// InitCLI configures CLILogger at the given level with a console encoder on
// stderr. Unknown levels fall back to info.
func InitCLI(level string) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Construction only fails on invalid sink paths; keep the no-op.
		return
	}
	CLILogger = logger
}

// Sync flushes buffered log entries. Safe to call on the no-op logger.
func Sync() {
	_ = CLILogger.Sync()
}
