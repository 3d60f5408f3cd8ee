// Package cmd implements the skyls command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfold/skyls/internal/config"
	"github.com/skyfold/skyls/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "skyls",
	Short: "List cloud storage buckets and objects",
	Long: `skyls lists buckets, objects, and subdirectories in cloud storage,
expanding wildcard URI patterns against real listings.

Example:
  skyls ls gs://bucket
  skyls ls -l gs://bucket/images/*.jpg
  skyls ls -r gs://bucket/data`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return exitError(foundry.ExitFileReadError, "Failed to load configuration", err)
		}
		level := cfg.Logging.Level
		if rootLogLevel != "" {
			level = rootLogLevel
		}
		observability.InitCLI(level)
		return nil
	},
}

var rootLogLevel string

// versionInfo holds build metadata injected at link time.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version template.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug|info|warn|error)")
}

// Execute runs the root command with signal-aware context cancellation and
// returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		observability.CLILogger.Debug("Command failed", zap.Error(err))
		return exitCode(err)
	}
	return 0
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}

var exitCodePattern = regexp.MustCompile(`\(exit code (\d+)\)$`)

// exitCode extracts the exit code embedded by exitError, defaulting to 1.
func exitCode(err error) int {
	m := exitCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 1
	}
	code, perr := strconv.Atoi(m[1])
	if perr != nil || code == 0 {
		return 1
	}
	return code
}
