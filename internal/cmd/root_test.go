package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	SetVersionInfo("1.2.0", "abc123", "2026-08-30")

	assert.Equal(t, "1.2.0", versionInfo.Version)
	assert.Equal(t, "abc123", versionInfo.Commit)
	assert.Equal(t, "2026-08-30", versionInfo.BuildDate)
	assert.Equal(t, "1.2.0 (commit abc123, built 2026-08-30)", rootCmd.Version)
}

func TestExitError(t *testing.T) {
	underlying := errors.New("boom")
	err := exitError(3, "Something failed", underlying)

	assert.EqualError(t, err, "Something failed: boom (exit code 3)")
	assert.ErrorIs(t, err, underlying)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"coded error", exitError(3, "failed", errors.New("boom")), 3},
		{"two digit code", exitError(64, "failed", errors.New("boom")), 64},
		{"plain error", errors.New("boom"), 1},
		{"zero code falls back", exitError(0, "failed", errors.New("boom")), 1},
		{"code not at end ignored", errors.New("x (exit code 5) trailing"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitCode(tt.err))
		})
	}
}
