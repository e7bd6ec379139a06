package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"TaxSentinel/internal/config"
)

func writeMockConfig(t *testing.T, dir string) string {
	t.Helper()
	content := `
tokens:
  - id: mocktoken
    tax_rate: 0.05
    daily_roi: 0.01
    supply_value: 1000000
data_source:
  mock: true
  retries: 0
output:
  report_dir: ` + filepath.Join(dir, "reports") + `
  plot_dir: ` + filepath.Join(dir, "plots") + `
database:
  sqlite_path: ` + filepath.Join(dir, "db", "history.db") + `
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "REPORT_DIR", "SQLITE_PATH", "RUN_ON_START"} {
		t.Setenv(k, "")
	}
}

func TestRun_OnceWritesReport(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	err := run(context.Background(), []string{"-once", "-config", writeMockConfig(t, dir)}, zap.NewNop())
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "reports"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	_, err = os.Stat(filepath.Join(dir, "db", "history.db"))
	assert.NoError(t, err)
}

func TestRun_ReturnsConfigErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ecosystem: none\n"), 0o644))

	err := run(context.Background(), []string{"-once", "-config", path}, zap.NewNop())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRun_BadFlag(t *testing.T) {
	err := run(context.Background(), []string{"-nope"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRun_StopsWithContext(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, []string{"-config", writeMockConfig(t, dir)}, zap.NewNop())
	assert.NoError(t, err)
}
