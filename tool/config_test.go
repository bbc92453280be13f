package tool

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/gcomserver-go/types"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseFlagValue(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"1":     true,
		"7":     true,
		"-1":    true,
		"true":  true,
		"FALSE": false,
		" 1 ":   true,
	}
	for in, want := range cases {
		got, err := ParseFlagValue(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFlagValue("maybe")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]types.LogLevel{
		"none": types.LogNone,
		"0":    types.LogNone,
		"low":  types.LogLow,
		"prod": types.LogLow,
		"HIGH": types.LogHigh,
		"dev":  types.LogHigh,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyEnv(&cfg, envFrom(map[string]string{
		EnvKeepFiles:  "1",
		EnvLogLevel:   "high",
		EnvStagingDir: "/var/tmp/gcom",
		EnvListen:     "127.0.0.1:3000",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.KeepFiles)
	assert.Equal(t, types.LogHigh, cfg.LogLevel)
	assert.Equal(t, "/var/tmp/gcom", cfg.StagingDir)
	assert.Equal(t, "127.0.0.1:3000", cfg.Listen)
}

func TestApplyEnvAcceptRateAndNotifySocket(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(&cfg, envFrom(map[string]string{
		EnvAcceptRate:   "0",
		EnvNotifySocket: "/run/gcom.sock",
	})))
	assert.Equal(t, 0, cfg.AcceptRate)
	assert.Equal(t, "/run/gcom.sock", cfg.NotifySocket)

	assert.Error(t, ApplyEnv(&cfg, envFrom(map[string]string{EnvAcceptRate: "-3"})))
}

func TestApplyEnvEmptyStagingDirKeepsDefault(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(&cfg, envFrom(map[string]string{EnvStagingDir: ""})))
	assert.Equal(t, os.TempDir(), cfg.StagingDir)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, ApplyEnv(&cfg, envFrom(map[string]string{EnvKeepFiles: "yes please"})))
	assert.Error(t, ApplyEnv(&cfg, envFrom(map[string]string{EnvLogLevel: "verbose"})))
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvKeepFiles, "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":2001", cfg.Listen)
	assert.False(t, cfg.KeepFiles)
	assert.Equal(t, types.LogLow, cfg.LogLevel)
}

func TestLoadConfigFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("listen: \":4000\"\nkeepFiles: true\noutputDir: /srv/scans\n"), 0o644))
	t.Setenv(EnvOutputDir, "/data/scans")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Listen)
	assert.True(t, cfg.KeepFiles)
	assert.Equal(t, "/data/scans", cfg.OutputDir)
	assert.Equal(t, 8, cfg.MaxConnections)
}

func TestLoadConfigRejectsDirectory(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestApplyFlagsWin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Listen = ":4000"
	require.NoError(t, ApplyFlags(&cfg, types.Config{
		Log:            "dev",
		UseListen:      ":5000",
		UseKeepFiles:   true,
		MaxConnections: 2,
	}))
	assert.Equal(t, ":5000", cfg.Listen)
	assert.Equal(t, types.LogHigh, cfg.LogLevel)
	assert.True(t, cfg.KeepFiles)
	assert.Equal(t, 2, cfg.MaxConnections)

	assert.Equal(t, 10, cfg.AcceptRate, "unset rate flag keeps the configured value")

	assert.Error(t, ApplyFlags(&cfg, types.Config{Log: "chatty"}))
}

func TestFlagsSetAcceptRateAndNotifySocket(t *testing.T) {
	fs := flag.NewFlagSet("gcomserver", flag.ContinueOnError)
	flags := SetFlagsFrom(fs, []string{"-useAcceptRate", "0", "-useNotifySocket", "/tmp/n.sock", "a.acr"})
	assert.Equal(t, []string{"a.acr"}, flags.SendFiles)

	cfg := DefaultConfig()
	cfg.NotifySocket = "/run/from-file.sock"
	require.NoError(t, ApplyFlags(&cfg, flags))
	assert.Equal(t, 0, cfg.AcceptRate)
	assert.Equal(t, "/tmp/n.sock", cfg.NotifySocket)

	assert.Error(t, ApplyFlags(&cfg, types.Config{UseAcceptRate: "fast"}))
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := DefaultConfig()
	cfg.OutputDir = "/srv/out"
	require.NoError(t, WriteConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/out", loaded.OutputDir)
}

func TestExitStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{nil, ExitSuccess, "Finished transfer."},
		{types.ErrEndOfInput, ExitSuccess, "Finished transfer."},
		{fmt.Errorf("bad tag: %w", types.ErrProtocol), ExitProtocolError, "Protocol error. Disconnecting."},
		{fmt.Errorf("%w: short read", types.ErrIO), ExitIOError, "I/O error. Disconnecting."},
		{errors.New("boom"), ExitUnknownError, "Unknown error. Disconnecting."},
	}
	for _, c := range cases {
		code, msg := ExitStatus(c.err)
		assert.Equal(t, c.code, code, "%v", c.err)
		assert.Equal(t, c.msg, msg)
	}
}

func TestSanitizeAndNextAvailablePath(t *testing.T) {
	assert.Equal(t, "unknown", SanitizeName("  "))
	assert.Equal(t, "DOE_JOHN", SanitizeName("DOE^JOHN"))

	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "1_4_r0_t0.acr"), NextAvailablePath(dir, "1_4_r0_t0.acr"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_4_r0_t0.acr"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "1_4_r0_t0-2.acr"), NextAvailablePath(dir, "1_4_r0_t0.acr"))
}

func TestReadObjectFileLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obj")
	require.NoError(t, os.WriteFile(path, make([]byte, 32), 0o644))

	data, err := ReadObjectFile(path, 64)
	require.NoError(t, err)
	assert.Len(t, data, 32)

	_, err = ReadObjectFile(path, 16)
	assert.Error(t, err)
	_, err = ReadObjectFile(filepath.Dir(path), 0)
	assert.Error(t, err)
}

func TestCopyFileStopsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	n, err := CopyFile(context.Background(), filepath.Join(dir, "dst"), src)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	_, err = CopyFile(context.Background(), filepath.Join(dir, "dst"), src)
	assert.Error(t, err, "existing destination is never overwritten")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CopyFile(ctx, filepath.Join(dir, "other"), src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "other"))
}
