package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/zxyyang/claude-auto-handoff/internal/config"
)

// isolate points HOME, the config search and the cache at a temp dir and
// resets the global flags. It returns the temp HOME.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvConfig, filepath.Join(home, "no-such-config.yaml"))
	for _, k := range []string{
		config.EnvOutput, config.EnvCacheDir, config.EnvMemoryDir,
		config.EnvLogLevel, config.EnvLogFormat, config.EnvContextWindow,
	} {
		t.Setenv(k, "")
	}
	t.Setenv(config.EnvNoVersionCheck, "true")

	cacheDirFlag = filepath.Join(home, "cache")
	output, dryRun, verbose = "", false, false
	t.Cleanup(func() {
		cacheDirFlag, output, dryRun, verbose = "", "", false, false
	})
	return home
}

func captureStdoutWithError(fn func() error) (string, error) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}
	os.Stdout = w

	runErr := fn()
	_ = w.Close()
	os.Stdout = oldStdout

	data, readErr := io.ReadAll(r)
	_ = r.Close()
	if readErr != nil {
		return "", readErr
	}
	return string(data), runErr
}
