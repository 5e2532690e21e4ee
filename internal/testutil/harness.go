package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quazardous/qdadm-go/internal/app"
)

// HarnessResult holds the outcomes of one app-level test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// RunAppTest is the standard harness for app-level tests with a default
// background context.
func RunAppTest(t *testing.T, files map[string]string, cfg *app.Config, modules ...any) *HarnessResult {
	t.Helper()
	return RunAppTestWithContext(context.Background(), t, files, cfg, modules...)
}

// RunAppTestWithContext writes the given profile files into a temporary
// directory, assembles an App over them, runs it, and captures everything
// it wrote. A startup panic is recovered into the result error. Relative
// file names may contain subdirectories.
func RunAppTestWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg *app.Config, modules ...any) *HarnessResult {
	t.Helper()

	if cfg == nil {
		cfg = &app.Config{}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if len(files) > 0 && cfg.ProfilePath == "" {
		tmpDir := t.TempDir()
		for name, content := range files {
			path := filepath.Join(tmpDir, name)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		}
		cfg.ProfilePath = tmpDir
	}

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, cfg, modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked: %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("QDADM_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}

// AssertModuleLoaded checks the captured logs for the loader's connect
// line. The run shuts the kernel down again before returning, so the log
// is the durable record of what loaded.
func AssertModuleLoaded(t *testing.T, result *HarnessResult, name string) {
	t.Helper()

	expected := fmt.Sprintf("msg=\"Module connected.\" module=%s", name)
	require.True(t, strings.Contains(result.LogOutput, expected),
		"expected module %q to connect, log line %q not found", name, expected)
}
