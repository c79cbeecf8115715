package paniclogger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestEnv(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	os.Setenv("IOTHROTTLE_ROOT_PATH", tmpDir)
	t.Cleanup(func() { os.Unsetenv("IOTHROTTLE_ROOT_PATH") })
	Reset()
	return tmpDir
}

func TestInit(t *testing.T) {
	tmpDir := setupTestEnv(t)

	require.NoError(t, Init())
	defer Close()

	logsDir := filepath.Join(tmpDir, "logs")
	_, err := os.Stat(logsDir)
	assert.NoError(t, err, "logs directory was not created")

	logPath := filepath.Join(logsDir, panicLogFile)
	_, err = os.Stat(logPath)
	assert.NoError(t, err, "panic.log file was not created")
}

func TestLogPanic(t *testing.T) {
	tmpDir := setupTestEnv(t)

	require.NoError(t, Init())
	defer Close()

	LogPanic("test context", "test panic error", "test stack trace", nil)
	time.Sleep(100 * time.Millisecond)

	logPath := filepath.Join(tmpDir, "logs", panicLogFile)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	logContent := string(content)
	assert.Contains(t, logContent, "PANIC DETECTED")
	assert.Contains(t, logContent, "test context")
	assert.Contains(t, logContent, "test panic error")
	assert.Contains(t, logContent, "test stack trace")
	assert.NotContains(t, logContent, "Fields:", "no Fields line should be emitted when fields is nil")
}

func TestLogPanicWithFields(t *testing.T) {
	tmpDir := setupTestEnv(t)

	require.NoError(t, Init())
	defer Close()

	LogPanic("tenant tick", "boom", "stack", map[string]any{
		"tenant_id": uint64(7),
		"probe":     "throttle",
	})
	time.Sleep(100 * time.Millisecond)

	logPath := filepath.Join(tmpDir, "logs", panicLogFile)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	logContent := string(content)
	assert.Contains(t, logContent, "Fields:")
	assert.Contains(t, logContent, "probe=throttle")
	assert.Contains(t, logContent, "tenant_id=7")
}

func TestLogPanicWithoutInit(t *testing.T) {
	Reset()

	assert.NotPanics(t, func() {
		LogPanic("test", "error", "stack", nil)
	})
}

func TestClose(t *testing.T) {
	setupTestEnv(t)

	require.NoError(t, Init())
	assert.NoError(t, Close())
}

func TestConcurrentLogPanic(t *testing.T) {
	tmpDir := setupTestEnv(t)

	require.NoError(t, Init())
	defer Close()

	const numGoroutines = 10
	done := make(chan bool)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			LogPanic("concurrent test", "test error", "stack trace", nil)
			done <- true
		}()
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}
	time.Sleep(100 * time.Millisecond)

	logPath := filepath.Join(tmpDir, "logs", panicLogFile)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	count := strings.Count(string(content), "PANIC DETECTED")
	assert.Equal(t, numGoroutines, count)
}
