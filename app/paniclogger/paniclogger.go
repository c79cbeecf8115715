// Package paniclogger writes recovered panics to a rotating local file,
// independent of whatever the process's structured logger is configured
// to do, so a panic during throttle accounting is never lost even if
// slog output is being dropped or redirected somewhere unexpected.
package paniclogger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	panicLogFile = "panic.log"
	maxFileSize  = 50 * 1024 * 1024 // 50MB max size for panic log
)

var (
	logFile  *os.File
	fileLock sync.Mutex
	rootPath string
	initOnce sync.Once
	initErr  error
)

// Init initializes the panic logger. Should be called at process startup.
// The panic log is stored at IOTHROTTLE_ROOT_PATH/logs/panic.log.
func Init() error {
	initOnce.Do(func() {
		rootPath = os.Getenv("IOTHROTTLE_ROOT_PATH")
		if rootPath == "" {
			rootPath = "/var/lib/iothrottle"
		}

		logDir := filepath.Join(rootPath, "logs")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create logs directory: %w", err)
			return
		}

		logPath := filepath.Join(logDir, panicLogFile)
		var err error
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			initErr = fmt.Errorf("failed to open panic log file: %w", err)
			return
		}
	})
	return initErr
}

// LogPanic appends a panic event to panic.log. fields carries whatever
// throttle-domain context the caller had on hand when the panic fired
// — a tenant ID, the probe name, the op type — so a rotated entry can
// be traced back to the tenant or code path that triggered it instead
// of just a free-form context string. fields may be nil.
func LogPanic(context string, panicError any, stackTrace string, fields map[string]any) {
	fileLock.Lock()
	defer fileLock.Unlock()

	if logFile == nil {
		_, _ = fmt.Fprintf(os.Stderr, "[PANIC] Failed to write to panic.log - logging to stderr instead\n")
		_, _ = fmt.Fprintf(os.Stderr, "[PANIC] Context: %s\n", context)
		_, _ = fmt.Fprintf(os.Stderr, "[PANIC] Error: %v\n", panicError)
		if len(fields) > 0 {
			_, _ = fmt.Fprintf(os.Stderr, "[PANIC] Fields: %s\n", formatFields(fields))
		}
		_, _ = fmt.Fprintf(os.Stderr, "[PANIC] Stack trace:\n%s\n", stackTrace)
		return
	}

	if err := rotateIfNeeded(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to rotate panic log: %v\n", err)
	}

	entry := formatEntry(context, panicError, stackTrace, fields)
	if _, err := logFile.WriteString(entry); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to write panic log: %v\n", err)
	}

	_ = logFile.Sync()
}

func formatEntry(context string, panicError any, stackTrace string, fields map[string]any) string {
	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")

	var fieldsLine string
	if len(fields) > 0 {
		fieldsLine = fmt.Sprintf("Fields:    %s\n", formatFields(fields))
	}

	return fmt.Sprintf(
		"\n================================================================================\n"+
			"PANIC DETECTED\n"+
			"================================================================================\n"+
			"Timestamp: %s\n"+
			"Context:   %s\n"+
			"Error:     %v\n"+
			"%s"+
			"\nStack Trace:\n%s\n"+
			"================================================================================\n\n",
		timestamp, context, panicError, fieldsLine, stackTrace,
	)
}

// formatFields renders fields as "key=value" pairs sorted by key, so
// repeated entries for the same context are diffable in the log file.
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// rotateIfNeeded checks if the log file exceeds maxFileSize and rotates it
func rotateIfNeeded() error {
	if logFile == nil {
		return nil
	}

	stat, err := logFile.Stat()
	if err != nil {
		return err
	}

	if stat.Size() < maxFileSize {
		return nil
	}

	_ = logFile.Close()

	logDir := filepath.Join(rootPath, "logs")
	logPath := filepath.Join(logDir, panicLogFile)
	backupPath := filepath.Join(logDir, panicLogFile+".old")

	_ = os.Remove(backupPath)

	if err := os.Rename(logPath, backupPath); err != nil {
		return err
	}

	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	return err
}

// Close closes the panic log file. Should be called during application shutdown.
func Close() error {
	fileLock.Lock()
	defer fileLock.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Reset resets the panic logger state. FOR TESTING ONLY.
func Reset() {
	fileLock.Lock()
	defer fileLock.Unlock()

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = nil
	initOnce = sync.Once{}
	initErr = nil
}
