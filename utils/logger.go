package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

var (
	InfoLogger  *log.Logger
	ErrorLogger *log.Logger
	DebugLogger *log.Logger
)

func init() {
	logDir := os.Getenv("PAT_LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	InfoLogger = log.New(openLogFile(logDir, "info.log"), "INFO: ", log.Ldate|log.Ltime)
	ErrorLogger = log.New(openLogFile(logDir, "error.log"), "ERROR: ", log.Ldate|log.Ltime)
	DebugLogger = log.New(openLogFile(logDir, "debug.log"), "DEBUG: ", log.Ldate|log.Ltime)
}

// openLogFile opens an append-only log file, falling back to stderr when the
// directory cannot be used (read-only containers, tests).
func openLogFile(dir, name string) io.Writer {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stderr
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return os.Stderr
	}
	return f
}

// LogInfo logs an informational message with its call site.
func LogInfo(format string, v ...interface{}) {
	_, file, line, _ := runtime.Caller(1)
	InfoLogger.Printf("%s:%d - %s", filepath.Base(file), line, fmt.Sprintf(format, v...))
}

// LogError logs an error message with its call site.
func LogError(format string, v ...interface{}) {
	_, file, line, _ := runtime.Caller(1)
	ErrorLogger.Printf("%s:%d - %s", filepath.Base(file), line, fmt.Sprintf(format, v...))
}

// LogDebug logs a debug message with its call site.
func LogDebug(format string, v ...interface{}) {
	_, file, line, _ := runtime.Caller(1)
	DebugLogger.Printf("%s:%d - %s", filepath.Base(file), line, fmt.Sprintf(format, v...))
}

// LogOperation logs the outcome and duration of a named operation.
func LogOperation(operation string, startTime time.Time, err error) {
	duration := time.Since(startTime)
	if err != nil {
		LogError("Operation %s failed after %v: %v", operation, duration, err)
	} else {
		LogInfo("Operation %s completed in %v", operation, duration)
	}
}
