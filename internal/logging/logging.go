// Package logging provides the logging capability injected into components
// at construction time. The file-backed sink opens its handle on first write
// and flushes explicitly on shutdown, so no component ever touches a
// process-global logger.
package logging

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger is the capability handed to components that need to log.
type Logger interface {
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// FileLogger writes timestamped lines to a log file. The file is opened
// lazily on the first write; Flush and Close are explicit.
type FileLogger struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
	l    *log.Logger
	err  error // sticky open failure
}

// NewFileLogger creates a logger that will append to the file at path.
func NewFileLogger(path string) *FileLogger {
	return &FileLogger{path: path}
}

func (fl *FileLogger) open() error {
	if fl.l != nil || fl.err != nil {
		return fl.err
	}
	if err := os.MkdirAll(filepath.Dir(fl.path), 0o750); err != nil {
		fl.err = fmt.Errorf("create log directory: %w", err)
		return fl.err
	}
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		fl.err = fmt.Errorf("open log file: %w", err)
		return fl.err
	}
	fl.f = f
	fl.w = bufio.NewWriter(f)
	fl.l = log.New(fl.w, "", log.LstdFlags)
	return nil
}

func (fl *FileLogger) write(level, format string, args ...any) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if err := fl.open(); err != nil {
		// Last resort so the message is not lost entirely.
		log.Printf("[%s] "+format, append([]any{level}, args...)...)
		return
	}
	fl.l.Printf("[%s] "+format, append([]any{level}, args...)...)
}

func (fl *FileLogger) Info(format string, args ...any) {
	fl.write("INFO", format, args...)
}

func (fl *FileLogger) Error(format string, args ...any) {
	fl.write("ERROR", format, args...)
}

// Flush forces buffered log lines to disk.
func (fl *FileLogger) Flush() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.w == nil {
		return nil
	}
	return fl.w.Flush()
}

// Close flushes and releases the file handle.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.f == nil {
		return nil
	}
	if err := fl.w.Flush(); err != nil {
		fl.f.Close()
		return err
	}
	err := fl.f.Close()
	fl.f = nil
	fl.w = nil
	fl.l = nil
	return err
}

// StderrLogger logs to standard error, for development and tests.
type StderrLogger struct {
	l *log.Logger
}

func NewStderrLogger() *StderrLogger {
	return &StderrLogger{l: log.New(os.Stderr, "", log.LstdFlags)}
}

func (sl *StderrLogger) Info(format string, args ...any) {
	sl.l.Printf("[INFO] "+format, args...)
}

func (sl *StderrLogger) Error(format string, args ...any) {
	sl.l.Printf("[ERROR] "+format, args...)
}

// Discard is a Logger that drops everything.
type Discard struct{}

func (Discard) Info(string, ...any)  {}
func (Discard) Error(string, ...any) {}
