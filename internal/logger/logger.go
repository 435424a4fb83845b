package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents log severity
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level. Unknown values mean INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand for creating a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err is a shorthand for an "error" field
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Config holds logger configuration
type Config struct {
	Level      Level     // Minimum log level
	FilePath   string    // Path to log file, empty disables file output
	MaxSize    int64     // Max size in bytes before rotation
	MaxAge     int       // Max age in days
	MaxBackups int       // Max number of rotated files kept
	Console    bool      // Also write to stderr
	Output     io.Writer // Extra sink, used by tests
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".secureplan", "logs", "secureplan.log")
	}

	return Config{
		Level:      INFO,
		FilePath:   logPath,
		MaxSize:    10 * 1024 * 1024, // 10MB
		MaxAge:     7,
		MaxBackups: 5,
		Console:    false,
	}
}

// Logger writes leveled, line-oriented entries to a rotating file and optional sinks
type Logger struct {
	config Config
	fields []Field
	out    *output
}

// output is shared between a logger and the children made by WithFields
type output struct {
	mu      sync.Mutex
	file    *os.File
	writers []io.Writer
	now     func() time.Time
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// Init installs the global logger. A second call replaces the first one.
func Init(config Config) error {
	l, err := New(config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	old := globalLogger
	globalLogger = l
	globalMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

func global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// New creates a new logger instance
func New(config Config) (*Logger, error) {
	l := &Logger{
		config: config,
		out:    &output{now: time.Now},
	}

	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		if err := l.out.open(config.FilePath); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		if err := l.rotateIfNeeded(); err != nil {
			return nil, err
		}
	}
	l.out.writers = l.sinks()

	return l, nil
}

func (o *output) open(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	o.file = file
	return nil
}

func (l *Logger) sinks() []io.Writer {
	var writers []io.Writer
	if l.out.file != nil {
		writers = append(writers, l.out.file)
	}
	if l.config.Console {
		writers = append(writers, os.Stderr)
	}
	if l.config.Output != nil {
		writers = append(writers, l.config.Output)
	}
	return writers
}

// rotateIfNeeded must be called with out.mu held or before the logger is shared
func (l *Logger) rotateIfNeeded() error {
	if l.out.file == nil {
		return nil
	}

	info, err := l.out.file.Stat()
	if err != nil {
		return err
	}
	if l.config.MaxSize > 0 && info.Size() >= l.config.MaxSize {
		return l.rotate()
	}
	if l.config.MaxAge > 0 && info.Size() > 0 &&
		l.out.now().Sub(info.ModTime()) > time.Duration(l.config.MaxAge)*24*time.Hour {
		return l.rotate()
	}
	return nil
}

// rotate shifts file.N to file.N+1, moves the live file to file.1 and reopens it
func (l *Logger) rotate() error {
	if l.out.file != nil {
		l.out.file.Close()
	}

	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", l.config.FilePath, i), fmt.Sprintf("%s.%d", l.config.FilePath, i+1))
	}
	if _, err := os.Stat(l.config.FilePath); err == nil {
		if err := os.Rename(l.config.FilePath, l.config.FilePath+".1"); err != nil {
			return err
		}
	}

	if err := l.out.open(l.config.FilePath); err != nil {
		return err
	}
	l.out.writers = l.sinks()
	return nil
}

// format renders one entry without the trailing newline
func format(ts time.Time, level Level, caller, msg string, fields []Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s: %s", ts.Format("2006-01-02 15:04:05.000"), level, caller, msg)
	if len(fields) > 0 {
		b.WriteString(" |")
		for _, f := range fields {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
	}
	return b.String()
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	if level < l.config.Level {
		return
	}

	_, file, line, ok := runtime.Caller(3)
	caller := "???"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	l.rotateIfNeeded()
	entry := format(l.out.now(), level, caller, msg, all) + "\n"
	for _, w := range l.out.writers {
		w.Write([]byte(entry))
	}
}

// WithFields creates a child logger with preset fields sharing the same outputs
func (l *Logger) WithFields(fields ...Field) *Logger {
	preset := make([]Field, 0, len(l.fields)+len(fields))
	preset = append(preset, l.fields...)
	preset = append(preset, fields...)
	return &Logger{config: l.config, fields: preset, out: l.out}
}

// emit is the single entry point for every public logging call so the
// caller is always three frames up.
func (l *Logger) emit(level Level, msg string, fields []Field) {
	l.log(level, msg, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Field) {
	l.emit(DEBUG, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Field) {
	l.emit(INFO, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Field) {
	l.emit(WARN, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...Field) {
	l.emit(ERROR, msg, fields)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.file != nil {
		err := l.out.file.Close()
		l.out.file = nil
		l.out.writers = l.sinks()
		return err
	}
	return nil
}

// Global logger functions. They do nothing until Init is called.

// Debug logs a debug message using the global logger
func Debug(msg string, fields ...Field) {
	if l := global(); l != nil {
		l.emit(DEBUG, msg, fields)
	}
}

// Info logs an info message using the global logger
func Info(msg string, fields ...Field) {
	if l := global(); l != nil {
		l.emit(INFO, msg, fields)
	}
}

// Warn logs a warning message using the global logger
func Warn(msg string, fields ...Field) {
	if l := global(); l != nil {
		l.emit(WARN, msg, fields)
	}
}

// Error logs an error message using the global logger
func Error(msg string, fields ...Field) {
	if l := global(); l != nil {
		l.emit(ERROR, msg, fields)
	}
}

// WithFields creates a child of the global logger, nil before Init
func WithFields(fields ...Field) *Logger {
	if l := global(); l != nil {
		return l.WithFields(fields...)
	}
	return nil
}

// Close closes the global logger
func Close() error {
	if l := global(); l != nil {
		return l.Close()
	}
	return nil
}

// GetConfig returns the current logger configuration
func GetConfig() Config {
	if l := global(); l != nil {
		return l.config
	}
	return DefaultConfig()
}
