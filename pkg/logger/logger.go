package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents log severity level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts string to Level
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Fields represents additional structured fields for logging
type Fields map[string]interface{}

// Logger provides structured logging with context propagation
type Logger struct {
	level         Level
	output        io.Writer
	formatJSON    bool
	enableTracing bool
	mu            sync.Mutex
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	RunID     string                 `json:"run_id,omitempty"`
	Component string                 `json:"component,omitempty"`
	Event     string                 `json:"event,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Duration  int64                  `json:"duration,omitempty"`
	Error     *ErrorInfo             `json:"error,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// ErrorInfo contains detailed error information
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// New creates a new Logger instance
func New(level string, format string, output string, enableTracing bool) (*Logger, error) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = file
	}

	return &Logger{
		level:         ParseLevel(level),
		output:        out,
		formatJSON:    format == "json",
		enableTracing: enableTracing,
	}, nil
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *Logger {
	return &Logger{level: FatalLevel, output: io.Discard}
}

// WithContext creates a new logger with context values
func (l *Logger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger: l,
		ctx:    ctx,
	}
}

// log writes a log entry
func (l *Logger) log(level Level, msg string, fields Fields) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
		Fields:    fields,
	}

	// Add caller information
	if l.enableTracing {
		if _, file, line, ok := runtime.Caller(3); ok {
			entry.Caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.formatJSON {
		data, _ := json.Marshal(entry)
		fmt.Fprintln(l.output, string(data))
	} else {
		fmt.Fprintf(l.output, "[%s] %s %s\n", entry.Timestamp, entry.Level, entry.Message)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(DebugLevel, msg, mergeFields(fields...))
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(InfoLevel, msg, mergeFields(fields...))
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(WarnLevel, msg, mergeFields(fields...))
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(ErrorLevel, msg, mergeFields(fields...))
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.log(FatalLevel, msg, mergeFields(fields...))
	os.Exit(1)
}

// ContextLogger wraps Logger with context information
type ContextLogger struct {
	logger    *Logger
	ctx       context.Context
	runID     string
	component string
}

// WithRunID adds the export run ID to the context logger
func (cl *ContextLogger) WithRunID(runID string) *ContextLogger {
	cl.runID = runID
	return cl
}

// WithComponent adds component name to the context logger
func (cl *ContextLogger) WithComponent(component string) *ContextLogger {
	cl.component = component
	return cl
}

// log writes a contextualized log entry
func (cl *ContextLogger) log(level Level, event string, msg string, fields Fields, duration int64, err *ErrorInfo) {
	if level < cl.logger.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level.String(),
		RunID:     cl.runID,
		Component: cl.component,
		Event:     event,
		Message:   msg,
		Fields:    fields,
		Duration:  duration,
		Error:     err,
	}

	// Add caller information
	if cl.logger.enableTracing {
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	cl.logger.mu.Lock()
	defer cl.logger.mu.Unlock()

	if cl.logger.formatJSON {
		data, _ := json.Marshal(entry)
		fmt.Fprintln(cl.logger.output, string(data))
	} else {
		msg := fmt.Sprintf("[%s] %s [%s] %s", entry.Timestamp, entry.Level, event, entry.Message)
		if cl.runID != "" {
			msg = fmt.Sprintf("%s runID=%s", msg, cl.runID)
		}
		fmt.Fprintln(cl.logger.output, msg)
	}
}

// LogRunStarted logs the start of an export run
func (cl *ContextLogger) LogRunStarted(msg string, fields Fields) {
	cl.log(InfoLevel, "RunStarted", msg, fields, 0, nil)
}

// LogRunFinalized logs the terminal status of an export run
func (cl *ContextLogger) LogRunFinalized(msg string, duration int64, fields Fields) {
	cl.log(InfoLevel, "RunFinalized", msg, fields, duration, nil)
}

// LogRunFailed logs a whole-run failure
func (cl *ContextLogger) LogRunFailed(msg string, errorCode string, errorMsg string, fields Fields) {
	cl.log(ErrorLevel, "RunFailed", msg, fields, 0, &ErrorInfo{
		Code:    errorCode,
		Message: errorMsg,
	})
}

// LogItemSkipped logs a recoverable per-item fetch failure
func (cl *ContextLogger) LogItemSkipped(msg string, fields Fields) {
	cl.log(WarnLevel, "ItemSkipped", msg, fields, 0, nil)
}

// LogItemProcessed logs a processed item at debug level
func (cl *ContextLogger) LogItemProcessed(msg string, fields Fields) {
	cl.log(DebugLevel, "ItemProcessed", msg, fields, 0, nil)
}

// LogFileCreated logs file creation
func (cl *ContextLogger) LogFileCreated(msg string, fields Fields) {
	cl.log(InfoLevel, "FileCreated", msg, fields, 0, nil)
}

// LogFileFinalized logs file finalization
func (cl *ContextLogger) LogFileFinalized(msg string, duration int64, fields Fields) {
	cl.log(InfoLevel, "FileFinalized", msg, fields, duration, nil)
}

// LogUploadStarted logs OSS upload start
func (cl *ContextLogger) LogUploadStarted(msg string, fields Fields) {
	cl.log(InfoLevel, "UploadStarted", msg, fields, 0, nil)
}

// LogUploadCompleted logs OSS upload completion
func (cl *ContextLogger) LogUploadCompleted(msg string, duration int64, fields Fields) {
	cl.log(InfoLevel, "UploadCompleted", msg, fields, duration, nil)
}

// LogUploadFailed logs OSS upload failure
func (cl *ContextLogger) LogUploadFailed(msg string, errorCode string, errorMsg string, fields Fields) {
	cl.log(ErrorLevel, "UploadFailed", msg, fields, 0, &ErrorInfo{
		Code:    errorCode,
		Message: errorMsg,
	})
}

// LogError logs a generic error
func (cl *ContextLogger) LogError(event string, msg string, errorCode string, errorMsg string, fields Fields) {
	cl.log(ErrorLevel, event, msg, fields, 0, &ErrorInfo{
		Code:    errorCode,
		Message: errorMsg,
	})
}

// LogInfo logs a generic info message
func (cl *ContextLogger) LogInfo(event string, msg string, fields Fields) {
	cl.log(InfoLevel, event, msg, fields, 0, nil)
}

// LogDebug logs a generic debug message
func (cl *ContextLogger) LogDebug(event string, msg string, fields Fields) {
	cl.log(DebugLevel, event, msg, fields, 0, nil)
}

// LogWarn logs a generic warning message
func (cl *ContextLogger) LogWarn(event string, msg string, fields Fields) {
	cl.log(WarnLevel, event, msg, fields, 0, nil)
}

// mergeFields merges multiple Fields into one
func mergeFields(fields ...Fields) Fields {
	result := Fields{}
	for _, f := range fields {
		for k, v := range f {
			result[k] = v
		}
	}
	return result
}
