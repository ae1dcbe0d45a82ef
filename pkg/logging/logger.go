package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// NewJSONLogger creates a logger that writes one JSON object per line
func NewJSONLogger(writer io.Writer, level Level) Logger {
	return newStreamLogger(writer, level, encodeJSON)
}

// NewTextLogger creates a logger that writes human-readable key=value lines
func NewTextLogger(writer io.Writer, level Level) Logger {
	return newStreamLogger(writer, level, encodeText)
}

// New returns a logger for the given format; unknown formats fall back to text.
func New(writer io.Writer, level Level, format Format) Logger {
	if format == FormatJSON {
		return NewJSONLogger(writer, level)
	}
	return NewTextLogger(writer, level)
}

// FromEnv builds a stderr logger from LOG_LEVEL and LOG_FORMAT.
func FromEnv() Logger {
	level := InfoLevel
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		level = ParseLevel(s)
	}
	return New(os.Stderr, level, Format(os.Getenv("LOG_FORMAT")))
}

func newStreamLogger(writer io.Writer, level Level, encode func(LogEntry) ([]byte, error)) *streamLogger {
	return &streamLogger{
		writer: writer,
		level:  &levelHolder{level: level},
		fields: make([]Field, 0),
		encode: encode,
	}
}

func encodeJSON(entry LogEntry) ([]byte, error) {
	return json.Marshal(entry)
}

func encodeText(entry LogEntry) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", entry.Time, entry.Level, entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}
	return []byte(b.String()), nil
}

// log is the internal logging method
func (l *streamLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	fieldMap := make(map[string]any, len(l.fields)+len(fields))
	for _, f := range l.fields {
		fieldMap[f.Key] = f.Value
	}
	for _, f := range fields {
		fieldMap[f.Key] = f.Value
	}

	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if len(fieldMap) > 0 {
		entry.Fields = fieldMap
	}

	data, err := l.encode(entry)
	if err != nil {
		data = []byte(fmt.Sprintf("[ERROR] failed to encode log entry: %v", err))
	}

	l.level.out.Lock()
	defer l.level.out.Unlock()
	l.writer.Write(append(data, '\n'))
}

// Debug logs a debug-level message
func (l *streamLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *streamLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *streamLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *streamLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set. The child
// shares the parent's writer and level.
func (l *streamLogger) With(fields ...Field) Logger {
	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &streamLogger{
		writer: l.writer,
		level:  l.level,
		fields: newFields,
		encode: l.encode,
	}
}

// SetLevel sets the minimum log level
func (l *streamLogger) SetLevel(level Level) {
	l.level.mu.Lock()
	defer l.level.mu.Unlock()
	l.level.level = level
}

// GetLevel returns the current log level
func (l *streamLogger) GetLevel() Level {
	l.level.mu.Lock()
	defer l.level.mu.Unlock()
	return l.level.level
}

// StartStage begins timing a pipeline stage and logs its start at debug level.
func StartStage(logger Logger, stage string, fields ...Field) *TimedOperation {
	fields = append([]Field{Stage(stage)}, fields...)
	logger.Debug("stage started", fields...)
	return &TimedOperation{
		logger: logger,
		msg:    "stage completed",
		start:  time.Now(),
		fields: fields,
	}
}

// Elapsed returns the time since the operation started.
func (t *TimedOperation) Elapsed() time.Duration {
	return time.Since(t.start)
}

// End logs the operation with its duration
func (t *TimedOperation) End(extra ...Field) time.Duration {
	elapsed := time.Since(t.start)
	fields := append(append([]Field{}, t.fields...), extra...)
	t.logger.Info(t.msg, append(fields, Latency(elapsed))...)
	return elapsed
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error) time.Duration {
	elapsed := time.Since(t.start)
	fields := append([]Field{}, t.fields...)
	t.logger.Error("stage failed", append(fields, Latency(elapsed), Error(err))...)
	return elapsed
}
