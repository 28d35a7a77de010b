package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the time format used by every text appender.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. A zapcore.Core satisfies it, which is how the test
// observer gets attached.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes tab separated log lines to an io.Writer.
type ConsoleAppender struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStdoutAppender creates a new appender that writes to stdout.
func NewStdoutAppender() *ConsoleAppender {
	return &ConsoleAppender{writer: os.Stdout}
}

// NewWriterAppender creates a new appender that writes to the given writer.
func NewWriterAppender(writer io.Writer) *ConsoleAppender {
	return &ConsoleAppender{writer: writer}
}

// FileAppenderConfig describes a size-rotated log file.
type FileAppenderConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileAppender creates an appender that writes to a rotating log file.
func NewFileAppender(cfg FileAppenderConfig) *ConsoleAppender {
	return &ConsoleAppender{writer: &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}}
}

// Write outputs the log entry as one line.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatEntry(entry, fields)
	appender.mu.Lock()
	defer appender.mu.Unlock()
	if _, writeErr := fmt.Fprintln(appender.writer, line); writeErr != nil {
		return writeErr
	}
	return err
}

// Sync flushes the writer when it supports it.
func (appender *ConsoleAppender) Sync() error {
	appender.mu.Lock()
	defer appender.mu.Unlock()
	if syncer, ok := appender.writer.(interface{ Sync() error }); ok {
		// stdout returns EINVAL on some platforms when it is a terminal.
		if err := syncer.Sync(); err != nil && appender.writer != os.Stdout {
			return err
		}
	}
	return nil
}

// Close closes the underlying writer if it is closeable (the rotating file).
func (appender *ConsoleAppender) Close() error {
	appender.mu.Lock()
	defer appender.mu.Unlock()
	if closer, ok := appender.writer.(io.Closer); ok && appender.writer != os.Stdout {
		return closer.Close()
	}
	return nil
}

// formatEntry renders "<time>\t<LEVEL>\t<logger>\t<file:line>\t<msg>[\t<json fields>]". On an
// encoding failure the line without fields is still returned alongside the error.
func formatEntry(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	const maxLength = 10
	toPrint := make([]string, 0, maxLength)
	toPrint = append(toPrint, entry.Time.Format(DefaultTimeFormatStr))

	toPrint = append(toPrint, strings.ToUpper(entry.Level.String()))
	toPrint = append(toPrint, entry.LoggerName)
	if entry.Caller.Defined {
		toPrint = append(toPrint, callerToString(&entry.Caller))
	}
	toPrint = append(toPrint, entry.Message)
	if len(fields) == 0 {
		return strings.Join(toPrint, "\t"), nil
	}

	// zap's json encoder keeps the fields in order. Call it with an empty Entry such that only the
	// fields are encoded.
	jsonEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := jsonEncoder.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return strings.Join(toPrint, "\t"), err
	}
	defer buf.Free()
	toPrint = append(toPrint, buf.String())
	return strings.Join(toPrint, "\t"), nil
}

// callerToString returns "<dir>/<file>:<line>", e.g. "repeater/repeater.go:80".
func callerToString(caller *zapcore.EntryCaller) string {
	return caller.TrimmedPath()
}
