package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes console formatted lines to a size rotated file.
type FileAppender struct {
	out *lumberjack.Logger
}

// NewFileAppender appends to filename, rotating it at maxSizeMB and keeping two old files.
func NewFileAppender(filename string, maxSizeMB int) *FileAppender {
	return &FileAppender{out: &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: 2,
		Compress:   true,
	}}
}

// Write implements Appender.
func (fa *FileAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatEntry(entry, fields)
	if _, writeErr := fmt.Fprintln(fa.out, line); writeErr != nil {
		return writeErr
	}
	return err
}

// Sync is a no-op; lines are written unbuffered.
func (fa *FileAppender) Sync() error {
	return nil
}

// Close closes the current file.
func (fa *FileAppender) Close() error {
	return fa.out.Close()
}
