package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"auth-failover/pkg/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus with persistent context fields
type Logger struct {
	*logrus.Logger
	fields logrus.Fields
}

// NewLogger creates a text logger at level, teeing to a rotated logFile when set
func NewLogger(level, logFile string) *Logger {
	return New(config.LoggingConfig{
		Level:      level,
		Format:     "text",
		File:       logFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
}

// New creates a logger from the logging section of the configuration
func New(cfg config.LoggingConfig) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	l := &Logger{Logger: log, fields: make(logrus.Fields)}
	l.SetFormatter(cfg.Format)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			fmt.Printf("Failed to create log directory: %v\n", err)
		} else {
			fileLogger := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize, // MB
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge, // days
				Compress:   cfg.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileLogger))
		}
	}

	return l
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log, fields: make(logrus.Fields)}
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		Logger: l.Logger,
		fields: newFields,
	}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// entry treats trailing args as format arguments when msg has verbs and as
// key/value fields otherwise.
func (l *Logger) entry(msg string, args []interface{}) (*logrus.Entry, string) {
	entry := l.Logger.WithFields(l.fields)
	if len(args) == 0 {
		return entry, msg
	}

	if !strings.Contains(msg, "%") && len(args)%2 == 0 {
		fields := make(logrus.Fields, len(args)/2)
		pairs := true
		for i := 0; i < len(args); i += 2 {
			key, ok := args[i].(string)
			if !ok {
				pairs = false
				break
			}
			fields[key] = args[i+1]
		}
		if pairs {
			return entry.WithFields(fields), msg
		}
	}

	return entry, fmt.Sprintf(msg, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Debug(text)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Info(text)
}

// Warning logs a warning message
func (l *Logger) Warning(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Warning(text)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Error(text)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Fatal(text)
}

// SecurityLogger logs rejected credentials and gated calls
func (l *Logger) SecurityLogger(event, username, details string) {
	l.WithFields(map[string]interface{}{
		"event_type": "security",
		"event":      event,
		"username":   username,
		"details":    details,
		"timestamp":  time.Now().Unix(),
	}).Warning("Security event logged")
}

// AuditLogger logs account and token events
func (l *Logger) AuditLogger(action, username, deviceID, details string) {
	l.WithFields(map[string]interface{}{
		"event_type": "audit",
		"action":     action,
		"username":   username,
		"device_id":  deviceID,
		"details":    details,
		"timestamp":  time.Now().Unix(),
	}).Info("Audit event logged")
}

// FailoverLogger logs the outcome of one attempt against an endpoint
func (l *Logger) FailoverLogger(operation, url string, attempt int, err error) {
	entry := l.WithFields(map[string]interface{}{
		"event_type": "failover",
		"operation":  operation,
		"url":        url,
		"attempt":    attempt,
	})
	if err != nil {
		entry.WithField("error", err.Error()).Warning("Attempt failed")
		return
	}
	entry.Info("Attempt succeeded")
}

// SetLogLevel dynamically sets the log level
func (l *Logger) SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.Logger.SetLevel(logLevel)
	return nil
}

// SetFormatter sets the log formatter
func (l *Logger) SetFormatter(format string) {
	switch format {
	case "json":
		l.Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		l.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
