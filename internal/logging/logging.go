// Package logging provides the structured logger shared by every component
// of the translation engine: the LLM client, the vector store, the bible
// resolver, the chapter processor and the orchestrator all log through the
// same Logger interface so a run's fields (volume_id, chapter_id, attempt,
// cached_tokens) stay consistent end to end.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

const (
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
	FATAL = "fatal"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var levelOrder = map[string]int{
	DEBUG: 0,
	INFO:  1,
	WARN:  2,
	ERROR: 3,
	FATAL: 4,
}

// Config holds configuration for the logger.
type Config struct {
	Level      string
	Format     string
	OutputFile string
}

// Logger is the logging interface used throughout the engine.
type Logger interface {
	Debug(message string, fields map[string]interface{})
	Info(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Fatal(message string, fields map[string]interface{})
}

// StandardLogger implements Logger over the stdlib log.Logger.
type StandardLogger struct {
	level  string
	format string
	logger *log.Logger
}

// New creates a logger instance from config, defaulting level to info and
// format to text.
func New(config Config) Logger {
	if config.Level == "" {
		config.Level = INFO
	}
	if config.Format == "" {
		config.Format = FormatText
	}

	output := os.Stdout
	if config.OutputFile != "" {
		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Printf("failed to open log file %s: %v, using stdout", config.OutputFile, err)
		} else {
			return &StandardLogger{
				level:  strings.ToLower(config.Level),
				format: strings.ToLower(config.Format),
				logger: log.New(file, "", 0),
			}
		}
	}

	return &StandardLogger{
		level:  strings.ToLower(config.Level),
		format: strings.ToLower(config.Format),
		logger: log.New(output, "", 0),
	}
}

func (l *StandardLogger) shouldLog(messageLevel string) bool {
	mv, ok := levelOrder[messageLevel]
	if !ok {
		return true
	}
	cv, ok := levelOrder[l.level]
	if !ok {
		cv = levelOrder[INFO]
	}
	return mv >= cv
}

func (l *StandardLogger) formatMessage(level, message string, fields map[string]interface{}) string {
	timestamp := time.Now().Format(time.RFC3339)
	if l.format == FormatJSON {
		return l.formatJSON(level, message, fields, timestamp)
	}
	return l.formatText(level, message, fields, timestamp)
}

func (l *StandardLogger) formatText(level, message string, fields map[string]interface{}, timestamp string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s: %s", timestamp, strings.ToUpper(level), message))
	if len(fields) > 0 {
		sb.WriteString(" |")
		for key, value := range fields {
			sb.WriteString(fmt.Sprintf(" %s=%v", key, value))
		}
	}
	return sb.String()
}

func (l *StandardLogger) formatJSON(level, message string, fields map[string]interface{}, timestamp string) string {
	logData := make(map[string]interface{}, len(fields)+3)
	for key, value := range fields {
		logData[key] = value
	}
	logData["timestamp"] = timestamp
	logData["level"] = level
	logData["message"] = message

	encoded, err := json.Marshal(logData)
	if err != nil {
		return fmt.Sprintf(`{"timestamp":%q,"level":%q,"message":%q,"marshal_error":%q}`, timestamp, level, message, err.Error())
	}
	return string(encoded)
}

func (l *StandardLogger) log(level, message string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}
	l.logger.Println(l.formatMessage(level, message, fields))
}

func (l *StandardLogger) Debug(message string, fields map[string]interface{}) { l.log(DEBUG, message, fields) }
func (l *StandardLogger) Info(message string, fields map[string]interface{})  { l.log(INFO, message, fields) }
func (l *StandardLogger) Warn(message string, fields map[string]interface{})  { l.log(WARN, message, fields) }
func (l *StandardLogger) Error(message string, fields map[string]interface{}) { l.log(ERROR, message, fields) }

func (l *StandardLogger) Fatal(message string, fields map[string]interface{}) {
	l.log(FATAL, message, fields)
	os.Exit(1)
}

// NoOpLogger discards everything; used in unit tests that don't want log noise.
type NoOpLogger struct{}

func NewNoOp() Logger { return &NoOpLogger{} }

func (l *NoOpLogger) Debug(string, map[string]interface{}) {}
func (l *NoOpLogger) Info(string, map[string]interface{})  {}
func (l *NoOpLogger) Warn(string, map[string]interface{})  {}
func (l *NoOpLogger) Error(string, map[string]interface{}) {}
func (l *NoOpLogger) Fatal(string, map[string]interface{}) {}
