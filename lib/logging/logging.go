package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/config"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger is a leveled logger writing to stdout, a log file, or both
type Logger struct {
	level      LogLevel
	output     string
	logDir     string
	currentLog *os.File
	mu         sync.RWMutex
	started    time.Time
}

var (
	globalLogger *Logger
	once         sync.Once
)

// InitLogger initializes the global logger from the loaded config
func InitLogger() error {
	var err error
	once.Do(func() {
		globalLogger, err = NewLogger()
	})
	return err
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	if globalLogger == nil {
		// Fallback to a stdout logger if not initialized
		globalLogger = &Logger{level: INFO, output: "stdout", started: time.Now()}
	}
	return globalLogger
}

// NewLogger creates a new logger instance using the global config
func NewLogger() (*Logger, error) {
	logger := &Logger{
		level:   ParseLogLevel(viper.GetString("logging.level")),
		output:  viper.GetString("logging.output"),
		logDir:  config.GetPath("logs"),
		started: time.Now(),
	}

	if logger.output == "file" || logger.output == "both" {
		if err := logger.openLogFile(); err != nil {
			return nil, fmt.Errorf("failed to setup logger output: %w", err)
		}
	}

	return logger, nil
}

// openLogFile creates the dated log file under the configured log directory
func (l *Logger) openLogFile() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dateDir := l.started.Format("2006-01-02")
	timeFile := l.started.Format("15-04-05") + ".log"

	fullDir := filepath.Join(l.logDir, dateDir)
	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(fullDir, timeFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if l.currentLog != nil {
		l.currentLog.Close()
	}
	l.currentLog = file
	return nil
}

func (l *Logger) writer() io.Writer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch l.output {
	case "file":
		if l.currentLog != nil {
			return l.currentLog
		}
		return os.Stdout
	case "both":
		if l.currentLog != nil {
			return io.MultiWriter(os.Stdout, l.currentLog)
		}
		return os.Stdout
	default:
		return os.Stdout
	}
}

// log is the core logging method
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s", timestamp, level.String(), msg)
	if len(fields) > 0 {
		line += " |"
		for k, v := range fields {
			line += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	fmt.Fprintln(l.writer(), line)

	if level == FATAL {
		os.Exit(1)
	}
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs debug level messages
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DEBUG, msg, first(fields))
}

// Info logs info level messages
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(INFO, msg, first(fields))
}

// Warn logs warning level messages
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WARN, msg, first(fields))
}

// Error logs error level messages
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ERROR, msg, first(fields))
}

// Fatal logs fatal level messages and exits
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FATAL, msg, first(fields))
}

// Debugf logs debug level messages with formatting
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Infof logs info level messages with formatting
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs warning level messages with formatting
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs error level messages with formatting
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// Fatalf logs fatal level messages with formatting and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.Fatal(fmt.Sprintf(format, args...))
}

// Close closes the logger and any open files
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentLog != nil {
		return l.currentLog.Close()
	}
	return nil
}

// Global convenience functions

// Debug logs a debug message using the global logger
func Debug(msg string, fields ...map[string]interface{}) {
	GetLogger().Debug(msg, fields...)
}

// Info logs an info message using the global logger
func Info(msg string, fields ...map[string]interface{}) {
	GetLogger().Info(msg, fields...)
}

// Warn logs a warning message using the global logger
func Warn(msg string, fields ...map[string]interface{}) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message using the global logger
func Error(msg string, fields ...map[string]interface{}) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(msg string, fields ...map[string]interface{}) {
	GetLogger().Fatal(msg, fields...)
}

// Debugf logs a formatted debug message using the global logger
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Errorf logs a formatted error message using the global logger
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// Fatalf logs a formatted fatal message using the global logger and exits
func Fatalf(format string, args ...interface{}) {
	GetLogger().Fatalf(format, args...)
}
