package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"transcode-orchestrator/pkg/config"
)

// Logger 封装logrus，统一日志出口
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var globalLogger *Logger

// NewLogger 根据配置创建日志服务
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.ToLower(cfg.Log.Format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	logger := &Logger{entry: l}

	switch strings.ToLower(cfg.Log.Output) {
	case "file":
		if f := openLogFile(cfg.Log.Filename); f != nil {
			logger.file = f
			l.SetOutput(f)
		}
	case "both":
		if f := openLogFile(cfg.Log.Filename); f != nil {
			logger.file = f
			l.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	default:
		l.SetOutput(os.Stdout)
	}

	return logger
}

func openLogFile(filename string) *os.File {
	if filename == "" {
		filename = "logs/transcode-orchestrator.log"
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	return f
}

// Close 关闭日志文件句柄
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

// SetGlobalLogger 设置全局日志器
func SetGlobalLogger(l *Logger) {
	globalLogger = l
}

func std() *logrus.Logger {
	if globalLogger != nil {
		return globalLogger.entry
	}
	return logrus.StandardLogger()
}

// Debug 带字段的调试日志
func Debug(msg string, fields map[string]interface{}) {
	std().WithFields(fields).Debug(msg)
}

// Info 带字段的信息日志
func Info(msg string, fields map[string]interface{}) {
	std().WithFields(fields).Info(msg)
}

// Warn 带字段的警告日志
func Warn(msg string, fields map[string]interface{}) {
	std().WithFields(fields).Warn(msg)
}

// Error 带字段的错误日志
func Error(msg string, fields map[string]interface{}) {
	std().WithFields(fields).Error(msg)
}

func Debugf(format string, args ...interface{}) { std().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { std().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { std().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { std().Errorf(format, args...) }

// Fatal 致命错误，打印后退出
func Fatal(msg string) {
	std().Fatal(msg)
}
