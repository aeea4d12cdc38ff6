package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"morphik-gateway-go/src/configs"

	"github.com/sirupsen/logrus"
)

// LogLevel 日志级别
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Logger 日志接口实现
type Logger struct {
	entry   *logrus.Entry
	logFile *os.File
}

// NewLogger 创建新的日志记录器
func NewLogger(config *configs.Config) (*Logger, error) {
	base := logrus.New()
	base.SetLevel(parseLogLevel(config.Log.LogLevel))
	if strings.EqualFold(config.Log.LogFormat, "json") {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	logger := &Logger{entry: logrus.NewEntry(base)}

	// 未配置日志目录时只输出到控制台
	if config.Log.LogDir == "" {
		base.SetOutput(os.Stdout)
		return logger, nil
	}

	// 确保日志目录存在
	if err := os.MkdirAll(config.Log.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %v", err)
	}

	logFile := config.Log.LogFile
	if logFile == "" {
		logFile = "server.log"
	}

	// 打开或创建日志文件
	logPath := filepath.Join(config.Log.LogDir, logFile)
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %v", err)
	}

	// 同时输出到控制台和文件
	base.SetOutput(io.MultiWriter(os.Stdout, file))
	logger.logFile = file
	return logger, nil
}

// NewDiscardLogger 丢弃所有输出的日志记录器，用于测试
func NewDiscardLogger() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{entry: logrus.NewEntry(base)}
}

// parseLogLevel 解析日志级别，无效值回退到 info
func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// IsDebug 是否开启调试级别
func (l *Logger) IsDebug() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}

// Output 返回底层输出，用于接入 gin 的访问日志
func (l *Logger) Output() io.Writer {
	return l.entry.Logger.Out
}

// log 通用日志记录函数
// fields 的第一个元素若为 map 则作为结构化字段，否则作为 fields 字段整体记录
func (l *Logger) log(level LogLevel, msg string, fields ...interface{}) {
	entry := l.entry
	if len(fields) > 0 {
		switch f := fields[0].(type) {
		case map[string]interface{}:
			entry = entry.WithFields(logrus.Fields(f))
		case error:
			entry = entry.WithError(f)
		default:
			entry = entry.WithField("fields", f)
		}
	}

	switch level {
	case DebugLevel:
		entry.Debug(msg)
	case InfoLevel:
		entry.Info(msg)
	case WarnLevel:
		entry.Warn(msg)
	case ErrorLevel:
		entry.Error(msg)
	}
}

// Debug 记录调试级别日志
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(DebugLevel, msg, fields...)
}

// Info 记录信息级别日志
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(InfoLevel, msg, fields...)
}

// Warn 记录警告级别日志
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(WarnLevel, msg, fields...)
}

// Error 记录错误级别日志
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(ErrorLevel, msg, fields...)
}

// WithTag 创建带标签的日志记录器
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{
		entry:   l.entry.WithField("tag", tag),
		logFile: l.logFile,
	}
}
