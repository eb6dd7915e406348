package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	appLogger     *logrus.Logger
	appLoggerOnce sync.Once
)

// LogConfig holds log output settings
type LogConfig struct {
	BaseDir    string `json:"base_dir"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
	Compress   bool   `json:"compress"`
	Level      string `json:"level"`
	Format     string `json:"format"` // json, text
}

// DefaultLogConfig returns the default log settings
func DefaultLogConfig() LogConfig {
	return LogConfig{
		BaseDir:    "./logs",
		MaxSize:    100,
		MaxBackups: 30,
		MaxAge:     90,
		Compress:   true,
		Level:      "info",
		Format:     "json",
	}
}

// GetLogger returns the singleton logrus.Logger
func GetLogger() *logrus.Logger {
	appLoggerOnce.Do(func() {
		config := DefaultLogConfig()

		if format := os.Getenv("LOG_FORMAT"); format != "" {
			config.Format = format
		}
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			config.Level = level
		}
		if dir := os.Getenv("LOG_DIR"); dir != "" {
			config.BaseDir = dir
		}

		appLogger = initLoggerWithConfig(config)
	})
	return appLogger
}

func initLoggerWithConfig(config LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch config.Format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	if config.BaseDir != "" {
		setupLogFile(log, config)
	} else {
		log.SetOutput(os.Stdout)
	}

	return log
}

func setupLogFile(log *logrus.Logger, config LogConfig) {
	logDir := filepath.Join(config.BaseDir, time.Now().Format("2006/01"))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.WithError(err).Error("Failed to create log directory")
		log.SetOutput(os.Stdout)
		return
	}

	lumber := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "settlement.log"),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}
	log.SetOutput(io.MultiWriter(lumber, os.Stdout))
}

// LoggingMiddleware logs every request/response pair with a request id
func LoggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()
		res := c.Response()
		log := GetLogger()

		requestID := generateRequestID()
		c.Set("request_id", requestID)

		err := next(c)
		duration := time.Since(start)

		logFields := logrus.Fields{
			"request_id":  requestID,
			"method":      req.Method,
			"path":        req.URL.Path,
			"status":      res.Status,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": req.RemoteAddr,
		}

		switch {
		case res.Status >= 500:
			log.WithFields(logFields).Error("Request completed")
		case res.Status >= 400:
			log.WithFields(logFields).Warn("Request completed")
		default:
			log.WithFields(logFields).Info("Request completed")
		}

		if err != nil {
			log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Request error occurred")
		}

		return err
	}
}

func generateRequestID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// RequestLogger returns a per-request log entry
func RequestLogger(c echo.Context) *logrus.Entry {
	log := GetLogger()
	requestID, ok := c.Get("request_id").(string)
	if !ok {
		requestID = "unknown"
	}

	return log.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     c.Request().Method,
		"path":       c.Request().URL.Path,
	})
}

// InitGlobalLogger aligns the global logrus instance with the app logger
func InitGlobalLogger() {
	appLogger := GetLogger()
	logrus.SetFormatter(appLogger.Formatter)
	logrus.SetOutput(appLogger.Out)
	logrus.SetLevel(appLogger.Level)
}
