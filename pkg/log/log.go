package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

const (
	RequestIDKey = "request_id"
	CycleIDKey   = "cycle_id"
)

type Fields = logrus.Fields

func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()

		level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
		if err != nil {
			level = logrus.DebugLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        false,
			TimestampFormat: "02 Jan 06 - 15:04",
			HideKeys:        false,
			CallerFirst:     true,
			FieldsOrder:     []string{RequestIDKey, CycleIDKey},
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}

		if os.Getenv("APP_ENV") != "test" {
			dir := os.Getenv("LOG_DIR")
			if dir == "" {
				dir = "./storage/logs"
			}

			writers = append(writers, &lumberjack.Logger{
				Filename:   path.Join(dir, fmt.Sprintf("facecam-%s.log", time.Now().Format("2006-01-02"))),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

func Info(fields Fields, msg string) {
	NewLogger().WithFields(orEmpty(fields)).Info(msg)
}

func Warn(fields Fields, msg string) {
	NewLogger().WithFields(orEmpty(fields)).Warn(msg)
}

func Error(fields Fields, msg string) {
	NewLogger().WithFields(orEmpty(fields)).Error(msg)
}

// ErrorWithTraceID logs msg and returns the id a client can quote back.
func ErrorWithTraceID(fields Fields, msg string) string {
	fields = orEmpty(fields)

	var traceID string
	if reqID, ok := fields[RequestIDKey].(string); ok && reqID != "" && reqID != "unknown" {
		traceID = reqID
	} else {
		id, err := uuid.NewRandom()
		if err != nil {
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}

	fields["trace_id"] = traceID
	NewLogger().WithFields(fields).Error(msg)

	return traceID
}

// WithRequestID returns an entry carrying the request id stored in ctx.
func WithRequestID(ctx context.Context) *logrus.Entry {
	requestID := "unknown"
	if ctx != nil {
		if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
			requestID = id
		}
	}

	return NewLogger().WithField(RequestIDKey, requestID)
}

func orEmpty(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}
	return fields
}
