package logger

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string
	Format string
	File   string
}

// New builds the process logger. With File set, output goes to stdout and to
// a size-rotated file.
func New(opts Options) *logrus.Logger {
	l := logrus.New()
	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	var out io.Writer = os.Stdout
	if f := strings.TrimSpace(opts.File); f != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   f,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	}
	l.SetOutput(out)
	return l
}

func LogError(logger logrus.FieldLogger, module, funcName string, err error, data any) {
	fields := logrus.Fields{
		"module":   module,
		"funcName": funcName,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}

// Requests logs one line per request through logger. It stands in for chi's
// middleware.Logger.
func Requests(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.WithFields(logrus.Fields{
					"requestId": middleware.GetReqID(r.Context()),
					"method":    r.Method,
					"path":      r.URL.Path,
					"status":    ww.Status(),
					"bytes":     ww.BytesWritten(),
					"duration":  time.Since(start).String(),
				}).Info("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
