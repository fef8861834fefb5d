package httpapi

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off":
		return LevelOff
	case "error":
		return LevelError
	case "info", "":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("CONVERTD_LOG_LEVEL"))

// RequestLogger logs a line per request. Job status polls are demoted to
// debug so a tight polling client does not flood the log.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if defaultLogLevel == LevelOff {
			next.ServeHTTP(w, r)
			return
		}
		sr, ok := w.(*statusRecorder)
		if !ok {
			sr = &statusRecorder{ResponseWriter: w, status: 200}
			w = sr
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)

		isPoll := r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/jobs/")
		if isPoll && defaultLogLevel < LevelDebug && sr.status < 400 {
			return
		}
		if defaultLogLevel == LevelError && sr.status < 500 {
			return
		}
		if zlog != nil {
			zlog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sr.status).
				Dur("duration", dur).
				Msg("http request")
			return
		}
		log.Printf("httpapi method=%s path=%s status=%d dur=%s", r.Method, r.URL.Path, sr.status, dur)
	})
}
