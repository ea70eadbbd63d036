package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Info("Failed get current working directory")
		log.Fatal(err)
	}
	layout := "2006-01-02"
	env := os.Getenv("ENV")
	formatTime := time.Now().Format(layout)
	// Stdout by default; LOG_TO_FILE=true writes daily files under ./logs.
	logger.Out = os.Stdout
	if os.Getenv("LOG_TO_FILE") == "true" {
		logsDir := filepath.Join(cwd, "logs")
		if mkErr := os.MkdirAll(logsDir, 0o755); mkErr != nil {
			log.Warnf("Failed to create logs directory %s: %v, falling back to stdout", logsDir, mkErr)
		} else {
			filePath := filepath.Join(logsDir, fmt.Sprintf("%s%s.log", formatTime, env))
			f, openErr := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
			if openErr != nil {
				log.Warnf("Failed to open log file %s: %v, falling back to stdout", filePath, openErr)
			} else {
				logger.Out = f
			}
		}
	}

	Configure(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
}

// Configure sets the output format ("json" or "text") and level. Unknown
// levels keep debug.
func Configure(format, level string) {
	if strings.EqualFold(format, "text") {
		logger.Formatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		}
	} else {
		logger.Formatter = &log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		}
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
}

func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)

	functionObject := runtime.FuncForPC(function)
	entry := logger.WithFields(log.Fields{
		"requestId": time.Now().UnixNano() / int64(time.Millisecond),
		"function":  functionObject.Name(),
		"file":      file,
		"line":      line,
	})

	return entry
}
