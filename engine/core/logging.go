package core

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

var singleton *log.Logger

// Logger returns the process-wide engine logger. Components derive their own
// prefixed logger from it with WithPrefix.
func Logger() *log.Logger {
	once.Do(func() {
		singleton = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "Anima 🗃️ ",
			Level:           log.InfoLevel,
		})
	})
	return singleton
}

// SetLogLevel changes the engine log level ("debug", "info", "warn", "error").
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger().SetLevel(lvl)
	return nil
}

func LogDebug(msg string, args ...interface{}) {
	Logger().Helper()
	Logger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	Logger().Helper()
	Logger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	Logger().Helper()
	Logger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	Logger().Helper()
	Logger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	Logger().Helper()
	Logger().Fatalf(msg, args...)
}
