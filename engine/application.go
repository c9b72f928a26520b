package engine

import (
	"github.com/spaghettifunk/anima-assets/engine/config"
)

type ApplicationConfig struct {
	// The application name used in logs.
	Name string
	// Overrides Config.Logging.Level when set.
	LogLevel string
	// Engine configuration. config.Default() is used when nil.
	Config *config.Config
}
