// Package mainboilerplate collects the small bits of config, logging, and
// CLI scaffolding that every rapid command-line tool needs, mirroring
// go.gazette.dev/core/mainboilerplate as used by
// examples/word-count/wordcountctl/main.go (mbp.AddressConfig,
// mbp.LogConfig, mbp.Must, mbp.MustParseArgs).
package mainboilerplate

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// LogConfig configures process-wide logging, the rapid analogue of the
// teacher's mbp.LogConfig.
type LogConfig struct {
	Level  string `long:"level" env:"LEVEL" default:"info" description:"Logging level: debug, info, warn, error"`
	Format string `long:"format" env:"FORMAT" default:"text" description:"Logging format: text, json"`
}

// Configure installs the LogConfig's level and formatter onto the
// standard logrus logger.
func (c LogConfig) Configure() {
	var level, err = log.ParseLevel(c.Level)
	if err != nil {
		log.WithField("level", c.Level).Warn("unrecognized log level, defaulting to info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{})
	}
}

// Must logs |message| and exits the process with status 1 if err is
// non-nil, matching the teacher's mbp.Must fail-fast idiom used throughout
// examples/word-count/wordcountctl/main.go.
func Must(err error, message string, args ...interface{}) {
	if err == nil {
		return
	}
	var fields = log.Fields{"err": err}
	log.WithFields(fields).Errorf(message, args...)
	os.Exit(1)
}
