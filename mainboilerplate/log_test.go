package mainboilerplate

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigureSetsLevel(t *testing.T) {
	var c = LogConfig{Level: "debug", Format: "text"}
	c.Configure()
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestConfigureFallsBackOnBadLevel(t *testing.T) {
	var c = LogConfig{Level: "not-a-level", Format: "text"}
	c.Configure()
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}

func TestConfigureJSONFormatter(t *testing.T) {
	var c = LogConfig{Level: "info", Format: "json"}
	c.Configure()
	_, ok := log.StandardLogger().Formatter.(*log.JSONFormatter)
	assert.True(t, ok)
}

func TestMustDoesNotExitOnNilError(t *testing.T) {
	assert.NotPanics(t, func() { Must(nil, "unused") })
}
