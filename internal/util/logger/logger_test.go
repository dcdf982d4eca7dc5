package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)

	log := Logger("test")
	log.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "subsystem=test")
}

func TestSetOutput_ExistingLogger(t *testing.T) {
	log := Logger("test2")

	buf := &bytes.Buffer{}
	SetOutput(buf)

	log.Info("after switch", "key", "value")
	assert.Contains(t, buf.String(), "after switch")
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)

	log := Logger("test-level").With("peer", "p1")
	log.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	// 派生 Logger 同样受影响
	SetLevel("test-level", slog.LevelDebug)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "peer=p1")

	SetLevel("test-level", LevelOff)
	log.Error("silenced")
	assert.NotContains(t, buf.String(), "silenced")
}

func TestLogger_SameInstance(t *testing.T) {
	assert.Same(t, Logger("same"), Logger("same"))
}

func TestParseConfig(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:     "router=debug, transport=off ,warn,bogus=nope",
		EnvLogFormat:    "JSON",
		EnvLogAddSource: "1",
	}
	cfg := parseConfig(func(k string) string { return env[k] })

	assert.Equal(t, slog.LevelWarn, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("router"))
	assert.Equal(t, LevelOff, cfg.LevelForSubsystem("transport"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("discovery"))
	assert.NotContains(t, cfg.SubsystemLevels, "bogus")
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.AddSource)
}

func TestDiscard(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)

	Discard().Error("nothing")
	assert.Empty(t, buf.String())
}
