package observability

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/verity-cli/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

// resetGlobalLogger restores singleton state between tests.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

func TestInitializeConsoleLogger(t *testing.T) {
	resetGlobalLogger()
	defer resetGlobalLogger()

	buf := &syncBuffer{}
	cfg := config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "verity-test",
		Colors:      config.ColorConfig{Info: "green"},
	}
	Initialize(cfg, zapcore.Lock(buf))

	GetLogger().Info("suite started")

	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "suite started")
	assert.Contains(t, output, "verity-test.")
	assert.Contains(t, output, colorGreen, "info level should be colorized green")
	assert.Contains(t, output, colorReset)
}

func TestInitializeJSONLogger(t *testing.T) {
	resetGlobalLogger()
	defer resetGlobalLogger()

	buf := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "verity-test"}, zapcore.Lock(buf))

	GetLogger().Info("case passed")

	output := buf.String()
	assert.Contains(t, output, `"msg":"case passed"`)
	assert.Contains(t, output, `"level":"INFO"`)
}

func TestInitializeRunsOnce(t *testing.T) {
	resetGlobalLogger()
	defer resetGlobalLogger()

	first := &syncBuffer{}
	second := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.Lock(first))
	Initialize(config.LoggerConfig{Level: "debug", Format: "console"}, zapcore.Lock(second))

	GetLogger().Info("only the first writer sees this")

	assert.Contains(t, first.String(), "only the first writer sees this")
	assert.Empty(t, second.String())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	resetGlobalLogger()
	defer resetGlobalLogger()

	buf := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "extremely-verbose", Format: "json"}, zapcore.Lock(buf))

	GetLogger().Debug("suppressed")
	GetLogger().Info("visible")

	output := buf.String()
	assert.NotContains(t, output, "suppressed")
	assert.Contains(t, output, "visible")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetGlobalLogger()
	defer resetGlobalLogger()

	assert.NotNil(t, GetLogger(), "uninitialized logger must return a usable fallback")
}
