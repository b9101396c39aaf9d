package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewModes(t *testing.T) {
	tests := []struct {
		mode      string
		enabled   zapcore.Level
		disabled  zapcore.Level
		checkMute bool
	}{
		{mode: "dev", enabled: zapcore.DebugLevel},
		{mode: "", enabled: zapcore.DebugLevel},
		{mode: "prod", enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel, checkMute: true},
		{mode: "Production", enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel, checkMute: true},
		{mode: "quiet", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel, checkMute: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			l, err := New(tt.mode)
			require.NoError(t, err)
			core := l.SugaredLogger.Desugar().Core()
			assert.True(t, core.Enabled(tt.enabled))
			if tt.checkMute {
				assert.False(t, core.Enabled(tt.disabled))
			}
		})
	}
}

func TestNopAndWith(t *testing.T) {
	l := Nop().With("layer", "points")
	assert.NotPanics(t, func() {
		l.Debug("debug", "n", 1)
		l.Info("info", "n", 2)
		l.Warn("warn", "n", 3)
		l.Error("error", "n", 4)
		l.Sync()
	})
}
