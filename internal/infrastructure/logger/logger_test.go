package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		environment string
		wantLevel   zapcore.Level
	}{
		{"production", zapcore.InfoLevel},
		{"prod", zapcore.InfoLevel},
		{"development", zapcore.DebugLevel},
		{"test", zapcore.WarnLevel},
		{"", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			log, err := New(tt.environment)
			require.NoError(t, err)
			require.NotNil(t, log.SugaredLogger)

			core := log.SugaredLogger.Desugar().Core()
			assert.True(t, core.Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, core.Enabled(tt.wantLevel-1))
			}
		})
	}
}

func TestWith(t *testing.T) {
	log := NewNop()
	child := log.With("service", "ScoreEngine")

	assert.NotSame(t, log, child)
	assert.NotPanics(t, func() {
		child.Info("scored", "productId", "p-1")
		child.Debug("ignored")
	})
}
