package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHelpersSafeBeforeInit(t *testing.T) {
	// Packages log during construction in tests that never call Init;
	// the default logger must absorb that silently.
	assert.NotPanics(t, func() {
		Debug("debug before init")
		Info("info before init", zap.String("k", "v"))
		Warn("warn before init")
		Error("error before init")
	})
}

func TestInitRejectsBadLevel(t *testing.T) {
	assert.Error(t, Init("not-a-level", "json", "stdout"))
}

func TestInitReplacesLogger(t *testing.T) {
	before := Log
	require.NoError(t, Init("debug", "console", "stdout"))
	assert.NotSame(t, before, Log)
	Log = zap.NewNop()
}
