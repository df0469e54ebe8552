package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{true, false} {
		logger, err := NewLogger(dev)
		require.NoError(t, err)
		assert.Equal(t, dev, logger.Core().Enabled(zapcore.DebugLevel))
	}
	assert.NotPanics(t, func() { MustNewLogger(false) })
}

func TestJobLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	JobLogger(zap.New(core), "abc").Info("submitted")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].ContextMap()["content_hash"])
}
