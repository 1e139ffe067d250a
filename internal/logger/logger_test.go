package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	log, err := New(Options{Level: "debug", ServiceName: "royalty-test"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
	assert.Same(t, log, zap.L())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "royalty.log")
	log, err := New(Options{Level: "info", FilePath: path})
	require.NoError(t, err)

	log.Info("statement committed", zap.String("contract_id", "101"))
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"contract_id":"101"`)
}
