package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"lattice/infrastructure/config"
)

func TestNewWritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lattice.log")
	log, err := New(config.LoggerConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: path,
		MaxSize:  1,
	})
	require.NoError(t, err)

	log.Info("booking created")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"booking created"`)
}

func TestLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, level("loud"))
	assert.Equal(t, zapcore.WarnLevel, level("WARN"))
}
