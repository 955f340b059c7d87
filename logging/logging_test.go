package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job_applier_go/config"
)

func TestMaxSizeMB(t *testing.T) {
	n, err := maxSizeMB("100MB")
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = maxSizeMB("1G")
	require.NoError(t, err)
	assert.Equal(t, 1024, n)

	n, err = maxSizeMB("10K")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = maxSizeMB("lots")
	assert.Error(t, err)
}

func TestSetupFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	file := filepath.Join(t.TempDir(), "logs", "app.log")
	closer, err := Setup(config.LogConfig{Level: "debug", Format: "json", File: file, MaxSize: "1MB"})
	require.NoError(t, err)
	defer closer.Close()

	log.Info("投递开始")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"投递开始"`)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestSetupRejectsBadInput(t *testing.T) {
	_, err := Setup(config.LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = Setup(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
