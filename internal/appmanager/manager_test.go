package appmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServiceSequenceOrdersByStartOrder(t *testing.T) {
	yaml := `
services:
  - name: gateway
    start_order: 5
    config:
      port: 8081
  - name: logger
    start_order: 1
    config:
      folder_path: ./logs
  - name: imports
    start_order: 2
    config:
      port: 6143
`
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	configs, err := LoadServiceSequence(path)
	require.NoError(t, err)
	require.Len(t, configs, 3)

	assert.Equal(t, "logger", configs[0].Name)
	assert.Equal(t, "imports", configs[1].Name)
	assert.Equal(t, "gateway", configs[2].Name)
	assert.Equal(t, 6143, configs[1].Config["port"])
}

func TestLoadServiceSequenceMissingFile(t *testing.T) {
	_, err := LoadServiceSequence(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
