package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewFallsBackToDefaults(t *testing.T) {
	t.Setenv("ROBOFLOW_API_KEY", "env-key")

	cfg := New()
	require.Equal(t, ":8000", cfg.Server.Port)
	require.Equal(t, 256, cfg.Model.ImageSize)
	require.Equal(t, 5, cfg.Model.NumClasses)
	require.Equal(t, "env-key", cfg.Workflow.APIKey)
}

func TestLoadYAMLWithEnvKey(t *testing.T) {
	t.Setenv("ROBOFLOW_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: ":9000"
  mode: "release"
workflow:
  workspace: "custom-ws"
  timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Port)
	require.Equal(t, "release", cfg.Server.Mode)
	require.Equal(t, "custom-ws", cfg.Workflow.Workspace)
	require.Equal(t, 10*time.Second, cfg.Workflow.Timeout)

	// Defaults fill everything the file omits, except the API key,
	// which only the environment provides.
	require.Equal(t, "detect-and-classify", cfg.Workflow.WorkflowID)
	require.Equal(t, "env-key", cfg.Workflow.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
