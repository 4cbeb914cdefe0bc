package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tejashriiii/OilSpill/config"
	"github.com/tejashriiii/OilSpill/utils"
)

func init() {
	utils.Logger = zap.NewNop()
}

func TestWorkflowClientNotConfigured(t *testing.T) {
	client := NewWorkflowClient(&config.WorkflowConfig{}, t.TempDir())
	require.False(t, client.Configured())

	_, err := client.Run(context.Background(), []byte("img"))
	require.ErrorIs(t, err, ErrWorkflowNotConfigured)
}

func TestWorkflowClientRun(t *testing.T) {
	imageData := []byte("pretend image bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/infer/workflows/test-ws/test-wf", r.URL.Path)

		var req struct {
			APIKey string `json:"api_key"`
			Inputs struct {
				Image struct {
					Type  string `json:"type"`
					Value string `json:"value"`
				} `json:"image"`
			} `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "secret", req.APIKey)
		require.Equal(t, "base64", req.Inputs.Image.Type)

		decoded, err := base64.StdEncoding.DecodeString(req.Inputs.Image.Value)
		require.NoError(t, err)
		require.Equal(t, imageData, decoded)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"outputs": [{"predictions": []}]}`))
	}))
	defer srv.Close()

	tempDir := t.TempDir()
	client := NewWorkflowClient(&config.WorkflowConfig{
		APIURL:     srv.URL,
		APIKey:     "secret",
		Workspace:  "test-ws",
		WorkflowID: "test-wf",
		Timeout:    5 * time.Second,
	}, tempDir)

	result, err := client.Run(context.Background(), imageData)
	require.NoError(t, err)

	root, ok := result.(map[string]any)
	require.True(t, ok)
	require.Contains(t, root, "outputs")

	// The staged temp file must be gone after the call.
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWorkflowClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "workflow exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewWorkflowClient(&config.WorkflowConfig{
		APIURL:     srv.URL,
		APIKey:     "secret",
		Workspace:  "ws",
		WorkflowID: "wf",
		Timeout:    5 * time.Second,
	}, t.TempDir())

	_, err := client.Run(context.Background(), []byte("img"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
