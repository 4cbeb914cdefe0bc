package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tejashriiii/OilSpill/config"
	"github.com/tejashriiii/OilSpill/utils"
)

// WorkflowClient runs a named remote inference workflow against an
// uploaded image. The response schema is opaque; callers hand it to
// NormalizeDetections.
type WorkflowClient struct {
	apiURL     string
	apiKey     string
	workspace  string
	workflowID string
	tempDir    string
	httpClient *http.Client
}

func NewWorkflowClient(cfg *config.WorkflowConfig, tempDir string) *WorkflowClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &WorkflowClient{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		workspace:  cfg.Workspace,
		workflowID: cfg.WorkflowID,
		tempDir:    tempDir,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is available.
func (c *WorkflowClient) Configured() bool {
	return c.apiKey != ""
}

// Run stages the upload in a temp file, submits it to the workflow and
// returns the decoded JSON result as-is. The temp file is removed after
// the call; removal failures are logged and ignored.
func (c *WorkflowClient) Run(ctx context.Context, imageData []byte) (any, error) {
	if !c.Configured() {
		return nil, ErrWorkflowNotConfigured
	}

	tempPath := filepath.Join(c.tempDir, uuid.NewString()+".jpg")
	if err := os.WriteFile(tempPath, imageData, 0644); err != nil {
		return nil, fmt.Errorf("failed to stage image: %w", err)
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil {
			utils.Logger.Warn("failed to delete temp file",
				zap.String("file", tempPath),
				zap.Error(err))
		}
	}()

	staged, err := os.ReadFile(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged image: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"api_key": c.apiKey,
		"inputs": map[string]any{
			"image": map[string]any{
				"type":  "base64",
				"value": base64.StdEncoding.EncodeToString(staged),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow request: %w", err)
	}

	url := fmt.Sprintf("%s/infer/workflows/%s/%s", c.apiURL, c.workspace, c.workflowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("workflow returned status %d: %s", resp.StatusCode, msg)
	}

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode workflow response: %w", err)
	}
	return result, nil
}
