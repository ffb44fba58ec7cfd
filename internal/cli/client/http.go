package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL      = "HELICON_API_URL"
	envWorkspaceID = "HELICON_WORKSPACE_ID"
	envSpaceID     = "HELICON_SPACE_ID"

	defaultAPIURL = "http://localhost:8080"

	apiPrefix = "/api/v1"
)

type APIClient struct {
	baseURL     string
	workspaceID string
	spaceID     string
	httpClient  *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → global config → default
// If cmd is nil, skips flag checking and goes directly to env → global config
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	var baseURL, workspaceID, spaceID string

	// Priority 1: Check flags if cmd is provided
	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
			baseURL = flagURL
		}
		if flagWorkspace, err := cmd.Flags().GetString("workspace"); err == nil && flagWorkspace != "" {
			workspaceID = flagWorkspace
		}
		if flagSpace, err := cmd.Flags().GetString("space"); err == nil && flagSpace != "" {
			spaceID = flagSpace
		}
	}

	// Priority 2: Check environment variables (only if not found in flags)
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if workspaceID == "" {
		workspaceID = os.Getenv(envWorkspaceID)
	}
	if spaceID == "" {
		spaceID = os.Getenv(envSpaceID)
	}

	// Priority 3: Check global config (only if not found in env)
	if baseURL == "" || workspaceID == "" || spaceID == "" {
		globalConfig, err := LoadGlobalConfig()
		if err != nil {
			return nil, err
		}
		if globalConfig != nil {
			if baseURL == "" && globalConfig.APIURL != "" {
				baseURL = globalConfig.APIURL
			}
			if workspaceID == "" && globalConfig.WorkspaceID != "" {
				workspaceID = globalConfig.WorkspaceID
			}
			if spaceID == "" && globalConfig.SpaceID != "" {
				spaceID = globalConfig.SpaceID
			}
		}
	}

	// The workspace is optional here; the server rejects operations
	// that need one with a clear error.
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return NewAPIClientWithConfig(baseURL, workspaceID, spaceID)
}

func NewAPIClient() (*APIClient, error) {
	_ = godotenv.Load()
	return NewAPIClientWithCmd(nil)
}

// NewAPIClientWithConfig creates an APIClient with explicit config.
func NewAPIClientWithConfig(baseURL, workspaceID, spaceID string) (*APIClient, error) {
	return &APIClient{
		baseURL:     baseURL,
		workspaceID: workspaceID,
		spaceID:     spaceID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// ErrorBody is the error object inside an API error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request.
func (c *APIClient) Get(path string) (*APIResponse, error) {
	return c.do("GET", path, nil)
}

// Post performs a POST request with JSON body.
func (c *APIClient) Post(path string, body interface{}) (*APIResponse, error) {
	return c.do("POST", path, body)
}

// Delete performs a DELETE request.
func (c *APIClient) Delete(path string) (*APIResponse, error) {
	return c.do("DELETE", path, nil)
}

func (c *APIClient) do(method, path string, body interface{}) (*APIResponse, error) {
	url := c.baseURL + apiPrefix + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.workspaceID != "" {
		req.Header.Set("X-Workspace-ID", c.workspaceID)
	}
	if c.spaceID != "" {
		req.Header.Set("X-Space-ID", c.spaceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// DELETE returns 204 with no body
	if len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
			}
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if apiResp.Error != nil {
			apiErr.Code = apiResp.Error.Code
			apiErr.Message = apiResp.Error.Message
		} else {
			apiErr.Message = string(respBody)
		}
		return nil, apiErr
	}

	return &apiResp, nil
}
