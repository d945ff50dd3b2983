package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ekyc/pkg/platform/middleware/admin"
)

// apiClient talks to a running ekyc server.
type apiClient struct {
	baseURL    string
	token      string
	adminToken string
	httpClient *http.Client
}

func newAPIClient(baseURL, token, adminToken string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL:    baseURL,
		token:      token,
		adminToken: adminToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Invoke calls POST /invoke and returns the raw response body.
func (c *apiClient) Invoke(ctx context.Context, function string, args []string) ([]byte, error) {
	if args == nil {
		args = []string{}
	}
	body, err := json.Marshal(map[string]any{"function": function, "args": args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoke", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.do(req, "invoke")
}

// QueryAll calls GET /admin/records for docType.
func (c *apiClient) QueryAll(ctx context.Context, docType string) ([]byte, error) {
	u := c.baseURL + "/admin/records?type=" + url.QueryEscape(docType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(admin.HeaderAdminToken, c.adminToken)
	return c.do(req, "query")
}

// RevokeToken calls POST /admin/tokens/revoke.
func (c *apiClient) RevokeToken(ctx context.Context, token string) error {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/tokens/revoke", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(admin.HeaderAdminToken, c.adminToken)
	_, err = c.do(req, "revoke")
	return err
}

func (c *apiClient) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s request failed with code %d: %s", op, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
