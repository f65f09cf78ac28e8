package orgchart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is the boundary to the external org chart service. The raw-JSON
// position operations exist so that round-trips preserve attributes this
// service does not model.
type Client interface {
	GetProject(ctx context.Context, projectID uuid.UUID) (*Project, error)
	GetContract(ctx context.Context, projectID, contractID uuid.UUID) (*Contract, error)
	IsPersonOnContract(ctx context.Context, projectID, contractID, personID uuid.UUID) (bool, error)
	IsExternalContractRep(ctx context.Context, projectID, contractID, personID uuid.UUID) (bool, error)
	HasWriteAccess(ctx context.Context, projectID, personID uuid.UUID) (bool, error)

	GetPosition(ctx context.Context, projectID, positionID uuid.UUID) (*Position, error)
	GetPositionRaw(ctx context.Context, projectID, positionID uuid.UUID) (map[string]any, error)
	PutPositionRaw(ctx context.Context, projectID, positionID uuid.UUID, payload map[string]any) error
	PatchPositionInstance(ctx context.Context, projectID, positionID, instanceID uuid.UUID, patch map[string]any) error

	CreateDraft(ctx context.Context, projectID uuid.UUID, name string) (*Draft, error)
	GetDraft(ctx context.Context, projectID, draftID uuid.UUID) (*Draft, error)
	PatchPosition(ctx context.Context, projectID, draftID, positionID uuid.UUID, patch map[string]any) error
	PatchInstance(ctx context.Context, projectID, draftID, positionID, instanceID uuid.UUID, patch map[string]any) error
	PublishDraft(ctx context.Context, projectID, draftID uuid.UUID) error
	DeleteDraft(ctx context.Context, projectID, draftID uuid.UUID) error
}

// APIError wraps a non-2xx response from the org chart service, retaining the
// response body for operator diagnosis.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("org chart API returned %d: %s", e.StatusCode, e.Body)
}

// HTTPClient implements Client against the org chart REST API.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPClient creates an org chart client.
func NewHTTPClient(baseURL, token string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("org chart request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read org chart response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Org chart call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode org chart response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) GetProject(ctx context.Context, projectID uuid.UUID) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%s", projectID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) GetContract(ctx context.Context, projectID, contractID uuid.UUID) (*Contract, error) {
	var con Contract
	path := fmt.Sprintf("/projects/%s/contracts/%s", projectID, contractID)
	if err := c.do(ctx, http.MethodGet, path, nil, &con); err != nil {
		return nil, err
	}
	return &con, nil
}

func (c *HTTPClient) IsPersonOnContract(ctx context.Context, projectID, contractID, personID uuid.UUID) (bool, error) {
	var result struct {
		Registered bool `json:"registered"`
	}
	path := fmt.Sprintf("/projects/%s/contracts/%s/personnel/%s", projectID, contractID, personID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return result.Registered, nil
}

func (c *HTTPClient) IsExternalContractRep(ctx context.Context, projectID, contractID, personID uuid.UUID) (bool, error) {
	var result struct {
		IsExternalRep bool `json:"isExternalRep"`
	}
	path := fmt.Sprintf("/projects/%s/contracts/%s/representatives/%s", projectID, contractID, personID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return result.IsExternalRep, nil
}

func (c *HTTPClient) HasWriteAccess(ctx context.Context, projectID, personID uuid.UUID) (bool, error) {
	var result struct {
		Write bool `json:"write"`
	}
	path := fmt.Sprintf("/projects/%s/access/%s", projectID, personID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return result.Write, nil
}

func (c *HTTPClient) GetPosition(ctx context.Context, projectID, positionID uuid.UUID) (*Position, error) {
	var p Position
	path := fmt.Sprintf("/projects/%s/positions/%s", projectID, positionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) GetPositionRaw(ctx context.Context, projectID, positionID uuid.UUID) (map[string]any, error) {
	var raw map[string]any
	path := fmt.Sprintf("/projects/%s/positions/%s", projectID, positionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) PutPositionRaw(ctx context.Context, projectID, positionID uuid.UUID, payload map[string]any) error {
	path := fmt.Sprintf("/projects/%s/positions/%s", projectID, positionID)
	return c.do(ctx, http.MethodPut, path, payload, nil)
}

// PatchPositionInstance patches a single instance directly, without going
// through a draft.
func (c *HTTPClient) PatchPositionInstance(ctx context.Context, projectID, positionID, instanceID uuid.UUID, patch map[string]any) error {
	path := fmt.Sprintf("/projects/%s/positions/%s/instances/%s", projectID, positionID, instanceID)
	return c.do(ctx, http.MethodPatch, path, patch, nil)
}

func (c *HTTPClient) CreateDraft(ctx context.Context, projectID uuid.UUID, name string) (*Draft, error) {
	var d Draft
	path := fmt.Sprintf("/projects/%s/drafts", projectID)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"name": name}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) GetDraft(ctx context.Context, projectID, draftID uuid.UUID) (*Draft, error) {
	var d Draft
	path := fmt.Sprintf("/projects/%s/drafts/%s", projectID, draftID)
	if err := c.do(ctx, http.MethodGet, path, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) PatchPosition(ctx context.Context, projectID, draftID, positionID uuid.UUID, patch map[string]any) error {
	path := fmt.Sprintf("/projects/%s/drafts/%s/positions/%s", projectID, draftID, positionID)
	return c.do(ctx, http.MethodPatch, path, patch, nil)
}

func (c *HTTPClient) PatchInstance(ctx context.Context, projectID, draftID, positionID, instanceID uuid.UUID, patch map[string]any) error {
	path := fmt.Sprintf("/projects/%s/drafts/%s/positions/%s/instances/%s", projectID, draftID, positionID, instanceID)
	return c.do(ctx, http.MethodPatch, path, patch, nil)
}

func (c *HTTPClient) PublishDraft(ctx context.Context, projectID, draftID uuid.UUID) error {
	path := fmt.Sprintf("/projects/%s/drafts/%s/publish", projectID, draftID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *HTTPClient) DeleteDraft(ctx context.Context, projectID, draftID uuid.UUID) error {
	path := fmt.Sprintf("/projects/%s/drafts/%s", projectID, draftID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
