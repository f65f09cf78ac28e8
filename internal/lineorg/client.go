package lineorg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/equinor/fusion-app-resources-sub003/internal/people"
)

// Department is one node of the line organization. FullPath segments are
// space delimited, e.g. "TDI EDT DEV".
type Department struct {
	FullPath string         `json:"fullPath"`
	Name     string         `json:"name"`
	Manager  *people.Person `json:"manager,omitempty"`
	Children []string       `json:"children,omitempty"`
}

// Client reads the line organization: departments and their resource owners.
type Client interface {
	GetDepartment(ctx context.Context, path string) (*Department, error)
	GetResourceOwner(ctx context.Context, department string) (*people.Person, error)
	ListDepartments(ctx context.Context) ([]Department, error)
}

// HTTPClient implements Client against the line org service.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

func NewHTTPClient(baseURL, token string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("line org request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read line org response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Line org call failed", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("line org service returned %d: %s", resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}

var errNotFound = fmt.Errorf("line org: not found")

func (c *HTTPClient) GetDepartment(ctx context.Context, path string) (*Department, error) {
	var d Department
	err := c.get(ctx, "/departments/"+url.PathEscape(path), &d)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetResourceOwner resolves the manager of the given department, or nil when
// the department is unknown or unmanaged.
func (c *HTTPClient) GetResourceOwner(ctx context.Context, department string) (*people.Person, error) {
	d, err := c.GetDepartment(ctx, department)
	if err != nil || d == nil {
		return nil, err
	}
	return d.Manager, nil
}

func (c *HTTPClient) ListDepartments(ctx context.Context) ([]Department, error) {
	var out []Department
	if err := c.get(ctx, "/departments", &out); err != nil {
		return nil, err
	}
	return out, nil
}
