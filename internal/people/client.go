package people

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Person is the canonical profile record for a resolved person.
type Person struct {
	AzureUniqueID  uuid.UUID `json:"azureUniqueId"`
	Name           string    `json:"name"`
	Mail           string    `json:"mail"`
	AccountType    string    `json:"accountType"`
	FullDepartment string    `json:"fullDepartment,omitempty"`
	JobTitle       string    `json:"jobTitle,omitempty"`
	Roles          []string  `json:"roles,omitempty"`
}

const (
	AccountTypeEmployee    = "employee"
	AccountTypeConsultant  = "consultant"
	AccountTypeExternal    = "external"
	AccountTypeApplication = "application"
)

// HasRole reports whether the person holds the named role.
func (p *Person) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Client resolves person identifiers (azure unique id or mail) to canonical
// profile records.
type Client interface {
	ResolvePerson(ctx context.Context, identifier string) (*Person, error)
}

// HTTPClient implements Client against the profile service.
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

func (c *HTTPClient) ResolvePerson(ctx context.Context, identifier string) (*Person, error) {
	path := fmt.Sprintf("/persons/%s", url.PathEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Profile call failed",
			zap.String("identifier", identifier),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("profile service returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var p Person
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	return &p, nil
}
