package databricks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/srea-labs/dbx-mcp/pkg/logging"
)

// APIError is a non-2xx answer from the workspace.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("databricks api error (%d %s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("databricks api error (%d): %s", e.StatusCode, e.Message)
}

// Client calls the workspace REST API.
type Client struct {
	baseURL        string
	token          string
	userAgent      string
	sqlWaitTimeout time.Duration
	httpClient     *http.Client
	log            *slog.Logger
}

// NewClient creates a client from cfg. Call cfg.Validate first.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	wait := cfg.SQLWaitTimeout
	if wait == 0 {
		wait = 30 * time.Second
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "dbx-mcp"
	}
	return &Client{
		baseURL:        normalizeHost(cfg.Host),
		token:          strings.TrimSpace(cfg.Token),
		userAgent:      ua,
		sqlWaitTimeout: wait,
		httpClient:     &http.Client{Timeout: timeout},
		log:            logging.Nop(),
	}
}

// SetLogger sets the logger.
func (c *Client) SetLogger(log *slog.Logger) {
	if log != nil {
		c.log = log
	}
}

// Host returns the normalized workspace URL.
func (c *Client) Host() string {
	return c.baseURL
}

// ListClusters returns the workspace's clusters.
func (c *Client) ListClusters(ctx context.Context) ([]Cluster, error) {
	var out struct {
		Clusters []Cluster `json:"clusters"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/2.0/clusters/list", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Clusters, nil
}

// ListWarehouses returns the SQL warehouses.
func (c *Client) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	var out struct {
		Warehouses []Warehouse `json:"warehouses"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/2.0/sql/warehouses", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Warehouses, nil
}

// ListCatalogs returns the Unity Catalog catalogs.
func (c *Client) ListCatalogs(ctx context.Context) ([]Catalog, error) {
	var out struct {
		Catalogs []Catalog `json:"catalogs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/2.1/unity-catalog/catalogs", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Catalogs, nil
}

// ListSchemas returns the schemas of a catalog.
func (c *Client) ListSchemas(ctx context.Context, catalog string) ([]Schema, error) {
	if strings.TrimSpace(catalog) == "" {
		return nil, fmt.Errorf("catalog name is required")
	}
	var out struct {
		Schemas []Schema `json:"schemas"`
	}
	query := url.Values{"catalog_name": []string{catalog}}
	if err := c.do(ctx, http.MethodGet, "/api/2.1/unity-catalog/schemas", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Schemas, nil
}

// ListJobs returns up to limit jobs; limit <= 0 uses the service default.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	var out struct {
		Jobs    []Job `json:"jobs"`
		HasMore bool  `json:"has_more"`
	}
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	if err := c.do(ctx, http.MethodGet, "/api/2.1/jobs/list", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// ExecuteStatement runs a SQL statement on a warehouse and waits up to the
// configured wait timeout for an inline JSON result.
func (c *Client) ExecuteStatement(ctx context.Context, warehouseID, statement string) (*StatementResponse, error) {
	if strings.TrimSpace(warehouseID) == "" {
		return nil, fmt.Errorf("warehouse id is required")
	}
	if strings.TrimSpace(statement) == "" {
		return nil, fmt.Errorf("statement is required")
	}
	body := map[string]any{
		"warehouse_id": warehouseID,
		"statement":    statement,
		"wait_timeout": fmt.Sprintf("%ds", int(c.sqlWaitTimeout/time.Second)),
		"disposition":  "INLINE",
		"format":       "JSON_ARRAY",
	}
	var out StatementResponse
	if err := c.do(ctx, http.MethodPost, "/api/2.0/sql/statements", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	c.log.Debug("databricks call", "method", method, "path", path, "status", resp.StatusCode, "dur", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func parseAPIError(resp *http.Response, data []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.ErrorCode = payload.ErrorCode
		apiErr.Message = payload.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
