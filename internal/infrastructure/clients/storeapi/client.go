package storeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// maxErrorBody caps how much of a failed response is read for its message
const maxErrorBody = 64 << 10

// HTTPClient talks to the storefront product REST API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ providers.CatalogProvider = (*HTTPClient)(nil)

// envelope is the response wrapper used by every product API endpoint
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient creates a product API client. timeout bounds each HTTP exchange;
// a non-positive value selects 20s.
func NewClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListProducts calls GET /products with the given query parameters
func (c *HTTPClient) ListProducts(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
	parsed, err := url.Parse(fmt.Sprintf("%s/products", c.baseURL))
	if err != nil {
		return nil, apperrors.NewInternalError("invalid product API URL", err)
	}
	parsed.RawQuery = params.Encode()

	out := &entities.CatalogResult{}
	if err := c.doJSON(ctx, http.MethodGet, parsed.String(), nil, out); err != nil {
		return nil, err
	}
	if out.Products == nil {
		out.Products = []entities.Product{}
	}
	return out, nil
}

// GetProductByID calls GET /products/{id}
func (c *HTTPClient) GetProductByID(ctx context.Context, id string) (*entities.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("product id is required")
	}
	return c.getProduct(ctx, fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(id)), id)
}

// GetProductBySlug calls GET /products/slug/{slug}
func (c *HTTPClient) GetProductBySlug(ctx context.Context, slug string) (*entities.Product, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, apperrors.NewValidationError("product slug is required")
	}
	return c.getProduct(ctx, fmt.Sprintf("%s/products/slug/%s", c.baseURL, url.PathEscape(slug)), slug)
}

func (c *HTTPClient) getProduct(ctx context.Context, endpoint, ref string) (*entities.Product, error) {
	out := &entities.Product{}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, out); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.StatusCode == http.StatusNotFound {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %q not found", ref))
		}
		return nil, err
	}
	return out, nil
}

// doJSON performs a request and decodes the envelope's data into out.
// Transport failures are NETWORK errors; non-2xx answers and envelopes with
// success=false are SERVER errors.
func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return apperrors.NewInternalError("failed to build product API request", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.NewNetworkError("product API request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewServerError(resp.StatusCode, errorMessage(resp))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperrors.NewServerError(resp.StatusCode, fmt.Sprintf("malformed product API response: %v", err))
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "product API reported failure"
		}
		return apperrors.NewServerError(resp.StatusCode, msg)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperrors.NewServerError(resp.StatusCode, "product API response has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.NewServerError(resp.StatusCode, fmt.Sprintf("malformed product API data: %v", err))
	}
	return nil
}

func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
