package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ShopifyAdapter implements integration.ShopPlatform over the Shopify admin REST API
type ShopifyAdapter struct {
	config     *ShopifyConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewShopifyAdapter creates a Shopify adapter
func NewShopifyAdapter(config *ShopifyConfig, logger *zap.Logger) (*ShopifyAdapter, error) {
	if config == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopifyAdapter{
		config:  config,
		baseURL: config.AdminURL(),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.With(zap.String("platform", integration.PlatformCodeShopify.String())),
	}, nil
}

// CreateProduct creates a product with all its variants and returns it as stored
func (a *ShopifyAdapter) CreateProduct(ctx context.Context, product integration.ShopProduct) (*integration.ShopProduct, error) {
	body, status, err := a.doRequest(ctx, http.MethodPost, "products.json", nil, ShopifyProductEnvelope{Product: product})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("%w: HTTP %d: %s", integration.ErrPlatformRequestFailed, status, excerpt(body))
	}

	var resp ShopifyProductEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: products.json: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if resp.Product.ID == 0 {
		return nil, fmt.Errorf("%w: created product has no id", integration.ErrPlatformInvalidResponse)
	}

	a.logger.Debug("Product created",
		zap.String("title", product.Title),
		zap.Int64("product_id", resp.Product.ID),
		zap.Int("variants", len(resp.Product.Variants)))
	return &resp.Product, nil
}

// Locations lists inventory locations
func (a *ShopifyAdapter) Locations(ctx context.Context) ([]integration.ShopLocation, error) {
	var resp ShopifyLocationsResponse
	if err := a.get(ctx, "locations.json", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

// SetInventoryLevel sets the available quantity of an inventory item at a location
func (a *ShopifyAdapter) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error {
	req := ShopifyInventoryLevelRequest{
		InventoryItemID: inventoryItemID,
		LocationID:      locationID,
		Available:       available,
	}
	body, status, err := a.doRequest(ctx, http.MethodPost, "inventory_levels/set.json", nil, req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d: %s", integration.ErrPlatformRequestFailed, status, excerpt(body))
	}
	return nil
}

// Products pages through the whole store catalog ordered by id
func (a *ShopifyAdapter) Products(ctx context.Context) ([]integration.ShopProduct, error) {
	var all []integration.ShopProduct
	var sinceID int64
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(shopifyPageLimit))
		if sinceID > 0 {
			query.Set("since_id", strconv.FormatInt(sinceID, 10))
		}

		var page ShopifyProductsResponse
		if err := a.get(ctx, "products.json", query, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Products...)
		if len(page.Products) < shopifyPageLimit {
			break
		}
		sinceID = page.Products[len(page.Products)-1].ID
	}
	a.logger.Debug("Store catalog loaded", zap.Int("products", len(all)))
	return all, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// get performs a GET and decodes the JSON response into out
func (a *ShopifyAdapter) get(ctx context.Context, path string, query url.Values, out any) error {
	body, _, err := a.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", integration.ErrPlatformInvalidResponse, path, err)
	}
	return nil
}

// doRequest executes an admin API call and returns the body with its status code.
// Statuses of 400 and above are turned into errors.
func (a *ShopifyAdapter) doRequest(ctx context.Context, method, path string, query url.Values, payload any) (body []byte, status int, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "shopify", method+" "+path)
	defer func() { telemetry.EndSpan(span, err) }()

	endpoint := a.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("shopify: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("shopify: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, fmt.Errorf("%w: shopify access token rejected", integration.ErrPlatformAuthFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, fmt.Errorf("%w: rate limited (retry after %s)",
			integration.ErrPlatformUnavailable, resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 400:
		return nil, resp.StatusCode, fmt.Errorf("%w: HTTP %d: %s",
			integration.ErrPlatformRequestFailed, resp.StatusCode, shopifyErrorMessage(body))
	}
	return body, resp.StatusCode, nil
}

// shopifyErrorMessage extracts the errors member of a failed response
func shopifyErrorMessage(body []byte) string {
	var errResp ShopifyErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Errors) > 0 {
		return excerpt(errResp.Errors)
	}
	return excerpt(body)
}

// Ensure ShopifyAdapter implements ShopPlatform
var _ integration.ShopPlatform = (*ShopifyAdapter)(nil)
