package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from a platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxErrorExcerpt bounds how much of a rejected response body ends up in an error
const maxErrorExcerpt = 256

// MoloniAdapter implements integration.ERPPlatform over the Moloni REST API.
// Every call is a form-encoded POST carrying the company id; the access token
// travels in the query string.
type MoloniAdapter struct {
	config     *MoloniConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMoloniAdapter creates a Moloni adapter
func NewMoloniAdapter(config *MoloniConfig, logger *zap.Logger) (*MoloniAdapter, error) {
	if config == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MoloniAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.With(zap.String("platform", integration.PlatformCodeMoloni.String())),
	}, nil
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

// ReferenceData loads categories, suppliers, units and taxes of the company
func (a *MoloniAdapter) ReferenceData(ctx context.Context) (*integration.ERPReferenceData, error) {
	categories, err := a.Categories(ctx)
	if err != nil {
		return nil, err
	}

	var suppliers []MoloniSupplier
	if err := a.call(ctx, moloniMethodSuppliers, url.Values{}, &suppliers); err != nil {
		return nil, err
	}
	var units []MoloniUnit
	if err := a.call(ctx, moloniMethodUnits, url.Values{}, &units); err != nil {
		return nil, err
	}
	var taxes []MoloniTax
	if err := a.call(ctx, moloniMethodTaxes, url.Values{}, &taxes); err != nil {
		return nil, err
	}

	supplierEntities := make([]integration.ERPEntity, 0, len(suppliers))
	for _, s := range suppliers {
		supplierEntities = append(supplierEntities, s.toEntity())
	}
	unitEntities := make([]integration.ERPEntity, 0, len(units))
	for _, u := range units {
		unitEntities = append(unitEntities, u.toEntity())
	}
	erpTaxes := make([]integration.ERPTax, 0, len(taxes))
	for _, t := range taxes {
		erpTaxes = append(erpTaxes, t.toTax())
	}

	return integration.NewERPReferenceData(categories, supplierEntities, unitEntities, erpTaxes)
}

// Categories lists the top level product categories of the company
func (a *MoloniAdapter) Categories(ctx context.Context) ([]integration.ERPEntity, error) {
	form := url.Values{}
	form.Set("parent_id", "0")

	var categories []MoloniCategory
	if err := a.call(ctx, moloniMethodCategories, form, &categories); err != nil {
		return nil, err
	}
	entities := make([]integration.ERPEntity, 0, len(categories))
	for _, c := range categories {
		entities = append(entities, c.toEntity())
	}
	return entities, nil
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// InsertProduct creates one product and returns its Moloni id
func (a *MoloniAdapter) InsertProduct(ctx context.Context, payload integration.ERPProductPayload) (int64, error) {
	body, err := a.doRequest(ctx, moloniMethodInsert, buildMoloniInsertForm(payload))
	if err != nil {
		return 0, err
	}

	var resp MoloniInsertResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Valid != 1 {
		// Validation failures come back as 200 with a list of field errors
		return 0, fmt.Errorf("%w: insert rejected: %s", integration.ErrPlatformRequestFailed, excerpt(body))
	}
	if resp.ProductID == 0 {
		return 0, fmt.Errorf("%w: insert returned no product id", integration.ErrPlatformInvalidResponse)
	}

	a.logger.Debug("Product inserted",
		zap.String("reference", payload.Reference),
		zap.Int64("product_id", resp.ProductID))
	return resp.ProductID, nil
}

// CountProducts returns how many products a category holds
func (a *MoloniAdapter) CountProducts(ctx context.Context, categoryID int64) (int, error) {
	form := url.Values{}
	form.Set("category_id", strconv.FormatInt(categoryID, 10))

	var resp MoloniCountResponse
	if err := a.call(ctx, moloniMethodCount, form, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ListProducts returns one page of a category's products
func (a *MoloniAdapter) ListProducts(ctx context.Context, categoryID int64, offset, qty int) ([]integration.ERPProduct, error) {
	form := url.Values{}
	form.Set("category_id", strconv.FormatInt(categoryID, 10))
	form.Set("offset", strconv.Itoa(offset))
	form.Set("qty", strconv.Itoa(qty))

	var products []MoloniProduct
	if err := a.call(ctx, moloniMethodList, form, &products); err != nil {
		return nil, err
	}
	result := make([]integration.ERPProduct, 0, len(products))
	for _, p := range products {
		result = append(result, p.toProduct(categoryID))
	}
	return result, nil
}

// buildMoloniInsertForm maps a payload onto the products/insert form fields
func buildMoloniInsertForm(p integration.ERPProductPayload) url.Values {
	form := url.Values{}
	form.Set("category_id", strconv.FormatInt(p.CategoryID, 10))
	form.Set("type", moloniProductTypeGoods)
	form.Set("name", p.Name)
	form.Set("summary", p.Summary)
	form.Set("reference", p.Reference)
	form.Set("ean", p.EAN)
	form.Set("price", p.Price.StringFixed(2))
	form.Set("unit_id", strconv.FormatInt(p.UnitID, 10))
	form.Set("has_stock", "0")
	form.Set("stock", "0")
	form.Set("pos_favorite", "0")
	if p.ExemptionReason != "" {
		form.Set("exemption_reason", p.ExemptionReason)
	}
	if p.Quantity > 0 {
		form.Set("at_product_category", moloniStockCategoryGoods)
	}

	form.Set("suppliers[0][supplier_id]", strconv.FormatInt(p.SupplierID, 10))
	form.Set("suppliers[0][cost_price]", p.SupplierCost.StringFixed(2))

	form.Set("taxes[0][tax_id]", strconv.FormatInt(p.TaxID, 10))
	form.Set("taxes[0][value]", p.TaxValue.String())
	form.Set("taxes[0][order]", "0")
	form.Set("taxes[0][cumulative]", "0")

	properties := []struct {
		id    int
		value string
	}{
		{moloniPropertyComposition, p.Composition},
		{moloniPropertyColor, p.ColorName},
		{moloniPropertySize, p.Size},
		{moloniPropertyGender, p.Gender},
	}
	i := 0
	for _, prop := range properties {
		if strings.TrimSpace(prop.value) == "" {
			continue
		}
		form.Set(fmt.Sprintf("properties[%d][property_id]", i), strconv.Itoa(prop.id))
		form.Set(fmt.Sprintf("properties[%d][value]", i), prop.value)
		i++
	}
	return form
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// call performs a request and decodes the JSON response into out
func (a *MoloniAdapter) call(ctx context.Context, method string, form url.Values, out any) error {
	body, err := a.doRequest(ctx, method, form)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", integration.ErrPlatformInvalidResponse, method, err)
	}
	return nil
}

// doRequest executes a form-encoded POST against an API method
func (a *MoloniAdapter) doRequest(ctx context.Context, method string, form url.Values) (body []byte, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "moloni", method)
	defer func() { telemetry.EndSpan(span, err) }()

	form.Set("company_id", strconv.FormatInt(a.config.CompanyID, 10))

	query := url.Values{}
	query.Set("access_token", a.config.AccessToken)
	endpoint := a.config.endpoint(method) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("moloni: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("moloni: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: moloni access token rejected", integration.ErrPlatformAuthFailed)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d: %s", integration.ErrPlatformRequestFailed, resp.StatusCode, excerpt(body))
	}
	return body, nil
}

// excerpt returns the start of a response body for error messages
func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorExcerpt {
		return s[:maxErrorExcerpt] + "..."
	}
	return s
}

// Ensure MoloniAdapter implements ERPPlatform
var _ integration.ERPPlatform = (*MoloniAdapter)(nil)
