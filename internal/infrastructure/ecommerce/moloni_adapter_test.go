package ecommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sechic/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestMoloniConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *MoloniConfig
		wantErr error
	}{
		{
			name:    "valid config",
			config:  &MoloniConfig{AccessToken: "token", CompanyID: 5},
			wantErr: nil,
		},
		{
			name:    "missing token",
			config:  &MoloniConfig{CompanyID: 5},
			wantErr: ErrMoloniConfigMissingToken,
		},
		{
			name:    "missing company",
			config:  &MoloniConfig{AccessToken: "token"},
			wantErr: ErrMoloniConfigMissingCompany,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, MoloniProductionAPIURL, tt.config.BaseURL)
				assert.True(t, tt.config.Timeout > 0)
			}
		})
	}
}

func TestMoloniConfig_Endpoint(t *testing.T) {
	cfg := &MoloniConfig{BaseURL: "https://api.example.test/v1/", AccessToken: "t", CompanyID: 1}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://api.example.test/v1/products/count/", cfg.endpoint("products/count"))
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

type moloniCall struct {
	path  string
	token string
	form  url.Values
}

// newMoloniTestAdapter serves canned bodies keyed by request path and records every call
func newMoloniTestAdapter(t *testing.T, responses map[string]string) (*MoloniAdapter, *[]moloniCall) {
	t.Helper()
	calls := &[]moloniCall{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		*calls = append(*calls, moloniCall{
			path:  r.URL.Path,
			token: r.URL.Query().Get("access_token"),
			form:  r.PostForm,
		})
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	adapter, err := NewMoloniAdapter(&MoloniConfig{
		BaseURL:     server.URL + "/v1",
		AccessToken: "secret-token",
		CompanyID:   42,
	}, nil)
	require.NoError(t, err)
	return adapter, calls
}

func TestNewMoloniAdapter_InvalidConfig(t *testing.T) {
	_, err := NewMoloniAdapter(&MoloniConfig{}, nil)
	assert.ErrorIs(t, err, ErrMoloniConfigMissingToken)

	_, err = NewMoloniAdapter(nil, nil)
	assert.ErrorIs(t, err, integration.ErrPlatformNotConfigured)
}

func TestMoloniAdapter_ReferenceData(t *testing.T) {
	adapter, calls := newMoloniTestAdapter(t, map[string]string{
		"/v1/productCategories/getAll/": `[{"category_id": 10, "name": "Roupa"}, {"category_id": 11, "name": "Calçado"}]`,
		"/v1/suppliers/getAll/":         `[{"supplier_id": 7, "number": "F1", "name": "Acme Lda"}]`,
		"/v1/measurementUnits/getAll/":  `[{"unit_id": 3, "name": "Unidade", "short_name": "Un"}]`,
		"/v1/taxes/getAll/":             `[{"tax_id": 9, "name": "IVA 23%", "value": "23"}]`,
	})

	ref, err := adapter.ReferenceData(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ref)

	require.Len(t, *calls, 4)
	for _, c := range *calls {
		assert.Equal(t, "secret-token", c.token)
		assert.Equal(t, "42", c.form.Get("company_id"))
	}
	assert.Equal(t, "0", (*calls)[0].form.Get("parent_id"))
}

func TestMoloniAdapter_ReferenceData_MissingDefaults(t *testing.T) {
	adapter, _ := newMoloniTestAdapter(t, map[string]string{
		"/v1/productCategories/getAll/": `[{"category_id": 10, "name": "Roupa"}]`,
		"/v1/suppliers/getAll/":         `[]`,
		"/v1/measurementUnits/getAll/":  `[{"unit_id": 3, "name": "Unidade"}]`,
		"/v1/taxes/getAll/":             `[{"tax_id": 9, "name": "IVA 23%", "value": 23}]`,
	})

	_, err := adapter.ReferenceData(context.Background())
	assert.ErrorIs(t, err, integration.ErrMissingDefaults)
}

func TestMoloniAdapter_Categories(t *testing.T) {
	adapter, _ := newMoloniTestAdapter(t, map[string]string{
		"/v1/productCategories/getAll/": `[{"category_id": 10, "name": " Roupa "}]`,
	})

	categories, err := adapter.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []integration.ERPEntity{{ID: 10, Name: "Roupa"}}, categories)
}

func TestMoloniAdapter_InsertProduct(t *testing.T) {
	payload := integration.ERPProductPayload{
		CategoryID:      10,
		Name:            "Camisa",
		Reference:       "ABC123.1",
		EAN:             "2305101010001",
		Price:           decimal.RequireFromString("16.26"),
		UnitID:          3,
		SupplierID:      7,
		SupplierCost:    decimal.RequireFromString("8.5"),
		TaxID:           9,
		TaxValue:        decimal.NewFromInt(23),
		Quantity:        2,
		ColorName:       "Preto",
		Size:            "M",
		ExemptionReason: "M01",
	}

	t.Run("success", func(t *testing.T) {
		adapter, calls := newMoloniTestAdapter(t, map[string]string{
			"/v1/products/insert/": `{"valid": 1, "product_id": 555}`,
		})

		id, err := adapter.InsertProduct(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, int64(555), id)

		require.Len(t, *calls, 1)
		form := (*calls)[0].form
		assert.Equal(t, "42", form.Get("company_id"))
		assert.Equal(t, "10", form.Get("category_id"))
		assert.Equal(t, "1", form.Get("type"))
		assert.Equal(t, "16.26", form.Get("price"))
		assert.Equal(t, "8.50", form.Get("suppliers[0][cost_price]"))
		assert.Equal(t, "9", form.Get("taxes[0][tax_id]"))
		assert.Equal(t, "23", form.Get("taxes[0][value]"))
		assert.Equal(t, "M01", form.Get("exemption_reason"))
		assert.Equal(t, "M", form.Get("at_product_category"))
		assert.Equal(t, "0", form.Get("has_stock"))

		// empty composition and gender are skipped, remaining properties are packed
		assert.Equal(t, "2", form.Get("properties[0][property_id]"))
		assert.Equal(t, "Preto", form.Get("properties[0][value]"))
		assert.Equal(t, "3", form.Get("properties[1][property_id]"))
		assert.Equal(t, "M", form.Get("properties[1][value]"))
		assert.Empty(t, form.Get("properties[2][property_id]"))
	})

	t.Run("zero quantity has no stock category", func(t *testing.T) {
		p := payload
		p.Quantity = 0
		form := buildMoloniInsertForm(p)
		assert.Empty(t, form.Get("at_product_category"))
	})

	t.Run("validation errors", func(t *testing.T) {
		adapter, _ := newMoloniTestAdapter(t, map[string]string{
			"/v1/products/insert/": `[{"code": "2 reference", "description": "duplicated"}]`,
		})

		_, err := adapter.InsertProduct(context.Background(), payload)
		assert.ErrorIs(t, err, integration.ErrPlatformRequestFailed)
		assert.Contains(t, err.Error(), "duplicated")
	})
}

func TestMoloniAdapter_CountAndList(t *testing.T) {
	adapter, calls := newMoloniTestAdapter(t, map[string]string{
		"/v1/products/count/": `{"count": 120}`,
		"/v1/products/getAll/": `[
			{"product_id": 1, "category_id": 10, "name": "Camisa", "reference": "A.1", "ean": "5601", "price": 12.5},
			{"product_id": 2, "name": "Calça", "reference": "B.1", "ean": null, "price": "20"}
		]`,
	})

	count, err := adapter.CountProducts(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 120, count)

	products, err := adapter.ListProducts(context.Background(), 10, 50, 50)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ProductID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(products[0].Price))
	assert.Equal(t, int64(10), products[1].CategoryID, "category defaults to the requested one")
	assert.Empty(t, products[1].EAN)

	listForm := (*calls)[1].form
	assert.Equal(t, "10", listForm.Get("category_id"))
	assert.Equal(t, "50", listForm.Get("offset"))
	assert.Equal(t, "50", listForm.Get("qty"))
}

func TestMoloniAdapter_Errors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		adapter, err := NewMoloniAdapter(&MoloniConfig{BaseURL: server.URL, AccessToken: "x", CompanyID: 1}, nil)
		require.NoError(t, err)

		_, err = adapter.Categories(context.Background())
		assert.ErrorIs(t, err, integration.ErrPlatformAuthFailed)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		adapter, err := NewMoloniAdapter(&MoloniConfig{BaseURL: server.URL, AccessToken: "x", CompanyID: 1}, nil)
		require.NoError(t, err)

		_, err = adapter.CountProducts(context.Background(), 1)
		assert.ErrorIs(t, err, integration.ErrPlatformRequestFailed)
	})

	t.Run("invalid json", func(t *testing.T) {
		adapter, _ := newMoloniTestAdapter(t, map[string]string{
			"/v1/products/count/": `not json`,
		})
		_, err := adapter.CountProducts(context.Background(), 1)
		assert.ErrorIs(t, err, integration.ErrPlatformInvalidResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		endpoint := server.URL
		server.Close()

		adapter, err := NewMoloniAdapter(&MoloniConfig{BaseURL: endpoint, AccessToken: "x", CompanyID: 1}, nil)
		require.NoError(t, err)

		_, err = adapter.Categories(context.Background())
		assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
	})
}
