package ecommerce

import (
	"encoding/json"

	"github.com/sechic/backend/internal/domain/integration"
)

// shopifyPageLimit is the maximum page size of the products endpoint
const shopifyPageLimit = 250

// ShopifyProductEnvelope wraps a product in requests and responses
type ShopifyProductEnvelope struct {
	Product integration.ShopProduct `json:"product"`
}

// ShopifyProductsResponse is one page of GET products.json
type ShopifyProductsResponse struct {
	Products []integration.ShopProduct `json:"products"`
}

// ShopifyLocationsResponse is the GET locations.json result
type ShopifyLocationsResponse struct {
	Locations []integration.ShopLocation `json:"locations"`
}

// ShopifyInventoryLevelRequest is the body of POST inventory_levels/set.json
type ShopifyInventoryLevelRequest struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       int   `json:"available"`
}

// ShopifyErrorResponse carries API errors. Errors is either a string or an
// object of field messages.
type ShopifyErrorResponse struct {
	Errors json.RawMessage `json:"errors"`
}
