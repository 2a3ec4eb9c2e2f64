package ecommerce

import (
	"errors"
	"strings"
	"time"
)

// ShopifyConfig holds the credentials of a Shopify admin API app
type ShopifyConfig struct {
	// ShopURL is the shop domain, e.g. my-shop.myshopify.com, with or without scheme
	ShopURL string
	// AccessToken is the admin API access token
	AccessToken string
	// APIVersion is the dated admin API version, e.g. 2023-07
	APIVersion string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

const (
	// DefaultShopifyAPIVersion is the admin API version used when none is configured
	DefaultShopifyAPIVersion = "2023-07"

	shopifyDomainSuffix   = ".myshopify.com"
	defaultShopifyTimeout = 30 * time.Second
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingShop  = errors.New("shopify: shop url is required")
	ErrShopifyConfigMissingToken = errors.New("shopify: access token is required")
)

// NewShopifyConfig creates a configuration with defaults
func NewShopifyConfig(shopURL, accessToken string) *ShopifyConfig {
	return &ShopifyConfig{
		ShopURL:     shopURL,
		AccessToken: accessToken,
		APIVersion:  DefaultShopifyAPIVersion,
		Timeout:     defaultShopifyTimeout,
	}
}

// Validate checks the credentials and fills in defaults
func (c *ShopifyConfig) Validate() error {
	if strings.TrimSpace(c.ShopURL) == "" {
		return ErrShopifyConfigMissingShop
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingToken
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultShopifyAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultShopifyTimeout
	}
	return nil
}

// AdminURL returns the admin API root, e.g. https://shop.myshopify.com/admin/api/2023-07.
// A bare shop handle gets the myshopify domain appended.
func (c *ShopifyConfig) AdminURL() string {
	shop := strings.TrimRight(strings.TrimSpace(c.ShopURL), "/")
	if !strings.Contains(shop, "://") {
		if !strings.Contains(shop, ".") {
			shop += shopifyDomainSuffix
		}
		shop = "https://" + shop
	}
	return shop + "/admin/api/" + c.APIVersion
}
