package ecommerce

import (
	"errors"
	"strings"
	"time"
)

// MoloniConfig holds the credentials and endpoint of the Moloni invoicing API
type MoloniConfig struct {
	// BaseURL is the API root, e.g. https://api.moloni.pt/v1
	BaseURL string
	// AccessToken is sent as the access_token query parameter on every call
	AccessToken string
	// CompanyID scopes every call to one company
	CompanyID int64
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

const (
	// MoloniProductionAPIURL is the public API root
	MoloniProductionAPIURL = "https://api.moloni.pt/v1"

	defaultMoloniTimeout = 30 * time.Second
)

// Errors for Moloni configuration
var (
	ErrMoloniConfigMissingToken   = errors.New("moloni: access token is required")
	ErrMoloniConfigMissingCompany = errors.New("moloni: company id is required")
)

// NewMoloniConfig creates a configuration pointing at the production API
func NewMoloniConfig(accessToken string, companyID int64) *MoloniConfig {
	return &MoloniConfig{
		BaseURL:     MoloniProductionAPIURL,
		AccessToken: accessToken,
		CompanyID:   companyID,
		Timeout:     defaultMoloniTimeout,
	}
}

// Validate checks the credentials and fills in defaults
func (c *MoloniConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrMoloniConfigMissingToken
	}
	if c.CompanyID <= 0 {
		return ErrMoloniConfigMissingCompany
	}
	if c.BaseURL == "" {
		c.BaseURL = MoloniProductionAPIURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultMoloniTimeout
	}
	return nil
}

// endpoint builds the URL of an API method such as "products/insert"
func (c *MoloniConfig) endpoint(method string) string {
	return c.BaseURL + "/" + strings.Trim(method, "/") + "/"
}
