package ecommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// GineeConfig holds configuration for the Ginee warehouse/inventory OpenAPI
type GineeConfig struct {
	// AccessKey identifies the API client
	AccessKey string
	// SecretKey signs every request
	SecretKey string
	// Country is sent on every request in the country header
	Country string
	// APIBaseURL is the base URL for the Ginee API
	APIBaseURL string
	// ListTimeoutSeconds bounds listing calls (master products, warehouse inventory)
	ListTimeoutSeconds int
	// UpdateTimeoutSeconds bounds stock update calls
	UpdateTimeoutSeconds int
}

const (
	// GineeProductionAPIURL is the production API endpoint
	GineeProductionAPIURL = "https://api.ginee.com"
	// GineeDefaultCountry is the country header value used when none is configured
	GineeDefaultCountry = "ID"

	defaultGineeListTimeoutSeconds   = 30
	defaultGineeUpdateTimeoutSeconds = 15
)

// Errors for Ginee configuration
var (
	ErrGineeConfigMissingAccessKey = errors.New("ginee: access key is required")
	ErrGineeConfigMissingSecretKey = errors.New("ginee: secret key is required")
)

// NewGineeConfig creates a new Ginee configuration with defaults
func NewGineeConfig(accessKey, secretKey string) *GineeConfig {
	return &GineeConfig{
		AccessKey:            accessKey,
		SecretKey:            secretKey,
		Country:              GineeDefaultCountry,
		APIBaseURL:           GineeProductionAPIURL,
		ListTimeoutSeconds:   defaultGineeListTimeoutSeconds,
		UpdateTimeoutSeconds: defaultGineeUpdateTimeoutSeconds,
	}
}

// Validate validates the Ginee configuration and fills defaults
func (c *GineeConfig) Validate() error {
	if strings.TrimSpace(c.AccessKey) == "" {
		return ErrGineeConfigMissingAccessKey
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return ErrGineeConfigMissingSecretKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = GineeProductionAPIURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.Country == "" {
		c.Country = GineeDefaultCountry
	}
	if c.ListTimeoutSeconds <= 0 {
		c.ListTimeoutSeconds = defaultGineeListTimeoutSeconds
	}
	if c.UpdateTimeoutSeconds <= 0 {
		c.UpdateTimeoutSeconds = defaultGineeUpdateTimeoutSeconds
	}
	return nil
}

// ListTimeout returns the timeout for listing calls
func (c *GineeConfig) ListTimeout() time.Duration {
	return time.Duration(c.ListTimeoutSeconds) * time.Second
}

// UpdateTimeout returns the timeout for stock update calls
func (c *GineeConfig) UpdateTimeout() time.Duration {
	return time.Duration(c.UpdateTimeoutSeconds) * time.Second
}

// Sign generates the request signature.
// Ginee signs only the HTTP method and path: base64(HMAC-SHA256(secret, METHOD + "$" + path + "$")).
func (c *GineeConfig) Sign(method, path string) string {
	var builder strings.Builder
	builder.WriteString(strings.ToUpper(method))
	builder.WriteString("$")
	builder.WriteString(path)
	builder.WriteString("$")

	h := hmac.New(sha256.New, []byte(c.SecretKey))
	h.Write([]byte(builder.String()))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Authorization returns the value of the Authorization header for a request
func (c *GineeConfig) Authorization(method, path string) string {
	return c.AccessKey + ":" + c.Sign(method, path)
}
