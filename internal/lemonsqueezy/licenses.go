package lemonsqueezy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"auto-focus.app/updates/internal/entitlement"
	"auto-focus.app/updates/internal/logger"
	"auto-focus.app/updates/internal/models"
)

const validatePath = "/v1/licenses/validate"

// Validate checks licenseKey once against the license API. The result is
// always a valid license; rejected keys come back as ErrInvalidLicense.
func (c *Client) Validate(ctx context.Context, licenseKey string) (models.License, error) {
	if licenseKey == "" {
		return models.License{}, entitlement.ErrMissingLicenseKey
	}

	endpoint, err := c.resolve(validatePath)
	if err != nil {
		return models.License{}, err
	}

	form := url.Values{"license_key": {licenseKey}}
	resp, err := c.do(ctx, "validate", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return models.License{}, err
	}

	if resp.status != http.StatusOK {
		var apiErr apiError
		_ = json.Unmarshal(resp.body, &apiErr)
		logger.Debug("License validation rejected", map[string]interface{}{
			"license_key": licenseKey,
			"status":      resp.status,
			"error":       apiErr.Error,
		})
		return models.License{}, fmt.Errorf("%w: upstream status %d %s", entitlement.ErrInvalidLicense, resp.status, apiErr.Error)
	}

	var v validateResponse
	if err := json.Unmarshal(resp.body, &v); err != nil {
		return models.License{}, fmt.Errorf("%w: validate response: %v", entitlement.ErrMalformedUpstreamData, err)
	}
	if v.Valid == nil {
		return models.License{}, fmt.Errorf("%w: validate response has no valid field", entitlement.ErrMalformedUpstreamData)
	}
	if !*v.Valid {
		return models.License{}, fmt.Errorf("%w: %s", entitlement.ErrInvalidLicense, v.Error)
	}

	license := models.License{
		Key:              licenseKey,
		Valid:            true,
		CustomerIdentity: v.Meta.CustomerEmail,
	}
	if license.CustomerIdentity == "" {
		license.CustomerIdentity = v.LicenseKey.UserEmail
	}

	// Without an issuance date the license starts today.
	if v.LicenseKey.CreatedAt == "" {
		license.IssuedAt = c.now().UTC()
	} else {
		license.IssuedAt, err = parseTimestamp("license_key.created_at", v.LicenseKey.CreatedAt)
		if err != nil {
			return models.License{}, err
		}
	}

	return license, nil
}
