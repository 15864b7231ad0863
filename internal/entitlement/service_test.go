package entitlement

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto-focus.app/updates/internal/models"
)

type fakeValidator struct {
	license models.License
	err     error
	keys    []string
}

func (f *fakeValidator) Validate(ctx context.Context, licenseKey string) (models.License, error) {
	f.keys = append(f.keys, licenseKey)
	return f.license, f.err
}

type fakeOrders struct {
	orders     []models.Order
	err        error
	identities []string
}

func (f *fakeOrders) FetchOrders(ctx context.Context, customerIdentity string) ([]models.Order, error) {
	f.identities = append(f.identities, customerIdentity)
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func validLicense(issuedAt time.Time) models.License {
	return models.License{Valid: true, CustomerIdentity: "jane@example.com", IssuedAt: issuedAt}
}

func TestSync_ActiveRenewal(t *testing.T) {
	validator := &fakeValidator{license: validLicense(date(2023, 1, 10))}
	orders := &fakeOrders{orders: []models.Order{paidMaintenance("1", date(2023, 5, 1))}}
	svc := NewService(validator, orders, NewCalculator(maintenanceVariant), fixedClock(date(2023, 6, 1)))

	window, err := svc.Sync(context.Background(), "  LICENSE-KEY ")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-09", window.Date())
	assert.Equal(t, []string{"LICENSE-KEY"}, validator.keys)
	assert.Equal(t, []string{"jane@example.com"}, orders.identities)
}

func TestSync_InvalidLicenseSkipsOrderLookup(t *testing.T) {
	tests := []struct {
		name      string
		validator *fakeValidator
	}{
		{"rejected by upstream", &fakeValidator{err: fmt.Errorf("%w: license_key not found", ErrInvalidLicense)}},
		{"reported invalid", &fakeValidator{license: models.License{Valid: false}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &fakeOrders{}
			svc := NewService(tt.validator, orders, NewCalculator(maintenanceVariant))

			_, err := svc.Sync(context.Background(), "LICENSE-KEY")
			require.ErrorIs(t, err, ErrInvalidLicense)
			assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
			assert.Empty(t, orders.identities)
		})
	}
}

func TestSync_OrderFailureFailsRequest(t *testing.T) {
	validator := &fakeValidator{license: validLicense(date(2023, 1, 10))}
	orders := &fakeOrders{err: fmt.Errorf("orders page 2: %w", ErrUpstreamUnavailable)}
	svc := NewService(validator, orders, NewCalculator(maintenanceVariant))

	window, err := svc.Sync(context.Background(), "LICENSE-KEY")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, models.EntitlementWindow{}, window)
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
}

func TestSync_MissingKey(t *testing.T) {
	validator := &fakeValidator{}
	svc := NewService(validator, &fakeOrders{}, NewCalculator(maintenanceVariant))

	for _, key := range []string{"", "   "} {
		_, err := svc.Sync(context.Background(), key)
		assert.ErrorIs(t, err, ErrMissingLicenseKey)
	}
	assert.Empty(t, validator.keys)
}

func TestSync_ConfigurationError(t *testing.T) {
	validator := &fakeValidator{license: validLicense(date(2023, 1, 10))}
	svc := NewService(validator, &fakeOrders{}, NewCalculator(maintenanceVariant),
		WithConfigError(errors.New("LEMON_API_KEY environment variable is required")))

	_, err := svc.Sync(context.Background(), "LICENSE-KEY")
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Empty(t, validator.keys, "no upstream call without credentials")
}

func TestSync_NoCustomerIdentityReturnsBaseline(t *testing.T) {
	validator := &fakeValidator{license: models.License{Valid: true, IssuedAt: date(2023, 1, 10)}}
	orders := &fakeOrders{}
	svc := NewService(validator, orders, NewCalculator(maintenanceVariant), fixedClock(date(2023, 6, 1)))

	window, err := svc.Sync(context.Background(), "LICENSE-KEY")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", window.Date())
	assert.Empty(t, orders.identities)
}

func TestSync_MissingIssuanceDateStartsToday(t *testing.T) {
	now := date(2024, 6, 1)
	validator := &fakeValidator{license: models.License{Valid: true, CustomerIdentity: "jane@example.com"}}
	svc := NewService(validator, &fakeOrders{}, NewCalculator(maintenanceVariant), fixedClock(now))

	window, err := svc.Sync(context.Background(), "LICENSE-KEY")
	require.NoError(t, err)
	assert.Equal(t, now.Add(MaintenanceTerm), window.UpdatesUntil)
}

func TestSync_MalformedUpstreamData(t *testing.T) {
	validator := &fakeValidator{err: fmt.Errorf("%w: created_at", ErrMalformedUpstreamData)}
	svc := NewService(validator, &fakeOrders{}, NewCalculator(maintenanceVariant))

	_, err := svc.Sync(context.Background(), "LICENSE-KEY")
	require.ErrorIs(t, err, ErrMalformedUpstreamData)
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
}

func TestHTTPStatusAndMessage(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{nil, http.StatusOK, "internal server error"},
		{ErrMissingLicenseKey, http.StatusBadRequest, "license_key required"},
		{fmt.Errorf("x: %w", ErrInvalidLicense), http.StatusBadRequest, "invalid license key"},
		{fmt.Errorf("x: %w", ErrConfiguration), http.StatusInternalServerError, "server misconfiguration"},
		{fmt.Errorf("x: %w", ErrUpstreamUnavailable), http.StatusBadGateway, "licensing service unavailable"},
		{fmt.Errorf("x: %w", ErrMalformedUpstreamData), http.StatusBadGateway, "malformed data from licensing service"},
		{errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "%v", tt.err)
		assert.Equal(t, tt.message, PublicMessage(tt.err), "%v", tt.err)
	}
}
