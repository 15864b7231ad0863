package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"auto-focus.app/updates/internal/logger"
	"auto-focus.app/updates/internal/models"
)

const tracerName = "auto-focus.app/updates/internal/entitlement"

type LicenseValidator interface {
	Validate(ctx context.Context, licenseKey string) (models.License, error)
}

type OrderFetcher interface {
	FetchOrders(ctx context.Context, customerIdentity string) ([]models.Order, error)
}

// Service validates a license, gathers the customer's orders and computes
// the maintenance window. Every failure aborts the whole request.
type Service struct {
	validator LicenseValidator
	orders    OrderFetcher
	calc      Calculator
	now       func() time.Time
	configErr error
	tracer    trace.Tracer
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithConfigError makes every Sync fail with err. Used when a required
// credential is missing so the process can still serve health checks.
func WithConfigError(err error) Option {
	return func(s *Service) {
		s.configErr = err
	}
}

func NewService(validator LicenseValidator, orders OrderFetcher, calc Calculator, opts ...Option) *Service {
	s := &Service{
		validator: validator,
		orders:    orders,
		calc:      calc,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Sync(ctx context.Context, licenseKey string) (models.EntitlementWindow, error) {
	ctx, span := s.tracer.Start(ctx, "entitlement.Sync")
	defer span.End()

	window, err := s.sync(ctx, strings.TrimSpace(licenseKey))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, PublicMessage(err))
		return models.EntitlementWindow{}, err
	}

	span.SetAttributes(attribute.String("entitlement.updates_until", window.Date()))
	return window, nil
}

func (s *Service) sync(ctx context.Context, licenseKey string) (models.EntitlementWindow, error) {
	if licenseKey == "" {
		return models.EntitlementWindow{}, ErrMissingLicenseKey
	}
	if s.configErr != nil {
		return models.EntitlementWindow{}, fmt.Errorf("%w: %v", ErrConfiguration, s.configErr)
	}

	license, err := s.validate(ctx, licenseKey)
	if err != nil {
		return models.EntitlementWindow{}, err
	}

	// now is captured once so every stacking step sees the same instant.
	now := s.now().UTC()
	if license.IssuedAt.IsZero() {
		license.IssuedAt = now
	}

	var orders []models.Order
	if license.CustomerIdentity != "" {
		orders, err = s.fetchOrders(ctx, license.CustomerIdentity)
		if err != nil {
			return models.EntitlementWindow{}, err
		}
	} else {
		logger.Warn("License has no customer identity, skipping order lookup", map[string]interface{}{
			"license_key": licenseKey,
		})
	}

	_, span := s.tracer.Start(ctx, "entitlement.Compute")
	window := s.calc.Compute(license.IssuedAt, orders, now)
	span.SetAttributes(
		attribute.Int("entitlement.orders", len(orders)),
		attribute.Int("entitlement.qualifying_orders", len(s.calc.Qualifying(orders))),
	)
	span.End()

	logger.Debug("Maintenance window computed", map[string]interface{}{
		"license_key":   licenseKey,
		"issued_at":     license.IssuedAt.Format(time.RFC3339),
		"orders":        len(orders),
		"updates_until": window.Date(),
	})

	return window, nil
}

func (s *Service) validate(ctx context.Context, licenseKey string) (models.License, error) {
	ctx, span := s.tracer.Start(ctx, "entitlement.ValidateLicense")
	defer span.End()

	license, err := s.validator.Validate(ctx, licenseKey)
	if err != nil {
		span.RecordError(err)
		return models.License{}, fmt.Errorf("validating license: %w", err)
	}
	if !license.Valid {
		return models.License{}, ErrInvalidLicense
	}
	return license, nil
}

func (s *Service) fetchOrders(ctx context.Context, customerIdentity string) ([]models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "entitlement.FetchOrders")
	defer span.End()

	orders, err := s.orders.FetchOrders(ctx, customerIdentity)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetching orders: %w", err)
	}
	span.SetAttributes(attribute.Int("entitlement.orders", len(orders)))
	return orders, nil
}
