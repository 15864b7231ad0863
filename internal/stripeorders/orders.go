// Package stripeorders reads maintenance purchases made through Stripe Checkout.
package stripeorders

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"auto-focus.app/updates/internal/entitlement"
	"auto-focus.app/updates/internal/logger"
	"auto-focus.app/updates/internal/models"
)

const pageSize = 100

type Observer interface {
	ObserveUpstream(call string, took time.Duration, err error)
}

// Source lists paid Checkout Sessions by customer e-mail. Each line item is
// reported as its own order, keyed by the price id.
type Source struct {
	timeout  time.Duration
	observer Observer
}

func New(secret string, timeout time.Duration, observer Observer) *Source {
	stripe.Key = secret
	return &Source{
		timeout:  timeout,
		observer: observer,
	}
}

// FetchOrders walks every Checkout Session page for email. The deadline
// covers the whole listing since the Stripe iterator fetches pages itself.
func (s *Source) FetchOrders(ctx context.Context, email string) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionListParams{
		CustomerDetails: &stripe.CheckoutSessionListCustomerDetailsParams{
			Email: stripe.String(email),
		},
	}
	params.Context = ctx
	params.Limit = stripe.Int64(pageSize)
	params.AddExpand("data.line_items")

	start := time.Now()
	var orders []models.Order
	sessions := 0

	it := session.List(params)
	for it.Next() {
		sessions++
		orders = append(orders, sessionOrders(it.CheckoutSession())...)
	}

	err := it.Err()
	if err != nil {
		err = fmt.Errorf("%w: stripe checkout sessions: %v", entitlement.ErrUpstreamUnavailable, err)
	}
	if s.observer != nil {
		s.observer.ObserveUpstream("stripe_sessions", time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("Fetched Stripe checkout sessions", map[string]interface{}{
		"sessions": sessions,
		"orders":   len(orders),
	})

	return orders, nil
}

func sessionOrders(cs *stripe.CheckoutSession) []models.Order {
	if cs == nil || cs.LineItems == nil {
		return nil
	}

	status := models.OrderStatus(cs.PaymentStatus)
	if cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = models.OrderStatusPaid
	}
	createdAt := time.Unix(cs.Created, 0).UTC()

	orders := make([]models.Order, 0, len(cs.LineItems.Data))
	for i, item := range cs.LineItems.Data {
		o := models.Order{
			ID:        fmt.Sprintf("%s/%d", cs.ID, i),
			Status:    status,
			CreatedAt: createdAt,
		}
		if item.Price != nil {
			o.VariantID = item.Price.ID
		}
		orders = append(orders, o)
	}
	return orders
}
