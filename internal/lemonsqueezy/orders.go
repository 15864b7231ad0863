package lemonsqueezy

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strconv"

	"auto-focus.app/updates/internal/entitlement"
	"auto-focus.app/updates/internal/logger"
	"auto-focus.app/updates/internal/models"
)

const ordersPath = "/v1/orders"

// Orders lists every order placed with email, one page at a time. The first
// request carries the filter and page size; after that the next link of each
// page is requested exactly as given. The sequence stops at the first error.
func (c *Client) Orders(ctx context.Context, email string) iter.Seq2[models.Order, error] {
	return func(yield func(models.Order, error) bool) {
		first, err := c.resolve(ordersPath)
		if err != nil {
			yield(models.Order{}, err)
			return
		}
		q := first.Query()
		q.Set("filter[user_email]", email)
		q.Set("page[size]", strconv.Itoa(c.pageSize))
		first.RawQuery = q.Encode()

		next := first.String()
		seen := make(map[string]bool)
		for page := 1; next != ""; page++ {
			if seen[next] {
				yield(models.Order{}, fmt.Errorf("%w: pagination loop at %s", entitlement.ErrMalformedUpstreamData, next))
				return
			}
			seen[next] = true

			orders, link, err := c.ordersPage(ctx, next)
			if err != nil {
				yield(models.Order{}, fmt.Errorf("orders page %d: %w", page, err))
				return
			}

			logger.Debug("Fetched orders page", map[string]interface{}{
				"page":   page,
				"orders": len(orders),
				"more":   link != "",
			})

			for _, o := range orders {
				if !yield(o, nil) {
					return
				}
			}

			next = ""
			if link != "" {
				u, err := c.resolve(link)
				if err != nil {
					yield(models.Order{}, err)
					return
				}
				next = u.String()
			}
		}
	}
}

// FetchOrders drains Orders. A failure on any page discards everything
// collected so far.
func (c *Client) FetchOrders(ctx context.Context, email string) ([]models.Order, error) {
	var orders []models.Order
	for o, err := range c.Orders(ctx, email) {
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (c *Client) ordersPage(ctx context.Context, pageURL string) ([]models.Order, string, error) {
	resp, err := c.do(ctx, "orders", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/vnd.api+json")
		req.Header.Set("Content-Type", "application/vnd.api+json")
		return req, nil
	})
	if err != nil {
		return nil, "", err
	}

	if resp.status != http.StatusOK {
		return nil, "", fmt.Errorf("%w: orders returned status %d", entitlement.ErrUpstreamUnavailable, resp.status)
	}

	var doc ordersDocument
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return nil, "", fmt.Errorf("%w: orders response: %v", entitlement.ErrMalformedUpstreamData, err)
	}
	if doc.Data == nil {
		return nil, "", fmt.Errorf("%w: orders response has no data", entitlement.ErrMalformedUpstreamData)
	}

	orders := make([]models.Order, 0, len(doc.Data))
	for _, r := range doc.Data {
		o, err := c.toOrder(r)
		if err != nil {
			return nil, "", err
		}
		orders = append(orders, o)
	}

	return orders, doc.Links.Next, nil
}

// toOrder maps one order resource. Orders that can never qualify are kept
// with whatever could be read; only candidates must be well formed.
func (c *Client) toOrder(r orderResource) (models.Order, error) {
	o := models.Order{
		ID:     r.ID,
		Status: models.OrderStatus(r.Attributes.Status),
	}
	if r.Attributes.FirstOrderItem != nil {
		o.VariantID = strconv.FormatInt(r.Attributes.FirstOrderItem.VariantID, 10)
	}

	createdAt, err := parseTimestamp("order "+r.ID+" created_at", r.Attributes.CreatedAt)
	if !c.mayQualify(o) {
		if err == nil {
			o.CreatedAt = createdAt
		}
		return o, nil
	}

	if o.Status == "" {
		return models.Order{}, fmt.Errorf("%w: order %s has no status", entitlement.ErrMalformedUpstreamData, r.ID)
	}
	if err != nil {
		return models.Order{}, err
	}
	o.CreatedAt = createdAt
	return o, nil
}

// mayQualify reports whether o could count as a maintenance purchase. A
// missing status is treated as possibly paid.
func (c *Client) mayQualify(o models.Order) bool {
	if c.variantID != "" && o.VariantID != c.variantID {
		return false
	}
	return o.Status == "" || o.IsPaid()
}
