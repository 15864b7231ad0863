package lemonsqueezy

// validateResponse is the body of POST /v1/licenses/validate. Only valid is
// required; created_at and the e-mail fields are optional.
type validateResponse struct {
	Valid      *bool      `json:"valid"`
	Error      string     `json:"error,omitempty"`
	LicenseKey licenseKey `json:"license_key"`
	Meta       meta       `json:"meta"`
}

type licenseKey struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
	UserEmail string `json:"user_email"`
}

type meta struct {
	StoreID       int64  `json:"store_id"`
	OrderID       int64  `json:"order_id"`
	ProductID     int64  `json:"product_id"`
	VariantID     int64  `json:"variant_id"`
	CustomerID    int64  `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
}

// ordersDocument is one JSON:API page of GET /v1/orders.
type ordersDocument struct {
	Data  []orderResource `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

type orderResource struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes orderAttributes `json:"attributes"`
}

type orderAttributes struct {
	Status         string          `json:"status"`
	UserEmail      string          `json:"user_email"`
	CreatedAt      string          `json:"created_at"`
	FirstOrderItem *firstOrderItem `json:"first_order_item"`
}

// firstOrderItem is the summary LemonSqueezy embeds for the first line item.
// Multi-item orders are only matched on this item.
type firstOrderItem struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id"`
}

type apiError struct {
	Error string `json:"error"`
}
