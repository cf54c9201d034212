package domain

// CartCaptureEvent is a raw cart payload as sent by capture clients. Item
// shapes vary per merchant, so they stay untyped until normalization.
type CartCaptureEvent struct {
	StoreID string                   `json:"storeId,omitempty"`
	Items   []map[string]interface{} `json:"items"`
}

// ProductViewEvent is a raw product-view payload in merchant-specific form.
type ProductViewEvent map[string]interface{}
