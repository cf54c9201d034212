package domain

// ProductVariant represents one purchasable option (size/color) of a viewed
// product.
type ProductVariant struct {
	SKU          string   `json:"sku"`
	URL          string   `json:"url,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Price        int64    `json:"price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	Color        string   `json:"color,omitempty"`
	ExtractedIDs []string `json:"extractedIds,omitempty"`
}

// ViewedProduct represents a product-view record captured at the same
// merchant as the cart. Read-only input to the enrichment core.
type ViewedProduct struct {
	Title        string           `json:"title,omitempty"`
	URL          string           `json:"url,omitempty"`
	ImageURL     string           `json:"imageUrl,omitempty"`
	StoreID      string           `json:"storeId,omitempty"`
	Brand        string           `json:"brand,omitempty"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category,omitempty"`
	Rating       float64          `json:"rating,omitempty"`
	Color        string           `json:"color,omitempty"`
	Price        int64            `json:"price,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	IDs          IdentifierSet    `json:"ids"`
	Variants     []ProductVariant `json:"variants,omitempty"`
	VariantCount int              `json:"variantCount"`
	HasVariants  bool             `json:"hasVariants"`
}
