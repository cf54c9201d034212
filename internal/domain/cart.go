package domain

// IdentifierSet groups the product identifiers known for an item, keyed by
// origin. Arrays are deduplicated by the producer and treated as read-only.
type IdentifierSet struct {
	ProductIDs   []string `json:"productIds"`
	ExtractedIDs []string `json:"extractedIds"`
	SKUs         []string `json:"skus,omitempty"`
	GTINs        []string `json:"gtins,omitempty"`
	MPNs         []string `json:"mpns,omitempty"`
}

// CartItem represents one line of a captured shopping cart. Prices are in
// minor currency units; zero means the capture did not include a value.
type CartItem struct {
	Title     string        `json:"title,omitempty"`
	URL       string        `json:"url,omitempty"`
	ImageURL  string        `json:"imageUrl,omitempty"`
	StoreID   string        `json:"storeId,omitempty"`
	Price     int64         `json:"price,omitempty"`
	Quantity  int           `json:"quantity,omitempty"`
	LineTotal int64         `json:"lineTotal,omitempty"`
	IDs       IdentifierSet `json:"ids"`
}
