package domain

import "time"

// Confidence is the ordinal certainty rank of a match (high > medium > low > none).
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// MatchMethod identifies which strategy produced a match signal.
type MatchMethod string

const (
	MethodSKU            MatchMethod = "sku"
	MethodVariantSKU     MatchMethod = "variant_sku"
	MethodImageSKU       MatchMethod = "image_sku"
	MethodURL            MatchMethod = "url"
	MethodExtractedID    MatchMethod = "extracted_id"
	MethodExtractedIDSKU MatchMethod = "extracted_id_sku"
	MethodTitleColor     MatchMethod = "title_color"
	MethodTitle          MatchMethod = "title"
	MethodPrice          MatchMethod = "price"
)

// FieldSource records where a merged field's value came from.
type FieldSource string

const (
	SourceCart    FieldSource = "cart"
	SourceProduct FieldSource = "product"
	SourceMerged  FieldSource = "merged"
)

// MatchedSignal is one strategy's verdict about a cart item. Exact is false
// only for fuzzy comparisons (title similarity, price within tolerance).
type MatchedSignal struct {
	Method     MatchMethod `json:"method"`
	Confidence Confidence  `json:"confidence"`
	Exact      bool        `json:"exact"`
}

// MatchedVariant carries the purchasable option a cart item was matched to.
type MatchedVariant struct {
	SKU      string `json:"sku"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Price    int64  `json:"price,omitempty"`
	Currency string `json:"currency,omitempty"`
	Color    string `json:"color,omitempty"`
}

// EnrichedCartItem is a cart item annotated with its product match, merged
// fields, and per-field provenance.
type EnrichedCartItem struct {
	Title           string                 `json:"title,omitempty"`
	URL             string                 `json:"url,omitempty"`
	ImageURL        string                 `json:"imageUrl,omitempty"`
	StoreID         string                 `json:"storeId,omitempty"`
	Price           int64                  `json:"price,omitempty"`
	Quantity        int                    `json:"quantity,omitempty"`
	LineTotal       int64                  `json:"lineTotal,omitempty"`
	Brand           string                 `json:"brand,omitempty"`
	Description     string                 `json:"description,omitempty"`
	Category        string                 `json:"category,omitempty"`
	Rating          float64                `json:"rating,omitempty"`
	Currency        string                 `json:"currency,omitempty"`
	IDs             IdentifierSet          `json:"ids"`
	InCart          bool                   `json:"inCart"`
	WasViewed       bool                   `json:"wasViewed"`
	MatchConfidence Confidence             `json:"matchConfidence"`
	MatchMethod     MatchMethod            `json:"matchMethod,omitempty"`
	MatchedSignals  []MatchedSignal        `json:"matchedSignals"`
	MatchedVariant  *MatchedVariant        `json:"matchedVariant,omitempty"`
	Sources         map[string]FieldSource `json:"sources"`
	EnrichedAt      time.Time              `json:"enrichedAt"`
}

// ConfidenceBreakdown counts enriched items per confidence rank. The four
// buckets always sum to the total item count.
type ConfidenceBreakdown struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	None   int `json:"none"`
}

// MethodBreakdown counts enriched items per primary match method.
type MethodBreakdown struct {
	SKU            int `json:"sku"`
	VariantSKU     int `json:"variant_sku"`
	ImageSKU       int `json:"image_sku"`
	URL            int `json:"url"`
	ExtractedID    int `json:"extracted_id"`
	ExtractedIDSKU int `json:"extracted_id_sku"`
	TitleColor     int `json:"title_color"`
	Title          int `json:"title"`
	Price          int `json:"price"`
}

// EnrichmentSummary aggregates match statistics over one enriched cart.
type EnrichmentSummary struct {
	TotalItems     int                 `json:"totalItems"`
	MatchedItems   int                 `json:"matchedItems"`
	UnmatchedItems int                 `json:"unmatchedItems"`
	MatchRate      float64             `json:"matchRate"`
	ByConfidence   ConfidenceBreakdown `json:"byConfidence"`
	ByMethod       MethodBreakdown     `json:"byMethod"`
}

// EnrichedCart is the immutable result of one enrichment call. EnrichedAt is
// read from the clock once and shared by every item.
type EnrichedCart struct {
	StoreID    string             `json:"storeId"`
	Items      []EnrichedCartItem `json:"items"`
	Summary    EnrichmentSummary  `json:"summary"`
	EnrichedAt time.Time          `json:"enrichedAt"`
}

// EnrichOptions tunes one enrichment call. Zero values fall back to the
// service defaults (high / 0.8).
type EnrichOptions struct {
	MinConfidence            Confidence `json:"minConfidence,omitempty" binding:"omitempty,oneof=high medium low none"`
	TitleSimilarityThreshold float64    `json:"titleSimilarityThreshold,omitempty" binding:"omitempty,gt=0,lte=1"`
}
