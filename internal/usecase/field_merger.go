package usecase

import (
	"strings"
	"time"

	"github.com/cartlens/backend/internal/domain"
)

// mergeFields builds the public enriched item from a cart item and its
// unfiltered match outcome. If the primary confidence does not meet
// minConfidence the match is treated as absent: no product fields are copied
// and the signal list is cleared, so sub-threshold matches never leak out.
// Cart values win shared fields; the product only fills gaps. Price always
// stays the cart's, since that is what the shopper actually saw.
func mergeFields(
	item domain.CartItem,
	outcome matchOutcome,
	minConfidence domain.Confidence,
	enrichedAt time.Time,
) domain.EnrichedCartItem {
	matched := outcome.Product != nil && confidenceRank[outcome.Confidence] >= confidenceRank[minConfidence]

	enriched := domain.EnrichedCartItem{
		Title:           item.Title,
		URL:             item.URL,
		ImageURL:        item.ImageURL,
		StoreID:         item.StoreID,
		Price:           item.Price,
		Quantity:        item.Quantity,
		LineTotal:       item.LineTotal,
		IDs:             copyIdentifierSet(item.IDs),
		InCart:          true,
		WasViewed:       matched,
		MatchConfidence: domain.ConfidenceNone,
		MatchedSignals:  []domain.MatchedSignal{},
		Sources:         make(map[string]domain.FieldSource),
		EnrichedAt:      enrichedAt,
	}

	if !isBlank(item.Title) {
		enriched.Sources["title"] = domain.SourceCart
	}
	if !isBlank(item.URL) {
		enriched.Sources["url"] = domain.SourceCart
	}
	if !isBlank(item.ImageURL) {
		enriched.Sources["imageUrl"] = domain.SourceCart
	}
	if item.Price > 0 {
		enriched.Sources["price"] = domain.SourceCart
	}
	enriched.Sources["ids"] = domain.SourceCart

	if !matched {
		return enriched
	}

	product := outcome.Product
	enriched.MatchConfidence = outcome.Confidence
	enriched.MatchMethod = outcome.Method
	enriched.MatchedSignals = append([]domain.MatchedSignal{}, outcome.Signals...)

	if isBlank(enriched.Title) && !isBlank(product.Title) {
		enriched.Title = product.Title
		enriched.Sources["title"] = domain.SourceProduct
	}
	if isBlank(enriched.URL) && !isBlank(product.URL) {
		enriched.URL = product.URL
		enriched.Sources["url"] = domain.SourceProduct
	}
	if isBlank(enriched.ImageURL) {
		// a matched variant's image is more specific than the product's
		fallback := product.ImageURL
		if outcome.Variant != nil && !isBlank(outcome.Variant.ImageURL) {
			fallback = outcome.Variant.ImageURL
		}
		if !isBlank(fallback) {
			enriched.ImageURL = fallback
			enriched.Sources["imageUrl"] = domain.SourceProduct
		}
	}

	if product.Brand != "" {
		enriched.Brand = product.Brand
		enriched.Sources["brand"] = domain.SourceProduct
	}
	if product.Description != "" {
		enriched.Description = product.Description
		enriched.Sources["description"] = domain.SourceProduct
	}
	if product.Category != "" {
		enriched.Category = product.Category
		enriched.Sources["category"] = domain.SourceProduct
	}
	if product.Rating > 0 {
		enriched.Rating = product.Rating
		enriched.Sources["rating"] = domain.SourceProduct
	}
	currency := product.Currency
	if currency == "" && outcome.Variant != nil {
		currency = outcome.Variant.Currency
	}
	if currency != "" {
		enriched.Currency = currency
		enriched.Sources["currency"] = domain.SourceProduct
	}

	enriched.IDs = unionIdentifierSets(item.IDs, product.IDs)
	enriched.Sources["ids"] = domain.SourceMerged

	if outcome.Variant != nil {
		enriched.MatchedVariant = &domain.MatchedVariant{
			SKU:      outcome.Variant.SKU,
			URL:      outcome.Variant.URL,
			ImageURL: outcome.Variant.ImageURL,
			Price:    outcome.Variant.Price,
			Currency: outcome.Variant.Currency,
			Color:    outcome.Variant.Color,
		}
	}

	return enriched
}

// unionIdentifierSets merges two identifier sets per category, deduplicating
// while preserving first-seen order with cart entries ahead of product ones
func unionIdentifierSets(cart, product domain.IdentifierSet) domain.IdentifierSet {
	return ensureIDArrays(domain.IdentifierSet{
		ProductIDs:   unionStrings(cart.ProductIDs, product.ProductIDs),
		ExtractedIDs: unionStrings(cart.ExtractedIDs, product.ExtractedIDs),
		SKUs:         unionStrings(cart.SKUs, product.SKUs),
		GTINs:        unionStrings(cart.GTINs, product.GTINs),
		MPNs:         unionStrings(cart.MPNs, product.MPNs),
	})
}

// copyIdentifierSet returns a deduplicated defensive copy so enriched items
// never alias caller-owned slices
func copyIdentifierSet(ids domain.IdentifierSet) domain.IdentifierSet {
	return unionIdentifierSets(ids, domain.IdentifierSet{})
}

// ensureIDArrays keeps the two mandatory categories non-nil so they always
// serialize as arrays
func ensureIDArrays(ids domain.IdentifierSet) domain.IdentifierSet {
	if ids.ProductIDs == nil {
		ids.ProductIDs = []string{}
	}
	if ids.ExtractedIDs == nil {
		ids.ExtractedIDs = []string{}
	}
	return ids
}

// unionStrings concatenates two identifier lists dropping empties and
// duplicates. Returns nil when there is nothing to keep.
func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// isBlank treats whitespace-only strings as absent
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
