package usecase

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/cartlens/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	// imageSKURegex accepts SKU-shaped filename segments: uppercase
	// alphanumeric runs of 4-10 characters.
	imageSKURegex = regexp.MustCompile(`^[A-Z0-9]{4,10}$`)

	// colorSuffixRegex recognizes the "<Color> [<Size>]:- <repeat>" suffix
	// some merchants append to variant titles, e.g. "Cotton Tee Grey M:- Grey, M".
	// The size token is restricted to apparel sizes so a two-word tail like
	// "Tee Black" cannot be misread as color plus size.
	colorSuffixRegex = regexp.MustCompile(`\s+([A-Za-z]+)(?:\s+((?i:XXS|XS|S|M|L|XL|XXL|XXXL)|\d{1,3}[A-Za-z]?))?\s*:-.*$`)
)

// titleColorSeparators are tried in order when splitting a cart title into
// base and color. The last separator occurrence wins so multi-dash titles
// keep their full base.
var titleColorSeparators = []string{" - ", " – ", " — ", "–", "—"}

// strategyHit is one strategy's raw outcome: the candidate it points at and
// whether the underlying comparison was identity-based.
type strategyHit struct {
	product *domain.ViewedProduct
	variant *domain.ProductVariant
	exact   bool
}

// matchStrategy is one independent matching heuristic. Strategies never
// mutate their inputs and return nil when they do not apply.
type matchStrategy struct {
	method     domain.MatchMethod
	confidence domain.Confidence
	run        func(item domain.CartItem, products []domain.ViewedProduct, cfg MatchConfig) *strategyHit
}

// matchStrategies executes in declaration order. The order doubles as the
// tie-break: when two signals carry the same confidence, the earlier strategy
// stays ahead after the stable sort.
var matchStrategies = []matchStrategy{
	{domain.MethodSKU, domain.ConfidenceHigh, matchBySKU},
	{domain.MethodVariantSKU, domain.ConfidenceHigh, matchByVariantSKU},
	{domain.MethodImageSKU, domain.ConfidenceHigh, matchByImageSKU},
	{domain.MethodExtractedIDSKU, domain.ConfidenceHigh, matchByExtractedIDSKU},
	{domain.MethodURL, domain.ConfidenceMedium, matchByURL},
	{domain.MethodExtractedID, domain.ConfidenceMedium, matchByExtractedID},
	{domain.MethodTitleColor, domain.ConfidenceMedium, matchByTitleColor},
	{domain.MethodTitle, domain.ConfidenceLow, matchByTitle},
}

// matchBySKU matches when the cart item and a product share a SKU
func matchBySKU(item domain.CartItem, products []domain.ViewedProduct, _ MatchConfig) *strategyHit {
	if len(item.IDs.SKUs) == 0 {
		return nil
	}
	for i := range products {
		if intersects(item.IDs.SKUs, products[i].IDs.SKUs) {
			return &strategyHit{product: &products[i], exact: true}
		}
	}
	return nil
}

// matchByVariantSKU matches when a cart SKU names one of a product's variants
func matchByVariantSKU(item domain.CartItem, products []domain.ViewedProduct, _ MatchConfig) *strategyHit {
	if len(item.IDs.SKUs) == 0 {
		return nil
	}
	for i := range products {
		for j := range products[i].Variants {
			variant := &products[i].Variants[j]
			if variant.SKU != "" && containsFold(item.IDs.SKUs, variant.SKU) {
				return &strategyHit{product: &products[i], variant: variant, exact: true}
			}
		}
	}
	return nil
}

// matchByImageSKU matches a SKU-shaped token from the cart image filename
// against product SKUs. Merchants commonly name product images after the SKU.
func matchByImageSKU(item domain.CartItem, products []domain.ViewedProduct, _ MatchConfig) *strategyHit {
	tokens := imageSKUTokens(item.ImageURL)
	if len(tokens) == 0 {
		return nil
	}
	for i := range products {
		if intersects(tokens, products[i].IDs.SKUs) {
			return &strategyHit{product: &products[i], exact: true}
		}
	}
	return nil
}

// matchByExtractedIDSKU matches URL-extracted identifiers against product and
// variant SKUs. Covers merchants that embed the SKU in product page URLs.
func matchByExtractedIDSKU(item domain.CartItem, products []domain.ViewedProduct, _ MatchConfig) *strategyHit {
	if len(item.IDs.ExtractedIDs) == 0 {
		return nil
	}
	for i := range products {
		product := &products[i]
		if intersects(item.IDs.ExtractedIDs, product.IDs.SKUs) {
			return &strategyHit{product: product, exact: true}
		}
		for j := range product.Variants {
			variant := &product.Variants[j]
			if variant.SKU != "" && containsFold(item.IDs.ExtractedIDs, variant.SKU) {
				return &strategyHit{product: product, variant: variant, exact: true}
			}
		}
	}
	return nil
}

// matchByURL matches on normalized URL equality with the product or one of
// its variants
func matchByURL(item domain.CartItem, products []domain.ViewedProduct, _ MatchConfig) *strategyHit {
	cartURL := normalizeURL(item.URL)
	if cartURL == "" {
		return nil
	}
	for i := range products {
		product := &products[i]
		if normalizeURL(product.URL) == cartURL {
			return &strategyHit{product: product, exact: true}
		}
		for j := range product.Variants {
			variant := &product.Variants[j]
			if variant.URL != "" && normalizeURL(variant.URL) == cartURL {
				return &strategyHit{product: product, variant: variant, exact: true}
			}
		}
	}
	return nil
}

// matchByExtractedID matches when the cart and product URL-extracted
// identifier sets overlap, at product or variant level
func matchByExtractedID(item domain.CartItem, products []domain.ViewedProduct, _ MatchConfig) *strategyHit {
	if len(item.IDs.ExtractedIDs) == 0 {
		return nil
	}
	for i := range products {
		product := &products[i]
		if intersects(item.IDs.ExtractedIDs, product.IDs.ExtractedIDs) {
			return &strategyHit{product: product, exact: true}
		}
		for j := range product.Variants {
			variant := &product.Variants[j]
			if intersects(item.IDs.ExtractedIDs, variant.ExtractedIDs) {
				return &strategyHit{product: product, variant: variant, exact: true}
			}
		}
	}
	return nil
}

// matchByTitleColor splits the cart title into base and color, then requires
// the base to match the product title and the color to match the product or
// one of its variants
func matchByTitleColor(item domain.CartItem, products []domain.ViewedProduct, _ MatchConfig) *strategyHit {
	base, color := splitTitleColor(item.Title)
	if color == "" {
		return nil
	}
	for i := range products {
		product := &products[i]
		if !titlesEqualLoose(base, product.Title) {
			continue
		}
		if colorsMatch(color, product.Color) {
			return &strategyHit{product: product, exact: true}
		}
		for j := range product.Variants {
			variant := &product.Variants[j]
			if colorsMatch(color, variant.Color) {
				return &strategyHit{product: product, variant: variant, exact: true}
			}
		}
	}
	return nil
}

// matchByTitle is the fuzzy fallback: the best-scoring product wins if it
// clears the similarity threshold. Never exact.
func matchByTitle(item domain.CartItem, products []domain.ViewedProduct, cfg MatchConfig) *strategyHit {
	if strings.TrimSpace(item.Title) == "" {
		return nil
	}

	var best *domain.ViewedProduct
	bestScore := 0.0
	for i := range products {
		if products[i].Title == "" {
			continue
		}
		score := titleSimilarity(item.Title, products[i].Title)
		if score > bestScore {
			bestScore = score
			best = &products[i]
		}
	}

	if best == nil || bestScore < cfg.TitleSimilarityThreshold {
		return nil
	}
	return &strategyHit{product: best, exact: false}
}

// imageSKUTokens pulls SKU-shaped tokens out of an image URL's filename:
// uppercase alphanumeric runs of 4-10 characters delimited by '-', '_' or '.'
func imageSKUTokens(imageURL string) []string {
	if imageURL == "" {
		return nil
	}

	trimmed := imageURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	base := path.Base(trimmed)
	if base == "." || base == "/" {
		return nil
	}

	var tokens []string
	for _, segment := range strings.FieldsFunc(base, isSKUBoundary) {
		if imageSKURegex.MatchString(segment) {
			tokens = append(tokens, segment)
		}
	}
	return tokens
}

func isSKUBoundary(r rune) bool {
	return r == '-' || r == '_' || r == '.'
}

// splitTitleColor breaks a cart title into base and color. First the
// "<Color> [<Size>]:- <repeat>" suffix shape is tried, then a trailing
// dash-delimited segment. An empty color means the title does not split.
func splitTitleColor(title string) (string, string) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", ""
	}

	if loc := colorSuffixRegex.FindStringSubmatchIndex(trimmed); loc != nil {
		base := strings.TrimSpace(trimmed[:loc[0]])
		color := trimmed[loc[2]:loc[3]]
		if loc[4] >= 0 {
			color += " " + trimmed[loc[4]:loc[5]]
		}
		if base != "" {
			return base, color
		}
	}

	for _, sep := range titleColorSeparators {
		idx := strings.LastIndex(trimmed, sep)
		if idx < 0 {
			continue
		}
		base := strings.TrimSpace(trimmed[:idx])
		color := strings.TrimSpace(trimmed[idx+len(sep):])
		if base != "" && color != "" {
			return base, color
		}
	}

	return trimmed, ""
}

// titlesEqualLoose compares two titles ignoring case and all whitespace
func titlesEqualLoose(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return squashTitle(a) == squashTitle(b)
}

func squashTitle(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// colorsMatch compares colors case-insensitively. The cart color may carry a
// trailing size token ("Grey M" vs product color "Grey"), so a whole-word
// prefix also counts.
func colorsMatch(cartColor, productColor string) bool {
	cart := strings.ToLower(strings.TrimSpace(cartColor))
	product := strings.ToLower(strings.TrimSpace(productColor))
	if cart == "" || product == "" {
		return false
	}
	return cart == product || strings.HasPrefix(cart, product+" ")
}

// normalizeURL lowercases a URL and strips the trailing slash so equivalent
// links compare equal
func normalizeURL(raw string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "/")
}

// intersects reports whether two identifier lists share at least one value.
// Comparison is case-insensitive: extracted IDs arrive lower-cased while
// merchant SKUs usually are not.
func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		if v != "" {
			seen[strings.ToLower(v)] = true
		}
	}
	for _, v := range b {
		if v != "" && seen[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

// containsFold reports whether list contains value, ignoring case
func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
