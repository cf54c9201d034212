package capture

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cartlens/backend/internal/domain"
)

// Field aliases seen across capture clients. Order matters: earlier keys win.
var (
	titleKeys     = []string{"title", "name", "productName", "product_name"}
	urlKeys       = []string{"url", "link", "productUrl", "product_url", "href"}
	imageKeys     = []string{"imageUrl", "image_url", "image", "img", "thumbnail"}
	minorUnitKeys = []string{"priceCents", "price_cents", "priceInCents"}
	priceKeys     = []string{"price", "amount", "unitPrice", "unit_price"}
	lineTotalKeys = []string{"lineTotal", "line_total", "total", "linePrice"}
	quantityKeys  = []string{"quantity", "qty", "count"}
	skuKeys       = []string{"sku", "skuId", "sku_id"}
	productIDKeys = []string{"productId", "product_id", "itemId", "item_id"}
	gtinKeys      = []string{"gtin", "gtin13", "ean", "upc", "barcode"}
	mpnKeys       = []string{"mpn", "manufacturerPartNumber"}
)

// priceValueRegex pulls the numeric run out of formatted price strings like
// "$12.99" or "1.299,00 kr"
var priceValueRegex = regexp.MustCompile(`\d[\d.,]*`)

// Normalizer turns raw capture payloads into typed cart items and viewed
// products. Entries that carry nothing to match on are dropped rather than
// failing the whole event.
type Normalizer struct {
	extractor domain.IDExtractor
	logger    *zap.SugaredLogger
}

// NewNormalizer creates a capture payload normalizer. The extractor is
// optional; without one items simply carry no URL-derived identifiers.
func NewNormalizer(extractor domain.IDExtractor, logger *zap.SugaredLogger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Normalizer{
		extractor: extractor,
		logger:    logger,
	}
}

// NormalizeCartEvent converts a raw cart capture into typed cart items,
// preserving entry order and skipping entries with nothing to match on
func (n *Normalizer) NormalizeCartEvent(ctx context.Context, event domain.CartCaptureEvent) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(event.Items))
	for i, raw := range event.Items {
		item, ok := n.normalizeCartItem(ctx, raw, event.StoreID)
		if !ok {
			n.logger.Debugw("skipping unusable cart entry", "index", i)
			continue
		}
		items = append(items, item)
	}
	return items
}

func (n *Normalizer) normalizeCartItem(ctx context.Context, raw map[string]interface{}, storeID string) (domain.CartItem, bool) {
	item := domain.CartItem{
		Title:    firstString(raw, titleKeys...),
		URL:      firstString(raw, urlKeys...),
		ImageURL: firstString(raw, imageKeys...),
		StoreID:  firstString(raw, "storeId", "store_id"),
		IDs:      collectIdentifiers(raw),
	}
	if item.StoreID == "" {
		item.StoreID = storeID
	}

	item.Price = firstPrice(raw, minorUnitKeys, priceKeys)
	item.Quantity = firstQuantity(raw)
	item.LineTotal = firstPrice(raw, nil, lineTotalKeys)
	if item.LineTotal == 0 && item.Price > 0 {
		item.LineTotal = item.Price * int64(item.Quantity)
	}

	if n.extractor != nil && item.URL != "" {
		item.IDs.ExtractedIDs = n.extractor.Extract(ctx, item.URL, item.StoreID)
	}

	usable := item.Title != "" || item.URL != "" ||
		len(item.IDs.SKUs) > 0 || len(item.IDs.ProductIDs) > 0
	return item, usable
}

// NormalizeProductEvents converts raw product views, dropping unusable ones
func (n *Normalizer) NormalizeProductEvents(ctx context.Context, events []domain.ProductViewEvent) []domain.ViewedProduct {
	products := make([]domain.ViewedProduct, 0, len(events))
	for i, event := range events {
		product, ok := n.NormalizeProductEvent(ctx, event)
		if !ok {
			n.logger.Debugw("skipping unusable product view", "index", i)
			continue
		}
		products = append(products, product)
	}
	return products
}

// NormalizeProductEvent converts one raw product view. The second return
// value is false when the payload carries nothing to match on.
func (n *Normalizer) NormalizeProductEvent(ctx context.Context, event domain.ProductViewEvent) (domain.ViewedProduct, bool) {
	raw := map[string]interface{}(event)

	product := domain.ViewedProduct{
		Title:       firstString(raw, titleKeys...),
		URL:         firstString(raw, urlKeys...),
		ImageURL:    firstString(raw, imageKeys...),
		StoreID:     firstString(raw, "storeId", "store_id"),
		Brand:       firstString(raw, "brand", "vendor", "manufacturer"),
		Description: firstString(raw, "description", "desc"),
		Category:    firstString(raw, "category", "productType", "product_type"),
		Color:       firstString(raw, "color", "colour"),
		Currency:    firstString(raw, "currency", "currencyCode", "currency_code"),
		Rating:      ratingValue(raw),
		Price:       firstPrice(raw, minorUnitKeys, priceKeys),
		IDs:         collectIdentifiers(raw),
	}

	if n.extractor != nil && product.URL != "" {
		product.IDs.ExtractedIDs = n.extractor.Extract(ctx, product.URL, product.StoreID)
	}

	product.Variants = n.normalizeVariants(ctx, raw["variants"], product.StoreID)
	product.VariantCount = len(product.Variants)
	product.HasVariants = product.VariantCount > 0

	usable := product.Title != "" || product.URL != "" ||
		len(product.IDs.SKUs) > 0 || len(product.IDs.ProductIDs) > 0
	return product, usable
}

func (n *Normalizer) normalizeVariants(ctx context.Context, value interface{}, storeID string) []domain.ProductVariant {
	entries, ok := value.([]interface{})
	if !ok || len(entries) == 0 {
		return nil
	}

	variants := make([]domain.ProductVariant, 0, len(entries))
	for _, entry := range entries {
		raw, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		variant := domain.ProductVariant{
			SKU:      firstString(raw, skuKeys...),
			URL:      firstString(raw, urlKeys...),
			ImageURL: firstString(raw, imageKeys...),
			Color:    firstString(raw, "color", "colour"),
			Currency: firstString(raw, "currency", "currencyCode", "currency_code"),
			Price:    firstPrice(raw, minorUnitKeys, priceKeys),
		}
		if variant.SKU == "" && variant.URL == "" {
			continue
		}
		if n.extractor != nil && variant.URL != "" {
			variant.ExtractedIDs = n.extractor.Extract(ctx, variant.URL, storeID)
		}
		variants = append(variants, variant)
	}

	if len(variants) == 0 {
		return nil
	}
	return variants
}

// collectIdentifiers gathers the explicitly declared identifiers. Extracted
// IDs are not collected here; they only ever come from the URL extractor.
func collectIdentifiers(raw map[string]interface{}) domain.IdentifierSet {
	return domain.IdentifierSet{
		ProductIDs: gatherIDs(raw, productIDKeys, "productIds"),
		SKUs:       gatherIDs(raw, skuKeys, "skus"),
		GTINs:      gatherIDs(raw, gtinKeys, "gtins"),
		MPNs:       gatherIDs(raw, mpnKeys, "mpns"),
	}
}

// gatherIDs collects identifier values from the scalar aliases plus the
// plural list key, deduplicating in first-seen order
func gatherIDs(raw map[string]interface{}, scalarKeys []string, listKey string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(value string) {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		out = append(out, value)
	}

	for _, key := range scalarKeys {
		add(stringValue(raw[key]))
	}
	for _, value := range listValue(raw[listKey]) {
		add(value)
	}
	return out
}

// firstString returns the first non-blank string under the given keys
func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// stringValue renders scalar identifier values as strings. JSON numbers
// arrive as float64, so whole values print without a fraction.
func stringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func listValue(value interface{}) []string {
	entries, ok := value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if s := stringValue(entry); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// firstPrice resolves a price in minor units from the given key groups.
// Minor-unit keys are taken verbatim; the rest go through parsePrice.
func firstPrice(raw map[string]interface{}, minorKeys, majorKeys []string) int64 {
	for _, key := range minorKeys {
		if value, ok := raw[key]; ok {
			if cents := wholeNumber(value); cents > 0 {
				return cents
			}
		}
	}
	for _, key := range majorKeys {
		if value, ok := raw[key]; ok {
			if price := parsePrice(value); price > 0 {
				return price
			}
		}
	}
	return 0
}

func firstQuantity(raw map[string]interface{}) int {
	for _, key := range quantityKeys {
		if value, ok := raw[key]; ok {
			if q := int(wholeNumber(value)); q > 0 {
				return q
			}
		}
	}
	return 1
}

func ratingValue(raw map[string]interface{}) float64 {
	switch v := raw["rating"].(type) {
	case float64:
		if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	case string:
		if r, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && r > 0 {
			return r
		}
	}
	return 0
}

// wholeNumber reads an integral value, tolerating the float64 that JSON
// decoding produces
func wholeNumber(value interface{}) int64 {
	switch v := value.(type) {
	case float64:
		return int64(math.Round(v))
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// parsePrice converts the price shapes capture clients send into minor
// currency units: bare numbers are major units, strings may carry currency
// symbols and either dot or comma decimals ("$12.99", "1.299,00 kr")
func parsePrice(value interface{}) int64 {
	switch v := value.(type) {
	case float64:
		return majorToMinor(v)
	case int:
		return int64(v) * 100
	case int64:
		return v * 100
	case string:
		return parsePriceString(v)
	default:
		return 0
	}
}

func parsePriceString(s string) int64 {
	run := priceValueRegex.FindString(s)
	if run == "" {
		return 0
	}

	// the last dot or comma is the decimal separator when one or two digits
	// follow it; a three-digit tail marks a thousands separator instead
	sep := strings.LastIndexAny(run, ".,")
	decimalAt := -1
	if sep >= 0 && len(run)-sep-1 <= 2 {
		decimalAt = sep
	}

	whole, frac := run, ""
	if decimalAt >= 0 {
		whole, frac = run[:decimalAt], run[decimalAt+1:]
	}
	whole = strings.NewReplacer(".", "", ",", "").Replace(whole)

	v, err := strconv.ParseFloat(whole+"."+frac, 64)
	if err != nil {
		return 0
	}
	return majorToMinor(v)
}

func majorToMinor(v float64) int64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v * 100))
}
