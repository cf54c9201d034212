package extraction

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cartlens/backend/internal/domain"
)

// Default extraction limits
const (
	defaultTimeout       = 100 * time.Millisecond
	defaultMaxCandidates = 12
	defaultCacheTTL      = 1 * time.Hour
)

// Pre-compiled candidate patterns. All of them are RE2, so matching cost
// stays linear in the URL length no matter what a storefront puts in it.
var (
	// pathPatterns cover the product URL conventions seen across merchants:
	// /product/<slug>/<id>, short /p/<id> paths, Amazon-style /dp/<ASIN>,
	// Walmart-style /ip/<slug>/<id> and trailing numeric runs
	pathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/(?:products?|item|itm)/(?:[^/]+/)*([A-Za-z0-9][A-Za-z0-9_-]{2,31})(?:\.[a-z0-9]{2,5})?/?$`),
		regexp.MustCompile(`(?i)/p/([A-Za-z0-9][A-Za-z0-9_-]{2,31})`),
		regexp.MustCompile(`(?i)/(?:dp|gp/product)/([A-Z0-9]{10})`),
		regexp.MustCompile(`(?i)/ip/(?:[^/]+/)*(\d{5,14})/?$`),
		regexp.MustCompile(`(?i)[/-](\d{6,14})(?:\.html?)?/?$`),
	}

	// queryValuePattern keeps query-derived candidates shaped like real
	// identifiers instead of arbitrary parameter payloads
	queryValuePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{2,31}$`)
)

// idQueryParams are the query parameter names merchants use to carry product
// or variant identifiers
var idQueryParams = map[string]bool{
	"id":         true,
	"productid":  true,
	"product_id": true,
	"pid":        true,
	"sku":        true,
	"skuid":      true,
	"sku_id":     true,
	"variant":    true,
	"variantid":  true,
	"variant_id": true,
	"itemid":     true,
	"item_id":    true,
	"asin":       true,
}

// pathStopwords are path segments the patterns can capture that are site
// navigation rather than identifiers
var pathStopwords = map[string]bool{
	"detail":  true,
	"details": true,
	"view":    true,
	"index":   true,
	"default": true,
}

// Config carries the extractor's operational limits
type Config struct {
	Timeout            time.Duration
	MaxCandidates      int
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// Extractor derives identifier candidates from product and cart URLs. The
// cache is optional; without one every call recomputes.
type Extractor struct {
	config Config
	cache  domain.CacheRepository
	logger *zap.SugaredLogger
}

// NewExtractor creates a URL identifier extractor. Zero-valued config fields
// fall back to the package defaults.
func NewExtractor(config Config, cache domain.CacheRepository, logger *zap.SugaredLogger) *Extractor {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = defaultMaxCandidates
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Extractor{
		config: config,
		cache:  cache,
		logger: logger,
	}
}

// Extract returns the identifier candidates found in rawURL, lowercased,
// deduplicated and sorted, never more than the configured maximum. It never
// fails: unusable URLs and cache trouble both degrade to plain recomputation
// or an empty result.
func (e *Extractor) Extract(ctx context.Context, rawURL, storeID string) []string {
	if strings.TrimSpace(rawURL) == "" {
		return nil
	}

	cacheKey := "extract:" + storeID + ":" + rawURL
	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, cacheKey); err == nil {
			if ids, ok := cached.([]string); ok {
				e.debugLog("extraction cache hit", "key", cacheKey)
				return ids
			}
		}
	}

	ids := e.extract(ctx, rawURL)

	if e.cache != nil {
		if err := e.cache.Set(ctx, cacheKey, ids, e.config.CacheTTL); err != nil {
			e.debugLog("extraction cache store failed", "key", cacheKey, "error", err)
		}
	}

	return ids
}

// extract runs the pattern set against one URL under the configured
// deadline. Hitting the deadline returns whatever was collected so far.
func (e *Extractor) extract(ctx context.Context, rawURL string) []string {
	deadline := time.Now().Add(e.config.Timeout)

	seen := make(map[string]bool)
	var candidates []string
	add := func(raw string) {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" || pathStopwords[id] || seen[id] {
			return
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		path = parsed.Path
		for key, values := range parsed.Query() {
			if !idQueryParams[strings.ToLower(key)] {
				continue
			}
			for _, value := range values {
				if queryValuePattern.MatchString(value) {
					add(value)
				}
			}
		}
	}

	for _, pattern := range pathPatterns {
		if time.Now().After(deadline) {
			e.debugLog("extraction deadline reached", "url", rawURL, "found", len(candidates))
			break
		}
		select {
		case <-ctx.Done():
			return finalizeCandidates(candidates, e.config.MaxCandidates)
		default:
		}

		for _, match := range pattern.FindAllStringSubmatch(path, -1) {
			add(match[1])
		}
	}

	return finalizeCandidates(candidates, e.config.MaxCandidates)
}

// finalizeCandidates sorts and caps the candidate list so output order never
// depends on pattern or query iteration order
func finalizeCandidates(candidates []string, max int) []string {
	sort.Strings(candidates)
	if len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

func (e *Extractor) debugLog(msg string, keysAndValues ...interface{}) {
	if e.config.EnableDebugLogging {
		e.logger.Debugw(msg, keysAndValues...)
	}
}
