package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cartlens/backend/internal/domain"
)

// Clock returns the current time. Injectable so tests can pin enrichedAt.
type Clock func() time.Time

// EnrichmentService drives cart enrichment end to end: store validation,
// per-item matching, field merging and the summary
type EnrichmentService struct {
	matcher *MatchingService
	config  MatchConfig
	clock   Clock
	logger  *zap.SugaredLogger
}

// NewEnrichmentService creates the orchestrator. Zero-valued config fields
// fall back to the same defaults as the matching service.
func NewEnrichmentService(matcher *MatchingService, config MatchConfig, logger *zap.SugaredLogger) *EnrichmentService {
	if config.MinConfidence == "" {
		config.MinConfidence = defaultMinConfidence
	}
	if config.TitleSimilarityThreshold <= 0 {
		config.TitleSimilarityThreshold = defaultTitleThreshold
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &EnrichmentService{
		matcher: matcher,
		config:  config,
		clock:   time.Now,
		logger:  logger,
	}
}

// WithClock overrides the time source. Meant for tests that need a
// deterministic enrichedAt.
func (s *EnrichmentService) WithClock(clock Clock) *EnrichmentService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// EnrichCart matches every cart item against the viewed products and builds
// the enriched result. Items come back in input order, one output item per
// input item. The only fatal condition is a store mismatch between the two
// collections; every other irregularity degrades to a lower-confidence or
// unmatched item.
func (s *EnrichmentService) EnrichCart(
	ctx context.Context,
	cartItems []domain.CartItem,
	viewedProducts []domain.ViewedProduct,
	opts domain.EnrichOptions,
) (*domain.EnrichedCart, error) {
	if err := validateStoreIDs(cartItems, viewedProducts); err != nil {
		return nil, err
	}

	minConfidence := s.config.MinConfidence
	if opts.MinConfidence != "" {
		minConfidence = opts.MinConfidence
	}

	enrichedAt := s.clock().UTC()
	items := make([]domain.EnrichedCartItem, 0, len(cartItems))
	for i := range cartItems {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		outcome := s.matcher.findBestMatch(cartItems[i], viewedProducts, opts)
		items = append(items, mergeFields(cartItems[i], outcome, minConfidence, enrichedAt))
	}

	summary := calculateSummary(items)
	if s.config.EnableDebugLogging {
		s.logger.Debugw("cart enriched",
			"store", effectiveStoreID(cartItems, viewedProducts),
			"items", summary.TotalItems,
			"matched", summary.MatchedItems,
			"matchRate", summary.MatchRate,
		)
	}

	return &domain.EnrichedCart{
		StoreID:    effectiveStoreID(cartItems, viewedProducts),
		Items:      items,
		Summary:    summary,
		EnrichedAt: enrichedAt,
	}, nil
}

// validateStoreIDs rejects the call when the cart and the viewed products
// both name a store and the stores differ. Missing store IDs on either side
// are fine; cross-checking happens only when both are present.
func validateStoreIDs(cartItems []domain.CartItem, products []domain.ViewedProduct) error {
	if len(cartItems) == 0 || len(products) == 0 {
		return nil
	}
	cartStore := cartItems[0].StoreID
	productStore := products[0].StoreID
	if cartStore != "" && productStore != "" && cartStore != productStore {
		return fmt.Errorf("%w: cart store %q, product store %q", domain.ErrStoreIDMismatch, cartStore, productStore)
	}
	return nil
}

// effectiveStoreID prefers the cart's store identifier, falling back to the
// viewed products'
func effectiveStoreID(cartItems []domain.CartItem, products []domain.ViewedProduct) string {
	if len(cartItems) > 0 && cartItems[0].StoreID != "" {
		return cartItems[0].StoreID
	}
	if len(products) > 0 {
		return products[0].StoreID
	}
	return ""
}
