package usecase

import (
	"sort"

	"go.uber.org/zap"

	"github.com/cartlens/backend/internal/domain"
)

// Matching defaults and tolerances
const (
	defaultMinConfidence  = domain.ConfidenceHigh
	defaultTitleThreshold = 0.8
	priceTolerancePct     = 0.10 // corroborating price may differ by up to 10%
)

// confidenceRank orders the ordinal confidence scale for sorting and
// threshold checks
var confidenceRank = map[domain.Confidence]int{
	domain.ConfidenceHigh:   3,
	domain.ConfidenceMedium: 2,
	domain.ConfidenceLow:    1,
	domain.ConfidenceNone:   0,
}

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinConfidence            domain.Confidence
	TitleSimilarityThreshold float64
	EnableDebugLogging       bool
}

// MatchingService runs every match strategy for a cart item against the
// viewed-product pool and ranks the collected signals
type MatchingService struct {
	config MatchConfig
	logger *zap.SugaredLogger
}

// NewMatchingService creates a new matching service with the given
// configuration. Zero-valued config fields fall back to defaults.
func NewMatchingService(config MatchConfig, logger *zap.SugaredLogger) *MatchingService {
	if config.MinConfidence == "" {
		config.MinConfidence = defaultMinConfidence
	}
	if config.TitleSimilarityThreshold <= 0 {
		config.TitleSimilarityThreshold = defaultTitleThreshold
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &MatchingService{
		config: config,
		logger: logger,
	}
}

// matchOutcome is the unfiltered verdict for one cart item: every signal the
// strategies produced plus the primary candidate it selects. Confidence
// filtering happens later in the field merger, so a sub-threshold match never
// leaks into the enriched output.
type matchOutcome struct {
	Product    *domain.ViewedProduct
	Variant    *domain.ProductVariant
	Confidence domain.Confidence
	Method     domain.MatchMethod
	Signals    []domain.MatchedSignal
}

// collectedSignal pairs a public signal with the strategy hit that produced
// it so the primary candidate survives the sort.
type collectedSignal struct {
	signal domain.MatchedSignal
	hit    *strategyHit
}

// findBestMatch runs all strategies unconditionally, ranks their signals by
// confidence (stable, so strategy declaration order breaks ties) and selects
// the first as the primary match. A corroborating price signal is appended
// when the cart price is close to the primary candidate's; price alone never
// selects a product.
func (s *MatchingService) findBestMatch(
	item domain.CartItem,
	products []domain.ViewedProduct,
	opts domain.EnrichOptions,
) matchOutcome {
	cfg := s.config
	if opts.TitleSimilarityThreshold > 0 {
		cfg.TitleSimilarityThreshold = opts.TitleSimilarityThreshold
	}

	var collected []collectedSignal
	for _, strategy := range matchStrategies {
		hit := strategy.run(item, products, cfg)
		if hit == nil {
			continue
		}
		collected = append(collected, collectedSignal{
			signal: domain.MatchedSignal{
				Method:     strategy.method,
				Confidence: strategy.confidence,
				Exact:      hit.exact,
			},
			hit: hit,
		})
	}

	if len(collected) == 0 {
		if cfg.EnableDebugLogging {
			s.logger.Debugw("no match signals", "title", item.Title)
		}
		return matchOutcome{
			Confidence: domain.ConfidenceNone,
			Signals:    []domain.MatchedSignal{},
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return confidenceRank[collected[i].signal.Confidence] > confidenceRank[collected[j].signal.Confidence]
	})
	primary := collected[0]

	signals := make([]domain.MatchedSignal, 0, len(collected)+1)
	for _, c := range collected {
		signals = append(signals, c.signal)
	}
	if price := priceSignal(item, primary.hit.product); price != nil {
		signals = append(signals, *price)
	}

	if cfg.EnableDebugLogging {
		s.logger.Debugw("match signals collected",
			"title", item.Title,
			"signals", len(signals),
			"method", primary.signal.Method,
			"confidence", primary.signal.Confidence,
		)
	}

	return matchOutcome{
		Product:    primary.hit.product,
		Variant:    primary.hit.variant,
		Confidence: primary.signal.Confidence,
		Method:     primary.signal.Method,
		Signals:    signals,
	}
}

// priceSignal corroborates an already-selected primary candidate: low
// confidence, exact only when the prices are identical. Variants count too
// since the shopper may have carted a specific option.
func priceSignal(item domain.CartItem, product *domain.ViewedProduct) *domain.MatchedSignal {
	if product == nil || item.Price <= 0 {
		return nil
	}

	prices := make([]int64, 0, len(product.Variants)+1)
	if product.Price > 0 {
		prices = append(prices, product.Price)
	}
	for _, variant := range product.Variants {
		if variant.Price > 0 {
			prices = append(prices, variant.Price)
		}
	}

	for _, price := range prices {
		if price == item.Price {
			return &domain.MatchedSignal{
				Method:     domain.MethodPrice,
				Confidence: domain.ConfidenceLow,
				Exact:      true,
			}
		}
	}
	for _, price := range prices {
		if withinPriceTolerance(item.Price, price) {
			return &domain.MatchedSignal{
				Method:     domain.MethodPrice,
				Confidence: domain.ConfidenceLow,
				Exact:      false,
			}
		}
	}
	return nil
}

// withinPriceTolerance checks the cart price against a product price with a
// relative tolerance
func withinPriceTolerance(cartPrice, productPrice int64) bool {
	diff := cartPrice - productPrice
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) <= priceTolerancePct*float64(productPrice)
}
