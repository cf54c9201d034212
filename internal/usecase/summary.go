package usecase

import (
	"math"

	"github.com/cartlens/backend/internal/domain"
)

// calculateSummary reduces an enriched collection into aggregate statistics
// in a single pass. Every item lands in exactly one confidence bucket, so
// the buckets always sum to the total.
func calculateSummary(items []domain.EnrichedCartItem) domain.EnrichmentSummary {
	summary := domain.EnrichmentSummary{TotalItems: len(items)}

	for i := range items {
		if items[i].WasViewed {
			summary.MatchedItems++
		}

		switch items[i].MatchConfidence {
		case domain.ConfidenceHigh:
			summary.ByConfidence.High++
		case domain.ConfidenceMedium:
			summary.ByConfidence.Medium++
		case domain.ConfidenceLow:
			summary.ByConfidence.Low++
		default:
			summary.ByConfidence.None++
		}

		switch items[i].MatchMethod {
		case domain.MethodSKU:
			summary.ByMethod.SKU++
		case domain.MethodVariantSKU:
			summary.ByMethod.VariantSKU++
		case domain.MethodImageSKU:
			summary.ByMethod.ImageSKU++
		case domain.MethodURL:
			summary.ByMethod.URL++
		case domain.MethodExtractedID:
			summary.ByMethod.ExtractedID++
		case domain.MethodExtractedIDSKU:
			summary.ByMethod.ExtractedIDSKU++
		case domain.MethodTitleColor:
			summary.ByMethod.TitleColor++
		case domain.MethodTitle:
			summary.ByMethod.Title++
		case domain.MethodPrice:
			summary.ByMethod.Price++
		}
	}

	summary.UnmatchedItems = summary.TotalItems - summary.MatchedItems
	if summary.TotalItems > 0 {
		rate := float64(summary.MatchedItems) / float64(summary.TotalItems) * 100
		summary.MatchRate = math.Round(rate*100) / 100
	}

	return summary
}
