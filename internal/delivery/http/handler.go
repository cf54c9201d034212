package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cartlens/backend/internal/domain"
	"github.com/cartlens/backend/internal/infrastructure/capture"
	"github.com/cartlens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	enricher   *usecase.EnrichmentService
	normalizer *capture.Normalizer
	logger     *zap.SugaredLogger
}

// NewHandler creates a new HTTP handler
func NewHandler(enricher *usecase.EnrichmentService, normalizer *capture.Normalizer, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Handler{
		enricher:   enricher,
		normalizer: normalizer,
		logger:     logger,
	}
}

// enrichCartRequest is the pre-normalized enrichment payload. Collection caps
// mirror the upstream capture limits.
type enrichCartRequest struct {
	StoreID        string                 `json:"storeId"`
	CartItems      []domain.CartItem      `json:"cartItems" binding:"max=50"`
	ViewedProducts []domain.ViewedProduct `json:"viewedProducts" binding:"max=50"`
	Options        domain.EnrichOptions   `json:"options"`
}

// enrichEventsRequest carries raw merchant capture events that still need
// normalization and identifier extraction
type enrichEventsRequest struct {
	CartEvent         domain.CartCaptureEvent   `json:"cartEvent" binding:"required"`
	ProductViewEvents []domain.ProductViewEvent `json:"productViewEvents" binding:"max=50"`
	Options           domain.EnrichOptions      `json:"options"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cartlens-backend",
		"version": "1.0.0",
	})
}

// EnrichCart matches pre-normalized cart items against viewed products and
// returns the enriched cart
func (h *Handler) EnrichCart(c *gin.Context) {
	var req enrichCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}

	applyStoreID(req.StoreID, req.CartItems, req.ViewedProducts)

	result, err := h.enricher.EnrichCart(c.Request.Context(), req.CartItems, req.ViewedProducts, req.Options)
	if err != nil {
		h.enrichmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// EnrichEvents accepts raw capture events, normalizes them and runs the same
// enrichment as EnrichCart. Unusable entries are skipped during
// normalization, never fatal.
func (h *Handler) EnrichEvents(c *gin.Context) {
	var req enrichEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}

	if len(req.CartEvent.Items) > 50 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "cartEvent.items exceeds the 50 item limit",
		})
		return
	}

	ctx := c.Request.Context()
	cartItems := h.normalizer.NormalizeCartEvent(ctx, req.CartEvent)
	viewedProducts := h.normalizer.NormalizeProductEvents(ctx, req.ProductViewEvents)

	result, err := h.enricher.EnrichCart(ctx, cartItems, viewedProducts, req.Options)
	if err != nil {
		h.enrichmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// bindingError maps request decoding and validation failures to a 400 with
// per-field details when the validator produced them
func (h *Handler) bindingError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]string, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details[fieldErr.Field()] = fieldErr.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "request validation failed",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error": "invalid request body",
	})
}

// enrichmentError maps service failures: the store mismatch is a client
// error, everything else stays a generic 500
func (h *Handler) enrichmentError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrStoreIDMismatch) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  "store_id_mismatch",
		})
		return
	}

	h.logger.Errorw("enrichment failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "internal server error",
	})
}

// applyStoreID fills the request-level store identifier into entries that did
// not carry their own
func applyStoreID(storeID string, items []domain.CartItem, products []domain.ViewedProduct) {
	if storeID == "" {
		return
	}
	for i := range items {
		if items[i].StoreID == "" {
			items[i].StoreID = storeID
		}
	}
	for i := range products {
		if products[i].StoreID == "" {
			products[i].StoreID = storeID
		}
	}
}
