package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartlens/backend/config"
	"github.com/cartlens/backend/internal/infrastructure/capture"
	"github.com/cartlens/backend/internal/infrastructure/extraction"
	"github.com/cartlens/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	exitCode := m.Run()

	os.Exit(exitCode)
}

// setupTestRouter wires a full router with real services and a pinned clock.
// Rate limiting is disabled so tests can hammer the endpoints.
func setupTestRouter() *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
		Matching: config.MatchingConfig{
			MinConfidence:            "high",
			TitleSimilarityThreshold: 0.8,
		},
	}

	matchConfig := usecase.MatchConfig{
		MinConfidence:            "high",
		TitleSimilarityThreshold: 0.8,
	}
	matcher := usecase.NewMatchingService(matchConfig, nil)
	enricher := usecase.NewEnrichmentService(matcher, matchConfig, nil).
		WithClock(func() time.Time {
			return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		})

	extractor := extraction.NewExtractor(extraction.Config{}, nil, nil)
	normalizer := capture.NewNormalizer(extractor, nil)

	handler := NewHandler(enricher, normalizer, nil)
	return SetupRouter(cfg, handler, zap.NewNop())
}

func postJSON(t *testing.T, router *gin.Engine, path, payload string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req, _ := http.NewRequest("POST", path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return w, response
}

func responseItems(t *testing.T, response map[string]interface{}) []interface{} {
	t.Helper()

	items, ok := response["items"].([]interface{})
	if !ok {
		t.Fatalf("items is not an array: %v", response["items"])
	}
	return items
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "cartlens-backend" {
			t.Errorf("service = %v, want cartlens-backend", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestEnrichCartEndpoint tests enrichment of pre-normalized payloads
func TestEnrichCartEndpoint(t *testing.T) {
	t.Run("matches by shared SKU", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{
			"cartItems": [{"title": "Trail Shoe", "ids": {"productIds": [], "extractedIds": [], "skus": ["ABC123"]}}],
			"viewedProducts": [{"title": "Trail Shoe", "brand": "Summit", "ids": {"productIds": [], "extractedIds": [], "skus": ["ABC123"]}}]
		}`
		w, response := postJSON(t, router, "/api/v1/cart/enrich", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}

		items := responseItems(t, response)
		if len(items) != 1 {
			t.Fatalf("len(items) = %d, want 1", len(items))
		}

		item := items[0].(map[string]interface{})
		if item["wasViewed"] != true {
			t.Errorf("wasViewed = %v, want true", item["wasViewed"])
		}
		if item["matchMethod"] != "sku" {
			t.Errorf("matchMethod = %v, want sku", item["matchMethod"])
		}
		if item["matchConfidence"] != "high" {
			t.Errorf("matchConfidence = %v, want high", item["matchConfidence"])
		}
		if item["brand"] != "Summit" {
			t.Errorf("brand = %v, want Summit", item["brand"])
		}

		summary := response["summary"].(map[string]interface{})
		if summary["matchedItems"] != float64(1) {
			t.Errorf("matchedItems = %v, want 1", summary["matchedItems"])
		}
		if summary["matchRate"] != float64(100) {
			t.Errorf("matchRate = %v, want 100", summary["matchRate"])
		}
	})

	t.Run("filters sub-threshold matches by default", func(t *testing.T) {
		router := setupTestRouter()

		// URL-only match is medium confidence; the default threshold is high
		payload := `{
			"cartItems": [{"title": "Desk Lamp", "url": "https://shop.example.com/p/lamp-1", "ids": {"productIds": [], "extractedIds": []}}],
			"viewedProducts": [{"title": "Desk Lamp", "url": "https://shop.example.com/p/lamp-1/", "ids": {"productIds": [], "extractedIds": []}}]
		}`
		w, response := postJSON(t, router, "/api/v1/cart/enrich", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		item := responseItems(t, response)[0].(map[string]interface{})
		if item["wasViewed"] != false {
			t.Errorf("wasViewed = %v, want false", item["wasViewed"])
		}
		if item["matchConfidence"] != "none" {
			t.Errorf("matchConfidence = %v, want none", item["matchConfidence"])
		}
	})

	t.Run("honors minConfidence option", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{
			"cartItems": [{"title": "Desk Lamp", "url": "https://shop.example.com/p/lamp-1", "ids": {"productIds": [], "extractedIds": []}}],
			"viewedProducts": [{"title": "Desk Lamp", "url": "https://shop.example.com/p/lamp-1/", "ids": {"productIds": [], "extractedIds": []}}],
			"options": {"minConfidence": "medium"}
		}`
		w, response := postJSON(t, router, "/api/v1/cart/enrich", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		item := responseItems(t, response)[0].(map[string]interface{})
		if item["wasViewed"] != true {
			t.Errorf("wasViewed = %v, want true", item["wasViewed"])
		}
		if item["matchMethod"] != "url" {
			t.Errorf("matchMethod = %v, want url", item["matchMethod"])
		}
	})

	t.Run("rejects mismatched store identifiers", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{
			"cartItems": [{"title": "A", "storeId": "5246", "ids": {"productIds": [], "extractedIds": []}}],
			"viewedProducts": [{"title": "A", "storeId": "9999", "ids": {"productIds": [], "extractedIds": []}}]
		}`
		w, response := postJSON(t, router, "/api/v1/cart/enrich", payload)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if response["code"] != "store_id_mismatch" {
			t.Errorf("code = %v, want store_id_mismatch", response["code"])
		}
	})

	t.Run("rejects oversized cart collections", func(t *testing.T) {
		router := setupTestRouter()

		var b strings.Builder
		b.WriteString(`{"cartItems": [`)
		for i := 0; i < 51; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`{"title": "x", "ids": {"productIds": [], "extractedIds": []}}`)
		}
		b.WriteString(`], "viewedProducts": []}`)

		w, response := postJSON(t, router, "/api/v1/cart/enrich", b.String())

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if response["error"] == nil {
			t.Error("expected error field in response")
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		router := setupTestRouter()

		w, _ := postJSON(t, router, "/api/v1/cart/enrich", `{invalid json}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("empty collections produce an empty result", func(t *testing.T) {
		router := setupTestRouter()

		w, response := postJSON(t, router, "/api/v1/cart/enrich", `{"cartItems": [], "viewedProducts": []}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		if len(responseItems(t, response)) != 0 {
			t.Errorf("items = %v, want empty", response["items"])
		}
		summary := response["summary"].(map[string]interface{})
		if summary["totalItems"] != float64(0) {
			t.Errorf("totalItems = %v, want 0", summary["totalItems"])
		}
		if summary["matchRate"] != float64(0) {
			t.Errorf("matchRate = %v, want 0", summary["matchRate"])
		}
	})

	t.Run("applies request-level store identifier", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{
			"storeId": "5246",
			"cartItems": [{"title": "A", "ids": {"productIds": [], "extractedIds": []}}],
			"viewedProducts": []
		}`
		w, response := postJSON(t, router, "/api/v1/cart/enrich", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if response["storeId"] != "5246" {
			t.Errorf("storeId = %v, want 5246", response["storeId"])
		}
	})
}

// TestEnrichEventsEndpoint tests the raw capture pipeline end to end:
// normalization, identifier extraction and enrichment in one call
func TestEnrichEventsEndpoint(t *testing.T) {
	t.Run("normalizes and matches raw events", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{
			"cartEvent": {
				"storeId": "5246",
				"items": [{"name": "Canvas Tote", "link": "https://shop.example.com/product/tote-bag/98765", "price": "$12.99"}]
			},
			"productViewEvents": [
				{"title": "Canvas Tote", "url": "https://shop.example.com/product/tote-bag/98765", "brand": "Baggu", "storeId": "5246"}
			],
			"options": {"minConfidence": "medium"}
		}`
		w, response := postJSON(t, router, "/api/v1/events/enrich", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}

		items := responseItems(t, response)
		if len(items) != 1 {
			t.Fatalf("len(items) = %d, want 1", len(items))
		}

		item := items[0].(map[string]interface{})
		if item["wasViewed"] != true {
			t.Errorf("wasViewed = %v, want true", item["wasViewed"])
		}
		if item["matchMethod"] != "url" {
			t.Errorf("matchMethod = %v, want url", item["matchMethod"])
		}
		if item["price"] != float64(1299) {
			t.Errorf("price = %v, want 1299 minor units", item["price"])
		}
		if item["brand"] != "Baggu" {
			t.Errorf("brand = %v, want Baggu", item["brand"])
		}
		if response["storeId"] != "5246" {
			t.Errorf("storeId = %v, want 5246", response["storeId"])
		}
	})

	t.Run("skips unusable entries instead of failing", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{
			"cartEvent": {
				"items": [{"name": "Canvas Tote"}, {"quantity": 2}]
			},
			"productViewEvents": []
		}`
		w, response := postJSON(t, router, "/api/v1/events/enrich", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		summary := response["summary"].(map[string]interface{})
		if summary["totalItems"] != float64(1) {
			t.Errorf("totalItems = %v, want 1", summary["totalItems"])
		}
	})

	t.Run("rejects oversized cart events", func(t *testing.T) {
		router := setupTestRouter()

		var b strings.Builder
		b.WriteString(`{"cartEvent": {"items": [`)
		for i := 0; i < 51; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`{"name": "x"}`)
		}
		b.WriteString(`]}, "productViewEvents": []}`)

		w, _ := postJSON(t, router, "/api/v1/events/enrich", b.String())

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects missing cartEvent", func(t *testing.T) {
		router := setupTestRouter()

		w, _ := postJSON(t, router, "/api/v1/events/enrich", `{"productViewEvents": []}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for Chrome extension", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefghijklmnop")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "chrome-extension://abcdefghijklmnop" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "chrome-extension://abcdefghijklmnop")
		}
	})

	t.Run("enrich endpoint has CORS for localhost", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/v1/cart/enrich", strings.NewReader(`{"cartItems": [], "viewedProducts": []}`))
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "http://localhost:3000")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter()

		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"POST", "/api/v1/cart/enrich"},
		{"POST", "/api/v1/events/enrich"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter()

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
