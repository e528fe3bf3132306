package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/event"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository/memory"
	redisrepo "github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository/redis"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/service"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/health"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/httputil"
	pkgkafka "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/kafka"
)

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type testServer struct {
	handler http.Handler
	store   *memory.Store
	carts   *memory.CartRepository
}

func newTestServer(t *testing.T, policy domain.MissingReferencePolicy, opts ...func(*RouterConfig)) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := testLogger()
	store := memory.NewStore()
	carts := memory.NewCartRepository()
	producer := event.NewProducer(pkgkafka.NopPublisher{}, "marketplace", logger)

	store.PutSeller(domain.Seller{ID: "s1", Name: "Oasis Farms"})
	store.PutProduct(domain.Product{ID: "p1", Name: "Dates", Price: 10, SellerID: "s1", Stock: 3})
	store.PutProduct(domain.Product{ID: "p2", Name: "Honey", Price: 5, SellerID: "s1", Stock: 10})

	svcs := Services{
		Reviews: service.NewReviewService(store, producer, domain.CheckoutStrict, logger),
		Orders: service.NewOrderService(store, carts, redisrepo.NewIdempotencyStore(client, time.Hour), producer,
			service.CheckoutConfig{Mode: domain.CheckoutStrict, Policy: policy, Timeout: 5 * time.Second}, logger),
		Carts: service.NewCartService(carts, logger),
	}

	h := health.NewHandler()
	h.RegisterCritical("postgres", func(context.Context) error { return nil })

	cfg := RouterConfig{CORSOrigins: []string{"http://localhost:3000"}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testServer{
		handler: NewRouter(svcs, h, cfg, logger),
		store:   store,
		carts:   carts,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

// counterValue reads a counter from the default registry. It returns 0
// when the series has not been created yet.
func counterValue(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// --- Review Tests ---

func TestSubmitReview_CreateThenUpdate(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodPost, "/api/products/p1/reviews", `{"customerId":"c1","customerName":"Sara","rating":4,"comment":"good"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created SubmitReviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, 4.0, created.AvgRating)
	assert.Equal(t, "p1", created.Review.ProductID)

	rec = srv.do(t, http.MethodPost, "/api/products/p1/reviews", `{"customerId":"c1","rating":2,"comment":"stale"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, 2.0, updated["avgRating"])
	review := updated["review"].(map[string]any)
	assert.Equal(t, created.Review.ID, review["id"])
	assert.Equal(t, "Sara", review["customerName"])

	rec = srv.do(t, http.MethodGet, "/api/products/p1/reviews", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Review
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Rating)
}

func TestSubmitReview_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"rating zero", `{"customerId":"c1","rating":0}`, "rating"},
		{"rating six", `{"customerId":"c1","rating":6}`, "rating"},
		{"fractional", `{"customerId":"c1","rating":5.5}`, "rating"},
		{"missing customer", `{"rating":3}`, "customerId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, domain.MissingReferenceSkip)

			rec := srv.do(t, http.MethodPost, "/api/products/p1/reviews", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			errResp := decodeError(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
			assert.Contains(t, errResp.Fields, tt.field)
			assert.Empty(t, srv.store.AllReviews())
		})
	}
}

func TestSubmitReview_InvalidCountedOnce(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)
	before := counterValue(t, "reviews_submitted_total", "outcome", "invalid")

	rec := srv.do(t, http.MethodPost, "/api/products/p1/reviews", `{"customerId":"c1","rating":9}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)

	assert.Equal(t, before+1, counterValue(t, "reviews_submitted_total", "outcome", "invalid"))
}

func TestSubmitReview_MalformedBody(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodPost, "/api/products/p1/reviews", `{"rating":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestSubmitReview_UnknownProduct(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodPost, "/api/products/ghost/reviews", `{"customerId":"c1","rating":3}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestListReviews_EmptyArray(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodGet, "/api/products/p2/reviews", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListReviews_StoreError(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)
	srv.store.FailOn(func(op, _ string) error { return errors.New("connection refused") })

	rec := srv.do(t, http.MethodGet, "/api/products/p1/reviews", "", "X-Correlation-ID", "req-7")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", errResp.Code)
	assert.Equal(t, "req-7", errResp.RequestID)
	assert.NotContains(t, errResp.Message, "connection refused")
}

// --- Order Tests ---

func TestPlaceOrder_Created(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)
	srv.do(t, http.MethodPost, "/api/cart/u1/items", `{"productId":"p1","quantity":1,"price":10}`)

	body := `{"items":[{"productId":"p1","productName":"Dates","quantity":5,"price":10}],"shippingAddress":{"city":"Riyadh"},"customerName":"Sara"}`
	rec := srv.do(t, http.MethodPost, "/api/users/u1/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var order domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.Equal(t, "u1", order.CustomerID)
	assert.Equal(t, 50.0, order.Total)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.JSONEq(t, `{"city":"Riyadh"}`, string(order.ShippingAddress))

	p, _ := srv.store.Product("p1")
	assert.Equal(t, 0, p.Stock)

	rec = srv.do(t, http.MethodGet, "/api/cart/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cart domain.Cart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cart))
	assert.Empty(t, cart.Items)
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodPost, "/api/users/u1/orders", `{"items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must contain at least 1 items", decodeError(t, rec).Fields["items"])
	assert.Empty(t, srv.store.AllOrders())
}

func TestPlaceOrder_QuantityOutOfRange(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodPost, "/api/users/u1/orders", `{"items":[{"productId":"p1","quantity":3000000000,"price":10}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
	assert.Contains(t, errResp.Fields, "items[0].quantity")
	assert.Empty(t, srv.store.AllOrders())
}

func TestPlaceOrder_UnknownStatus(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodPost, "/api/users/u1/orders", `{"items":[{"productId":"p1","quantity":1,"price":10}],"status":"Lost"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestPlaceOrder_MissingReferenceRejected(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceReject)

	rec := srv.do(t, http.MethodPost, "/api/users/u1/orders", `{"items":[{"productId":"p9","quantity":1,"price":10}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "MISSING_REFERENCE", errResp.Code)
	assert.Contains(t, errResp.Message, "p9")
}

func TestPlaceOrder_IdempotencyReplay(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)
	body := `{"items":[{"productId":"p2","quantity":1,"price":5}]}`

	first := srv.do(t, http.MethodPost, "/api/users/u1/orders", body, IdempotencyKeyHeader, "abc-123")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotentReplayedHeader))

	second := srv.do(t, http.MethodPost, "/api/users/u1/orders", body, IdempotencyKeyHeader, "abc-123")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayedHeader))

	var a, b domain.Order
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.ID, b.ID)
	assert.Len(t, srv.store.AllOrders(), 1)
}

func TestPlaceOrder_UnsupportedMediaType(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/orders", strings.NewReader("items=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestListOrdersByUser(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)
	srv.do(t, http.MethodPost, "/api/users/u1/orders", `{"items":[{"productId":"p1","quantity":1,"price":10}],"date":"2025-01-01T10:00:00Z"}`)
	srv.do(t, http.MethodPost, "/api/users/u1/orders", `{"items":[{"productId":"p2","quantity":1,"price":5}],"date":"2025-02-01T10:00:00Z"}`)

	rec := srv.do(t, http.MethodGet, "/api/orders/user/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&orders))
	require.Len(t, orders, 2)
	assert.Equal(t, "p2", orders[0].Items[0].ProductID)

	rec = srv.do(t, http.MethodGet, "/api/orders/user/nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// --- Cart Tests ---

func TestCartLifecycle(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodGet, "/api/cart/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, rec, "items")))

	rec = srv.do(t, http.MethodPost, "/api/cart/u1/items", `{"productId":"p1","name":"Dates","quantity":2,"price":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/cart/u1/items", `{"productId":"p1","name":"Dates","quantity":1,"price":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var cart domain.Cart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	rec = srv.do(t, http.MethodPut, "/api/cart/u1/items/p1", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cart))
	assert.Empty(t, cart.Items)

	rec = srv.do(t, http.MethodDelete, "/api/cart/u1/items/p1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/cart/u1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCart_AddItemValidation(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodPost, "/api/cart/u1/items", `{"productId":"p1","quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Fields, "quantity")
}

func TestCart_UpdateRequiresQuantity(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)
	srv.do(t, http.MethodPost, "/api/cart/u1/items", `{"productId":"p1","quantity":1}`)

	rec := srv.do(t, http.MethodPut, "/api/cart/u1/items/p1", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is required", decodeError(t, rec).Fields["quantity"])
}

func mustField(t *testing.T, rec *httptest.ResponseRecorder, name string) json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body[name]
}

// --- Operational Endpoints ---

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/ready", "").Code)

	srv.do(t, http.MethodGet, "/api/products/p1/reviews", "")
	rec := srv.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/api/products/{id}/reviews"`)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodOptions, "/api/users/u1/orders", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "POST",
	)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestPprofDeniedByDefault(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip)

	rec := srv.do(t, http.MethodGet, "/debug/pprof/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitedAPI(t *testing.T) {
	srv := newTestServer(t, domain.MissingReferenceSkip, func(cfg *RouterConfig) {
		cfg.RateLimitRPS = 0.001
		cfg.RateLimitBurst = 1
	})

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/cart/u1", "").Code)

	rec := srv.do(t, http.MethodGet, "/api/cart/u1", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)

	// Operational endpoints are not limited.
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/live", "").Code)
}
