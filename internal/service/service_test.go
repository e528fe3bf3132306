package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/event"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository/memory"
	redisrepo "github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository/redis"
	pkgkafka "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/kafka"
)

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, e *pkgkafka.Event) error {
	args := m.Called(ctx, topic, e)
	return args.Error(0)
}

func newMockPublisher() *mockPublisher {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var modes = []domain.CheckoutMode{domain.CheckoutStrict, domain.CheckoutLenient}

type fixture struct {
	store     *memory.Store
	carts     *memory.CartRepository
	publisher *mockPublisher
	redis     *miniredis.Miniredis
	reviews   *ReviewService
	orders    *OrderService
	cartSvc   *CartService
}

func newFixture(t *testing.T, mode domain.CheckoutMode, policy domain.MissingReferencePolicy) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.NewStore()
	carts := memory.NewCartRepository()
	pub := newMockPublisher()
	producer := event.NewProducer(pub, "marketplace", newTestLogger())
	logger := newTestLogger()

	return &fixture{
		store:     store,
		carts:     carts,
		publisher: pub,
		redis:     mr,
		reviews:   NewReviewService(store, producer, mode, logger),
		orders: NewOrderService(store, carts, redisrepo.NewIdempotencyStore(client, time.Hour), producer,
			CheckoutConfig{Mode: mode, Policy: policy, Timeout: 5 * time.Second}, logger),
		cartSvc: NewCartService(carts, logger),
	}
}

// seedCatalog stores two sellers and three products:
// p1 (stock 3, s1), p2 (stock 10, s2), p3 (stock 5, s1).
func (f *fixture) seedCatalog() {
	f.store.PutSeller(domain.Seller{ID: "s1", Name: "Oasis Farms"})
	f.store.PutSeller(domain.Seller{ID: "s2", Name: "Hill Apiary"})
	f.store.PutProduct(domain.Product{ID: "p1", Name: "Dates", Price: 10, SellerID: "s1", Stock: 3})
	f.store.PutProduct(domain.Product{ID: "p2", Name: "Honey", Price: 5, SellerID: "s2", Stock: 10})
	f.store.PutProduct(domain.Product{ID: "p3", Name: "Olive Oil", Price: 7, SellerID: "s1", Stock: 5})
}

func (f *fixture) seedCart(t *testing.T, userID string, productIDs ...string) {
	t.Helper()
	for _, id := range productIDs {
		_, err := f.cartSvc.AddItem(context.Background(), userID, AddCartItemInput{ProductID: id, Quantity: 1, Price: 1})
		require.NoError(t, err)
	}
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, ok := f.store.Product(productID)
	require.True(t, ok, "product %s", productID)
	return p.Stock
}

func (f *fixture) sales(t *testing.T, sellerID string) float64 {
	t.Helper()
	s, ok := f.store.Seller(sellerID)
	require.True(t, ok, "seller %s", sellerID)
	return s.TotalSales
}

func rating(r float64) *float64 { return &r }
