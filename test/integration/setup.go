package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/cache"
	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/handler"
	"shopfront/internal/payment"
	"shopfront/internal/repository"
	"shopfront/internal/router"
	"shopfront/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testJWTSecret     = "integration-secret"
	testWebhookSecret = "integration-webhook-secret"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// poolMaxConns is kept small so concurrency tests can outnumber the pool.
const poolMaxConns = 8

// SetupTestDB starts a PostgreSQL container, applies the migrations and opens a pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.Migrate(connStr, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.MaxConns = poolMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedProduct inserts a product with the given price and returns its ID.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name, price string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		"INSERT INTO products (id, name, price, category) VALUES ($1, $2, $3, $4)",
		id, name, decimal.RequireFromString(price), "integration",
	)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}
	return id
}

// SeedCoupon inserts a coupon expiring at expire.
func SeedCoupon(t *testing.T, pool *pgxpool.Pool, name string, expire time.Time, discount string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"INSERT INTO coupons (id, name, expire, discount) VALUES ($1, $2, $3, $4)",
		uuid.New(), name, expire, decimal.RequireFromString(discount),
	)
	if err != nil {
		t.Fatalf("failed to seed coupon %s: %v", name, err)
	}
}

// CleanupDB removes all data from the service tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"TRUNCATE order_events, order_items, orders, cart_items, carts, coupons, products CASCADE")
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// TestApp is the full HTTP stack wired against a test database.
type TestApp struct {
	Handler http.Handler
	Tokens  *auth.Tokens
	Carts   service.CartService
	Orders  service.OrderService
	Outbox  repository.OutboxRepository
}

// NewTestApp wires repositories, services and the router the way cmd/api does.
// gatewayURL enables online payments against a fake gateway when not empty.
func NewTestApp(t *testing.T, testDB *TestDB, gatewayURL string) *TestApp {
	t.Helper()

	logger := zerolog.Nop()

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	couponRepo := repository.NewCouponRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	outboxRepo := repository.NewOutboxRepository(testDB.Pool, logger)

	var gateway service.PaymentGateway
	if gatewayURL != "" {
		gateway = payment.NewClient(config.PaymentConfig{
			BaseURL:    gatewayURL,
			APIKey:     "sk_test",
			Currency:   "SAR",
			Timeout:    2 * time.Second,
			MaxRetries: 1,
		}, logger, payment.WithRetryInterval(10*time.Millisecond))
	}

	cartCache := cache.NoopCache{}
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productService, cartCache, logger)
	couponService := service.NewCouponService(couponRepo, cartRepo, productService, cartCache, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, outboxRepo, gateway, cartCache, logger)

	tokens := auth.NewTokens(testJWTSecret)

	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Carts:    handler.NewCartHandler(cartService, couponService, logger),
		Coupons:  handler.NewCouponHandler(couponService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
	}, router.Options{
		Tokens:        tokens,
		WebhookSecret: testWebhookSecret,
	}, logger)

	return &TestApp{
		Handler: mux,
		Tokens:  tokens,
		Carts:   cartService,
		Orders:  orderService,
		Outbox:  outboxRepo,
	}
}

// Token returns a bearer token for a new identity with the given role.
func (a *TestApp) Token(t *testing.T, role string) (uuid.UUID, string) {
	t.Helper()

	id := uuid.New()
	token, err := a.Tokens.Issue(auth.Identity{UserID: id, Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return id, fmt.Sprintf("Bearer %s", token)
}
