//go:build integration

// Package integration contains integration tests for the trade execution engine.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle through auth and handlers
// - WebSocket tests: connection, broadcast of executed trades
// - Database tests: transactions, row locking, idempotency under concurrency
//
// Integration tests use build tag "integration" to separate from unit tests.
// Run with: go test -tags=integration ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"fxtrade/internal/api"
	"fxtrade/internal/repository"
	"fxtrade/internal/service"
	"fxtrade/internal/websocket"
	"fxtrade/pkg/crypto"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	_ "github.com/lib/pq"
)

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB      *sql.DB
	Router  *mux.Router
	Server  *httptest.Server
	Hub     *websocket.Hub
	Repos   *TestRepositories
	Trades  *service.TradeService
	Cleanup func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Account *repository.AccountRepository
	Trade   *repository.TradeRepository
	Rate    *repository.MarketRateRepository
	Audit   *repository.AuditRepository
	Token   *repository.TokenRepository
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "fxtrade_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}

	logger := zap.NewNop()

	hub := websocket.NewHub(logger)
	go hub.Run()

	repos := &TestRepositories{
		Account: repository.NewAccountRepository(db),
		Trade:   repository.NewTradeRepository(db),
		Rate:    repository.NewMarketRateRepository(db),
		Audit:   repository.NewAuditRepository(db),
		Token:   repository.NewTokenRepository(db),
	}

	// Fixed seed keeps simulated rates deterministic across runs
	rateService := service.NewMarketRateService(repos.Rate, 1)
	auditService := service.NewAuditService(repos.Audit)

	trades := service.NewTradeService(
		db,
		repos.Account,
		repos.Trade,
		rateService,
		auditService,
		hub,
		logger,
		service.TradeServiceConfig{
			LockTimeout:    3 * time.Second,
			TxMaxAttempts:  3,
			TxRetryBackoff: 20 * time.Millisecond,
		},
	)

	deps := &api.Dependencies{
		Trades:        trades,
		TradeRepo:     repos.Trade,
		AccountRepo:   repos.Account,
		Rates:         rateService,
		Tokens:        repos.Token,
		Hub:           hub,
		OriginChecker: websocket.NewOriginChecker("*"),
		CORSOrigins:   "*",
		Logger:        logger,
	}
	router := api.SetupRoutes(deps)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		hub.Stop()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:      db,
		Router:  router,
		Server:  server,
		Hub:     hub,
		Repos:   repos,
		Trades:  trades,
		Cleanup: cleanup,
	}
}

// initTestTables creates tables for testing, mirroring migrations/
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id),
			name VARCHAR(255) NOT NULL DEFAULT '',
			currency CHAR(3) NOT NULL,
			balance NUMERIC(28, 8) NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT accounts_balance_non_negative CHECK (balance >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id),
			from_account_id BIGINT NOT NULL REFERENCES accounts (id),
			to_account_id BIGINT REFERENCES accounts (id),
			from_currency CHAR(3) NOT NULL,
			to_currency CHAR(3) NOT NULL,
			from_amount NUMERIC(28, 8) NOT NULL,
			to_amount NUMERIC(28, 8) NOT NULL,
			rate NUMERIC(28, 8) NOT NULL,
			side VARCHAR(4) NOT NULL,
			status VARCHAR(16) NOT NULL,
			client_order_id VARCHAR(64),
			executed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS trades_client_order_id_key
			ON trades (client_order_id) WHERE client_order_id IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS market_rates (
			id BIGSERIAL PRIMARY KEY,
			pair VARCHAR(7) NOT NULL UNIQUE,
			base_currency CHAR(3) NOT NULL,
			quote_currency CHAR(3) NOT NULL,
			rate NUMERIC(28, 8) NOT NULL,
			bid NUMERIC(28, 8),
			ask NUMERIC(28, 8),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT REFERENCES users (id),
			action VARCHAR(64) NOT NULL,
			entity_type VARCHAR(64) NOT NULL,
			entity_id BIGINT,
			old_values JSONB,
			new_values JSONB,
			ip_address VARCHAR(45),
			user_agent TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS api_tokens (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id),
			name VARCHAR(255) NOT NULL,
			token_hash VARCHAR(255) NOT NULL,
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Base pairs used by the tests
	_, err := db.Exec(`
		INSERT INTO market_rates (pair, base_currency, quote_currency, rate)
		VALUES
			('GBP/EUR', 'GBP', 'EUR', 1.145),
			('GBP/USD', 'GBP', 'USD', 1.268),
			('EUR/USD', 'EUR', 'USD', 1.107)
		ON CONFLICT (pair) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to seed market rates: %w", err)
	}

	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"audit_logs",
		"trades",
		"api_tokens",
		"accounts",
		"users",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}

// seedUser inserts a user and returns its id
func seedUser(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`,
		name, fmt.Sprintf("%s-%d@test.local", name, time.Now().UnixNano()),
	).Scan(&id)
	if err != nil {
		t.Fatalf("seedUser: %v", err)
	}
	return id
}

// seedAccount inserts an account and returns its id
func seedAccount(t *testing.T, db *sql.DB, userID int64, currency, balance string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO accounts (user_id, currency, balance, status) VALUES ($1, $2, $3, 'active') RETURNING id`,
		userID, currency, balance,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seedAccount: %v", err)
	}
	return id
}

// seedToken creates an API token and returns the Authorization header value
func seedToken(t *testing.T, db *sql.DB, userID int64) string {
	t.Helper()
	secret := "integration-secret"
	hash, err := crypto.HashToken(secret)
	if err != nil {
		t.Fatalf("seedToken: hash: %v", err)
	}
	var id int64
	err = db.QueryRow(
		`INSERT INTO api_tokens (user_id, name, token_hash) VALUES ($1, 'test', $2) RETURNING id`,
		userID, hash,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seedToken: %v", err)
	}
	return fmt.Sprintf("Bearer %d:%s", id, secret)
}

// accountBalance reads the current balance of an account
func accountBalance(t *testing.T, db *sql.DB, accountID int64) decimal.Decimal {
	t.Helper()
	var raw string
	if err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&raw); err != nil {
		t.Fatalf("accountBalance: %v", err)
	}
	return decimal.RequireFromString(raw)
}
