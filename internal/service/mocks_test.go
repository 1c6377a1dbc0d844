package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"fxtrade/internal/models"
	"fxtrade/internal/repository"
)

// ============ Mock AccountRepository ============

type MockAccountRepository struct {
	accounts  map[int64]*models.Account
	lockOrder []int64 // порядок вызовов LockForUpdate
	findErr   error
	lockErr   error
	updateErr error

	// failLocks - число первых вызовов LockForUpdate, падающих
	// с deadlock_detected; симуляция проигрыша гонки блокировок
	failLocks int
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[int64]*models.Account),
	}
}

func (m *MockAccountRepository) add(account *models.Account) {
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

func (m *MockAccountRepository) FindByUserAndID(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	account, err := m.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, repository.ErrAccountNotFound
	}
	return account, nil
}

func (m *MockAccountRepository) GetUserAccounts(ctx context.Context, userID int64) ([]*models.Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var result []*models.Account
	for _, account := range m.accounts {
		if account.UserID == userID {
			clone := *account
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Account, error) {
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	if m.failLocks > 0 {
		m.failLocks--
		return nil, &pq.Error{Code: "40P01"}
	}
	m.lockOrder = append(m.lockOrder, id)
	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.Balance = balance
	account.UpdatedAt = time.Now()
	return nil
}

// ============ Mock TradeRepository ============

type MockTradeRepository struct {
	trades        map[int64]*models.Trade
	byClientOrder map[string]*models.Trade
	nextID        int64
	createErr     error
	findErr       error
	createCalls   int

	// missFirstFinds заставляет первые N вызовов FindByClientOrderID
	// вернуть ErrTradeNotFound - симуляция гонки двух запросов,
	// прошедших pre-check до вставки победителя
	missFirstFinds int
}

func NewMockTradeRepository() *MockTradeRepository {
	return &MockTradeRepository{
		trades:        make(map[int64]*models.Trade),
		byClientOrder: make(map[string]*models.Trade),
		nextID:        1,
	}
}

func (m *MockTradeRepository) Create(ctx context.Context, tx *sql.Tx, trade *models.Trade) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if trade.ClientOrderID != nil {
		if _, exists := m.byClientOrder[*trade.ClientOrderID]; exists {
			// так его возвращает postgres при нарушении unique constraint
			return &pq.Error{Code: "23505", Constraint: repository.UniqueClientOrderIDConstraint}
		}
	}
	trade.ID = m.nextID
	m.nextID++
	trade.CreatedAt = time.Now()
	trade.UpdatedAt = trade.CreatedAt

	clone := *trade
	m.trades[trade.ID] = &clone
	if trade.ClientOrderID != nil {
		m.byClientOrder[*trade.ClientOrderID] = &clone
	}
	return nil
}

func (m *MockTradeRepository) FindByClientOrderID(ctx context.Context, clientOrderID string) (*models.Trade, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.missFirstFinds > 0 {
		m.missFirstFinds--
		return nil, repository.ErrTradeNotFound
	}
	trade, ok := m.byClientOrder[clientOrderID]
	if !ok {
		return nil, repository.ErrTradeNotFound
	}
	clone := *trade
	return &clone, nil
}

func (m *MockTradeRepository) FindByID(ctx context.Context, id int64) (*models.Trade, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	trade, ok := m.trades[id]
	if !ok {
		return nil, repository.ErrTradeNotFound
	}
	clone := *trade
	return &clone, nil
}

func (m *MockTradeRepository) FindByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Trade, error) {
	return m.FindByID(ctx, id)
}

func (m *MockTradeRepository) GetUserTrades(ctx context.Context, userID int64, limit, offset int) ([]*models.Trade, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var result []*models.Trade
	for _, trade := range m.trades {
		if trade.UserID == userID {
			clone := *trade
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockTradeRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	trades, err := m.GetUserTrades(ctx, userID, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(trades), nil
}

// ============ Mock MarketRateRepository ============

type MockMarketRateRepository struct {
	rates  map[string]*models.MarketRate
	getErr error
}

func NewMockMarketRateRepository() *MockMarketRateRepository {
	return &MockMarketRateRepository{
		rates: make(map[string]*models.MarketRate),
	}
}

func (m *MockMarketRateRepository) addRate(pair, rate string) {
	m.rates[pair] = &models.MarketRate{
		Pair:      pair,
		Rate:      decimal.RequireFromString(rate),
		UpdatedAt: time.Now(),
	}
}

func (m *MockMarketRateRepository) GetByPair(ctx context.Context, pair string) (*models.MarketRate, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	rate, ok := m.rates[pair]
	if !ok {
		return nil, repository.ErrRateNotFound
	}
	return rate, nil
}

// ============ Mock AuditRepository ============

type MockAuditRepository struct {
	entries   []*models.AuditLog
	appendErr error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Append(ctx context.Context, tx *sql.Tx, entry *models.AuditLog) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

// ============ Mock Broadcaster ============

type MockBroadcaster struct {
	mu       sync.Mutex
	messages [][]byte
}

func (m *MockBroadcaster) Broadcast(message []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
}

func (m *MockBroadcaster) Messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages
}
