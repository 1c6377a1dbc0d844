package handlers

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"fxtrade/internal/models"
	"fxtrade/internal/repository"
	"fxtrade/internal/service"
)

// ============ Mock TradeExecutor ============

type MockTradeExecutor struct {
	trade *models.Trade
	err   error

	lastDTO   *service.TradeDTO
	a2aCalled bool
}

func (m *MockTradeExecutor) Execute(ctx context.Context, dto *service.TradeDTO) (*models.Trade, error) {
	m.lastDTO = dto
	if m.err != nil {
		return nil, m.err
	}
	return m.trade, nil
}

func (m *MockTradeExecutor) ExecuteAccountToAccount(ctx context.Context, dto *service.TradeDTO) (*models.Trade, error) {
	m.a2aCalled = true
	m.lastDTO = dto
	if m.err != nil {
		return nil, m.err
	}
	return m.trade, nil
}

// ============ Mock TradeRepository ============

type MockTradeRepo struct {
	trades map[int64]*models.Trade
	list   []*models.Trade
	err    error
}

func NewMockTradeRepo() *MockTradeRepo {
	return &MockTradeRepo{trades: make(map[int64]*models.Trade)}
}

func (m *MockTradeRepo) Create(ctx context.Context, tx *sql.Tx, trade *models.Trade) error {
	return m.err
}

func (m *MockTradeRepo) FindByClientOrderID(ctx context.Context, clientOrderID string) (*models.Trade, error) {
	return nil, repository.ErrTradeNotFound
}

func (m *MockTradeRepo) FindByID(ctx context.Context, id int64) (*models.Trade, error) {
	if m.err != nil {
		return nil, m.err
	}
	trade, ok := m.trades[id]
	if !ok {
		return nil, repository.ErrTradeNotFound
	}
	return trade, nil
}

func (m *MockTradeRepo) FindByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Trade, error) {
	return m.FindByID(ctx, id)
}

func (m *MockTradeRepo) GetUserTrades(ctx context.Context, userID int64, limit, offset int) ([]*models.Trade, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *MockTradeRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.list), nil
}

// ============ Mock AccountRepository ============

type MockAccountRepo struct {
	accounts map[int64]*models.Account
	err      error
}

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{accounts: make(map[int64]*models.Account)}
}

func (m *MockAccountRepo) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return account, nil
}

func (m *MockAccountRepo) FindByUserAndID(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	account, err := m.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, repository.ErrAccountNotFound
	}
	return account, nil
}

func (m *MockAccountRepo) GetUserAccounts(ctx context.Context, userID int64) ([]*models.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []*models.Account
	for _, account := range m.accounts {
		if account.UserID == userID {
			result = append(result, account)
		}
	}
	return result, nil
}

func (m *MockAccountRepo) LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Account, error) {
	return m.FindByID(ctx, id)
}

func (m *MockAccountRepo) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error {
	return m.err
}

// ============ Mock Broadcaster ============

type MockBroadcaster struct {
	messages [][]byte
}

func (m *MockBroadcaster) Broadcast(message []byte) {
	m.messages = append(m.messages, message)
}

// ============ Mock MarketRateService ============

type MockRateService struct {
	rate decimal.Decimal
	err  error
}

func (m *MockRateService) GetCurrentRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Zero, m.err
	}
	return m.rate, nil
}
