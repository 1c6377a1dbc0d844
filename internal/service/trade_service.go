package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fxtrade/internal/models"
	"fxtrade/internal/repository"
	"fxtrade/internal/websocket"
	"fxtrade/pkg/retry"
)

// TradeService - движок исполнения сделок
//
// Исполняет одну конвертацию как неделимую единицу работы:
// проверка идемпотентности, блокировка счетов, валидация, получение
// курса, изменение балансов, запись сделки и аудита - все внутри одной
// транзакции. Любая ошибка после начала транзакции откатывает ее
// целиком: частичных списаний, осиротевших сделок и аудита неудавшихся
// попыток не бывает.
//
// Корректность под конкурентными запросами держится не на глобальной
// блокировке движка, а на построчных блокировках счетов (FOR UPDATE),
// взятых строго по возрастанию id - это исключает deadlock между двумя
// встречными сделками по одной паре счетов.
type TradeService struct {
	db          *sql.DB
	accountRepo AccountRepositoryInterface
	tradeRepo   TradeRepositoryInterface
	rates       MarketRateServiceInterface
	audit       *AuditService
	hub         Broadcaster // может быть nil
	logger      *zap.Logger
	cfg         TradeServiceConfig

	// Источник времени для executed_at (подменяется в тестах)
	now func() time.Time
}

// TradeServiceConfig - параметры движка исполнения
type TradeServiceConfig struct {
	// LockTimeout - предел ожидания FOR UPDATE; превышение дает 55P03
	LockTimeout time.Duration
	// TxMaxAttempts - попыток транзакции при временных ошибках БД
	TxMaxAttempts int
	// TxRetryBackoff - начальная задержка между попытками
	TxRetryBackoff time.Duration
}

// NewTradeService создает новый движок исполнения сделок
func NewTradeService(
	db *sql.DB,
	accountRepo AccountRepositoryInterface,
	tradeRepo TradeRepositoryInterface,
	rates MarketRateServiceInterface,
	audit *AuditService,
	hub Broadcaster,
	logger *zap.Logger,
	cfg TradeServiceConfig,
) *TradeService {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 3 * time.Second
	}
	if cfg.TxMaxAttempts < 1 {
		cfg.TxMaxAttempts = 2
	}
	if cfg.TxRetryBackoff <= 0 {
		cfg.TxRetryBackoff = 50 * time.Millisecond
	}
	return &TradeService{
		db:          db,
		accountRepo: accountRepo,
		tradeRepo:   tradeRepo,
		rates:       rates,
		audit:       audit,
		hub:         hub,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// TradeDTO - запрос на исполнение одной сделки
type TradeDTO struct {
	UserID        int64
	FromAccountID int64
	ToAccountID   *int64 // nil = внешняя нога, без зачисления в этом реестре
	FromCurrency  string
	ToCurrency    string
	FromAmount    decimal.Decimal
	Side          string
	ClientOrderID *string
	Meta          RequestMeta
}

// validationPolicy - именованная политика валидации сделки
//
// Две политики сознательно не объединены: Execute допускает
// назначение-заглушку (внешнюю ногу) и проверяет у него только
// существование и владельца, ExecuteAccountToAccount требует полной
// согласованности обеих ног.
type validationPolicy int

const (
	policyExternalLeg validationPolicy = iota
	policyAccountToAccount
)

func (p validationPolicy) auditAction() string {
	if p == policyAccountToAccount {
		return models.AuditActionA2ATrade
	}
	return models.AuditActionTradeExecuted
}

// Execute исполняет сделку: нога-источник обязательна, нога назначения
// опциональна (nil ToAccountID означает внешнее назначение)
func (s *TradeService) Execute(ctx context.Context, dto *TradeDTO) (*models.Trade, error) {
	return s.execute(ctx, dto, policyExternalLeg)
}

// ExecuteAccountToAccount исполняет сделку между двумя счетами одного
// пользователя; обе ноги обязательны и проверяются полностью
func (s *TradeService) ExecuteAccountToAccount(ctx context.Context, dto *TradeDTO) (*models.Trade, error) {
	if dto.ToAccountID == nil {
		return nil, NewValidationError("to_account_id", "Destination account is required for account-to-account trades.")
	}
	return s.execute(ctx, dto, policyAccountToAccount)
}

func (s *TradeService) execute(ctx context.Context, dto *TradeDTO, policy validationPolicy) (*models.Trade, error) {
	start := time.Now()

	// Идемпотентность, путь 1: pre-check до транзакции. Повтор с уже
	// известным токеном возвращает существующую сделку как есть - без
	// повторной валидации, мутаций и второго события аудита.
	if dto.ClientOrderID != nil && *dto.ClientOrderID != "" {
		existing, err := s.tradeRepo.FindByClientOrderID(ctx, *dto.ClientOrderID)
		if err == nil {
			idempotencyHits.WithLabelValues("precheck").Inc()
			return existing, nil
		}
		if !errors.Is(err, repository.ErrTradeNotFound) {
			return nil, s.classify(fmt.Errorf("find trade by client order id: %w", err))
		}
	}

	var executed *models.Trade
	err := retry.Do(ctx, func() error {
		return repository.WithinTransaction(ctx, s.db, func(tx *sql.Tx) error {
			trade, txErr := s.executeInTx(ctx, tx, dto, policy)
			if txErr != nil {
				return txErr
			}
			executed = trade
			return nil
		})
	}, retry.Config{
		MaxAttempts:  s.cfg.TxMaxAttempts,
		InitialDelay: s.cfg.TxRetryBackoff,
		RetryIf:      repository.IsTransient,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			s.logger.Warn("повтор транзакции сделки после временной ошибки",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		},
	})

	if err != nil {
		// Идемпотентность, путь 2: гонка двух запросов с одним токеном.
		// Оба прошли pre-check, оба попытались вставить сделку; проигравший
		// получил нарушение уникальности, перечитывает победителя и
		// возвращает его - для клиента это не ошибка.
		if dto.ClientOrderID != nil && repository.IsUniqueViolation(err, repository.UniqueClientOrderIDConstraint) {
			existing, findErr := s.tradeRepo.FindByClientOrderID(ctx, *dto.ClientOrderID)
			if findErr != nil {
				return nil, s.classify(fmt.Errorf("reread trade after idempotency conflict: %w", findErr))
			}
			idempotencyHits.WithLabelValues("conflict").Inc()
			return existing, nil
		}
		return nil, s.classify(err)
	}

	tradeExecutionLatency.WithLabelValues(policy.auditAction()).Observe(time.Since(start).Seconds())
	tradesExecuted.WithLabelValues(executed.Side).Inc()

	s.broadcastExecuted(executed)

	return executed, nil
}

// executeInTx - транзакционное тело исполнения
func (s *TradeService) executeInTx(ctx context.Context, tx *sql.Tx, dto *TradeDTO, policy validationPolicy) (*models.Trade, error) {
	if err := repository.SetLockTimeout(ctx, tx, s.cfg.LockTimeout); err != nil {
		return nil, err
	}

	// Все блокировки берутся до первого чтения, используемого в
	// валидации: решения принимаются по сериализованному снимку,
	// а не по устаревшему значению, прочитанному до блокировки.
	locked, err := s.lockAccounts(ctx, tx, dto)
	if err != nil {
		return nil, err
	}

	fromAccount := locked[dto.FromAccountID]
	var toAccount *models.Account
	if dto.ToAccountID != nil {
		toAccount = locked[*dto.ToAccountID]
	}

	if vErr := validate(policy, dto, fromAccount, toAccount); vErr != nil {
		return nil, vErr
	}

	rate, err := s.rates.GetCurrentRate(ctx, dto.FromCurrency, dto.ToCurrency)
	if err != nil {
		return nil, err
	}

	toAmount := dto.FromAmount.Mul(rate).Round(models.BalanceScale)

	executedAt := s.now()
	trade := &models.Trade{
		UserID:        dto.UserID,
		FromAccountID: dto.FromAccountID,
		ToAccountID:   dto.ToAccountID,
		FromCurrency:  dto.FromCurrency,
		ToCurrency:    dto.ToCurrency,
		FromAmount:    dto.FromAmount,
		ToAmount:      toAmount,
		Rate:          rate,
		Side:          dto.Side,
		Status:        models.TradeStatusExecuted,
		ClientOrderID: dto.ClientOrderID,
		ExecutedAt:    &executedAt,
	}

	if err := s.tradeRepo.Create(ctx, tx, trade); err != nil {
		return nil, fmt.Errorf("create trade: %w", err)
	}

	// Новые балансы считаются от заблокированных in-tx значений -
	// отдельного перечитывания нет, lost update исключен
	newFromBalance := fromAccount.Balance.Sub(dto.FromAmount)
	if err := s.accountRepo.UpdateBalance(ctx, tx, fromAccount.ID, newFromBalance); err != nil {
		return nil, fmt.Errorf("debit source account: %w", err)
	}
	fromAccount.Balance = newFromBalance

	if toAccount != nil {
		newToBalance := toAccount.Balance.Add(toAmount)
		if err := s.accountRepo.UpdateBalance(ctx, tx, toAccount.ID, newToBalance); err != nil {
			return nil, fmt.Errorf("credit destination account: %w", err)
		}
		toAccount.Balance = newToBalance
	}

	if err := s.appendAudit(ctx, tx, dto, policy, trade, fromAccount, toAccount); err != nil {
		return nil, err
	}

	// Перечитываем запись до COMMIT'а (снаружи она еще не видна)
	// и прикрепляем счета с пост-транзакционными балансами
	fresh, err := s.tradeRepo.FindByIDTx(ctx, tx, trade.ID)
	if err != nil {
		return nil, fmt.Errorf("reread executed trade: %w", err)
	}
	fresh.FromAccount = fromAccount
	fresh.ToAccount = toAccount

	return fresh, nil
}

// lockAccounts берет FOR UPDATE на все затронутые счета строго по
// возрастанию id. Отсутствующий счет не ошибка на этом этапе - его
// судьбу решает валидация (какое поле виновато, зависит от политики).
func (s *TradeService) lockAccounts(ctx context.Context, tx *sql.Tx, dto *TradeDTO) (map[int64]*models.Account, error) {
	ids := []int64{dto.FromAccountID}
	if dto.ToAccountID != nil && *dto.ToAccountID != dto.FromAccountID {
		ids = append(ids, *dto.ToAccountID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lockStart := time.Now()
	defer func() { lockWaitSeconds.Observe(time.Since(lockStart).Seconds()) }()

	locked := make(map[int64]*models.Account, len(ids))
	for _, id := range ids {
		account, err := s.accountRepo.LockForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				continue
			}
			return nil, fmt.Errorf("lock account %d: %w", id, err)
		}
		locked[id] = account
	}

	return locked, nil
}

func (s *TradeService) appendAudit(
	ctx context.Context,
	tx *sql.Tx,
	dto *TradeDTO,
	policy validationPolicy,
	trade *models.Trade,
	fromAccount, toAccount *models.Account,
) error {
	snapshot := map[string]interface{}{
		"trade":                trade,
		"from_account_balance": fromAccount.Balance,
	}
	if toAccount != nil {
		snapshot["to_account_balance"] = toAccount.Balance
	}

	userID := dto.UserID
	if err := s.audit.Log(ctx, tx, &userID, policy.auditAction(), "trade", &trade.ID, nil, snapshot, dto.Meta); err != nil {
		return err
	}

	return nil
}

// classify переводит ошибку транзакции в таксономию движка
func (s *TradeService) classify(err error) error {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		tradeFailures.WithLabelValues("validation").Inc()
		return vErr
	}
	if repository.IsTransient(err) {
		tradeFailures.WithLabelValues("transient").Inc()
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	tradeFailures.WithLabelValues("internal").Inc()
	return err
}

// broadcastExecuted отправляет событие в WebSocket hub после COMMIT'а.
// Ошибка доставки на результат сделки не влияет.
func (s *TradeService) broadcastExecuted(trade *models.Trade) {
	if s.hub == nil {
		return
	}
	msg, err := websocket.NewTradeExecutedMessage(trade)
	if err != nil {
		s.logger.Warn("не удалось сериализовать событие сделки", zap.Error(err))
		return
	}
	s.hub.Broadcast(msg)
}
