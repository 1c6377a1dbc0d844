package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fxtrade/internal/models"
	"fxtrade/internal/repository"
)

// MarketRateService возвращает курс конвертации для валютной пары
//
// Порядок поиска: точная пара -> обратная пара (возвращается обратная
// величина) -> симулированная оценка. Для известных данных сервис
// никогда не отказывает: на выходе всегда положительный курс
// (1.0 для полностью неизвестной пары). Ошибкой завершается только
// сбой самого хранилища.
//
// Симуляция - заглушка вместо реального фида котировок: базовая
// таблица курсов плюс случайное отклонение ±0.5% от базы.
type MarketRateService struct {
	rateRepo MarketRateRepositoryInterface

	// Собственный генератор, чтобы тесты могли задать seed
	rng   *rand.Rand
	rngMu sync.Mutex
}

// Базовые курсы для симуляции (соответствуют сидам market_rates)
var simulatedBaseRates = map[string]decimal.Decimal{
	"GBP/EUR": decimal.RequireFromString("1.145"),
	"GBP/USD": decimal.RequireFromString("1.268"),
	"EUR/USD": decimal.RequireFromString("1.107"),
	"USD/NGN": decimal.RequireFromString("1650.50"),
	"GBP/NGN": decimal.RequireFromString("2093.25"),
}

// NewMarketRateService создает новый сервис курсов.
// seed 0 означает недетерминированный запуск (seed от текущего времени);
// ненулевой seed дает воспроизводимую последовательность симуляций.
func NewMarketRateService(rateRepo MarketRateRepositoryInterface, seed int64) *MarketRateService {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MarketRateService{
		rateRepo: rateRepo,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// GetCurrentRate возвращает курс конвертации fromCurrency -> toCurrency
//
// Контракт, на который опирается движок исполнения: возвращенный курс
// всегда положителен; предпочтение точная пара > обратная > симуляция.
func (s *MarketRateService) GetCurrentRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	pair := models.PairKey(fromCurrency, toCurrency)

	marketRate, err := s.rateRepo.GetByPair(ctx, pair)
	if err == nil {
		return marketRate.Rate, nil
	}
	if !errors.Is(err, repository.ErrRateNotFound) {
		return decimal.Zero, fmt.Errorf("get rate for %s: %w", pair, err)
	}

	// Точной пары нет - пробуем обратную
	reversePair := models.PairKey(toCurrency, fromCurrency)
	reverseRate, err := s.rateRepo.GetByPair(ctx, reversePair)
	if err == nil {
		return decimal.NewFromInt(1).DivRound(reverseRate.Rate, models.BalanceScale), nil
	}
	if !errors.Is(err, repository.ErrRateNotFound) {
		return decimal.Zero, fmt.Errorf("get reverse rate for %s: %w", reversePair, err)
	}

	return s.simulateRate(fromCurrency, toCurrency), nil
}

// simulateRate возвращает детерминированно-засеянную оценку курса:
// базовый курс пары с отклонением ±0.5%, округленный до 8 знаков
func (s *MarketRateService) simulateRate(from, to string) decimal.Decimal {
	baseRate, ok := simulatedBaseRates[models.PairKey(from, to)]
	if !ok {
		baseRate = decimal.NewFromInt(1)
	}

	s.rngMu.Lock()
	// от -1.0 до +1.0
	jitter := float64(s.rng.Intn(201)-100) / 100.0
	s.rngMu.Unlock()

	fluctuation := baseRate.
		Mul(decimal.RequireFromString("0.005")).
		Mul(decimal.NewFromFloat(jitter))

	return baseRate.Add(fluctuation).Round(models.BalanceScale)
}
