package websocket

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"fxtrade/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeTradeExecuted - исполнена сделка
	// Отправляется после COMMIT'а транзакции исполнения
	MessageTypeTradeExecuted MessageType = "tradeExecuted"

	// MessageTypeRateUpdate - обновление курса валютной пары
	MessageTypeRateUpdate MessageType = "rateUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// TradeExecutedMessage - сообщение об исполненной сделке
type TradeExecutedMessage struct {
	BaseMessage
	Data *TradeExecutedData `json:"data"`
}

// TradeExecutedData - данные исполненной сделки
//
// Балансы счетов сюда сознательно не входят: подписчики потока видят
// только факт сделки, состояние счетов - через авторизованный API.
type TradeExecutedData struct {
	TradeID       int64           `json:"trade_id"`
	UserID        int64           `json:"user_id"`
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   *int64          `json:"to_account_id,omitempty"`
	FromCurrency  string          `json:"from_currency"`
	ToCurrency    string          `json:"to_currency"`
	FromAmount    decimal.Decimal `json:"from_amount"`
	ToAmount      decimal.Decimal `json:"to_amount"`
	Rate          decimal.Decimal `json:"rate"`
	Side          string          `json:"side"`
	Status        string          `json:"status"`
	ExecutedAt    *time.Time      `json:"executed_at,omitempty"`
}

// RateUpdateMessage - сообщение об обновлении курса
type RateUpdateMessage struct {
	BaseMessage
	Pair string          `json:"pair"`
	Rate decimal.Decimal `json:"rate"`
}

// ============ Фабричные функции для создания сообщений ============

// NewTradeExecutedMessage сериализует событие исполненной сделки
func NewTradeExecutedMessage(trade *models.Trade) ([]byte, error) {
	msg := &TradeExecutedMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTradeExecuted,
			Timestamp: time.Now(),
		},
		Data: &TradeExecutedData{
			TradeID:       trade.ID,
			UserID:        trade.UserID,
			FromAccountID: trade.FromAccountID,
			ToAccountID:   trade.ToAccountID,
			FromCurrency:  trade.FromCurrency,
			ToCurrency:    trade.ToCurrency,
			FromAmount:    trade.FromAmount,
			ToAmount:      trade.ToAmount,
			Rate:          trade.Rate,
			Side:          trade.Side,
			Status:        trade.Status,
			ExecutedAt:    trade.ExecutedAt,
		},
	}
	return json.Marshal(msg)
}

// NewRateUpdateMessage сериализует событие обновления курса
func NewRateUpdateMessage(pair string, rate decimal.Decimal) ([]byte, error) {
	msg := &RateUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRateUpdate,
			Timestamp: time.Now(),
		},
		Pair: pair,
		Rate: rate,
	}
	return json.Marshal(msg)
}
