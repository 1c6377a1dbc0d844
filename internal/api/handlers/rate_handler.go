package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fxtrade/internal/models"
	"fxtrade/internal/service"
	"fxtrade/internal/websocket"
	"fxtrade/pkg/utils"
)

// RateHandler отдает текущие курсы валютных пар
//
// Endpoints:
// - GET /api/v1/rates/{from}/{to} - текущий курс конвертации
//
// Каждый отданный курс дублируется в WebSocket поток событием
// rateUpdate - подписчики видят те же котировки, что и HTTP клиенты.
type RateHandler struct {
	rates  service.MarketRateServiceInterface
	hub    service.Broadcaster // может быть nil
	logger *zap.Logger
}

// NewRateHandler создает новый RateHandler
func NewRateHandler(rates service.MarketRateServiceInterface, hub service.Broadcaster, logger *zap.Logger) *RateHandler {
	return &RateHandler{rates: rates, hub: hub, logger: logger}
}

// RateResponse - курс одной пары
type RateResponse struct {
	Pair      string          `json:"pair"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

// GetRate возвращает текущий курс для пары валют
// GET /api/v1/rates/{from}/{to}
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	from := strings.ToUpper(vars["from"])
	to := strings.ToUpper(vars["to"])

	if !utils.IsValidCurrencyCode(from) {
		respondWithValidationError(w, "from_currency", "The from currency must be a valid 3-letter currency code.")
		return
	}
	if !utils.IsValidCurrencyCode(to) {
		respondWithValidationError(w, "to_currency", "The to currency must be a valid 3-letter currency code.")
		return
	}

	rate, err := h.rates.GetCurrentRate(r.Context(), from, to)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	pair := models.PairKey(from, to)
	h.broadcastRate(pair, rate)

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Data: RateResponse{
			Pair:      pair,
			Rate:      rate,
			Timestamp: time.Now().UTC(),
		},
	})
}

// broadcastRate отправляет событие rateUpdate в поток. Сбой доставки
// на HTTP ответ не влияет.
func (h *RateHandler) broadcastRate(pair string, rate decimal.Decimal) {
	if h.hub == nil {
		return
	}
	message, err := websocket.NewRateUpdateMessage(pair, rate)
	if err != nil {
		h.logger.Warn("не удалось сериализовать событие rateUpdate", zap.Error(err))
		return
	}
	h.hub.Broadcast(message)
}
