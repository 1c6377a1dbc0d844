package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fxtrade/internal/api/middleware"
	"fxtrade/internal/models"
	"fxtrade/internal/repository"
	"fxtrade/internal/service"
	"fxtrade/pkg/utils"
)

// TradeHandler отвечает за исполнение и чтение сделок
//
// Endpoints:
// - POST /api/v1/trades/execute            - исполнение сделки
// - POST /api/v1/trades/account-to-account - перевод между своими счетами
// - GET /api/v1/trades                     - история сделок пользователя
// - GET /api/v1/trades/{id}                - конкретная сделка
type TradeHandler struct {
	trades    service.TradeExecutorInterface
	tradeRepo service.TradeRepositoryInterface
	logger    *zap.Logger
}

// NewTradeHandler создает новый TradeHandler с внедрением зависимостей
func NewTradeHandler(trades service.TradeExecutorInterface, tradeRepo service.TradeRepositoryInterface, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{
		trades:    trades,
		tradeRepo: tradeRepo,
		logger:    logger,
	}
}

// ExecuteTradeRequest структура запроса на исполнение сделки
type ExecuteTradeRequest struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   *int64          `json:"to_account_id,omitempty"`
	FromCurrency  string          `json:"from_currency"`
	ToCurrency    string          `json:"to_currency"`
	FromAmount    decimal.Decimal `json:"from_amount"`
	Side          string          `json:"side"`
	ClientOrderID *string         `json:"client_order_id,omitempty"`
}

// validate выполняет синтаксическую валидацию запроса.
// Бизнес-проверки (владение, баланс, статус) делает движок на
// заблокированном снимке счетов.
func (req *ExecuteTradeRequest) validate(requireDestination bool) (field, message string, ok bool) {
	if req.FromAccountID <= 0 {
		return "from_account_id", "The from account id field is required.", false
	}
	if requireDestination && req.ToAccountID == nil {
		return "to_account_id", "The to account id field is required.", false
	}
	if req.ToAccountID != nil && *req.ToAccountID == req.FromAccountID {
		return "to_account_id", "The to account id and from account id must be different.", false
	}
	if !utils.IsValidCurrencyCode(req.FromCurrency) {
		return "from_currency", "The from currency must be a valid 3-letter currency code.", false
	}
	if !utils.IsValidCurrencyCode(req.ToCurrency) {
		return "to_currency", "The to currency must be a valid 3-letter currency code.", false
	}
	if req.ToCurrency == req.FromCurrency {
		return "to_currency", "The to currency and from currency must be different.", false
	}
	if !utils.IsValidAmount(req.FromAmount) {
		return "from_amount", "The from amount must be a positive number with at most 8 decimal places.", false
	}
	if !models.IsValidSide(strings.ToUpper(req.Side)) {
		return "side", "The side must be either BUY or SELL.", false
	}
	if req.ClientOrderID != nil && !utils.IsValidClientOrderID(*req.ClientOrderID) {
		return "client_order_id", "The client order id must be between 1 and 64 characters.", false
	}
	return "", "", true
}

func (req *ExecuteTradeRequest) toDTO(userID int64, meta service.RequestMeta) *service.TradeDTO {
	return &service.TradeDTO{
		UserID:        userID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		FromCurrency:  req.FromCurrency,
		ToCurrency:    req.ToCurrency,
		FromAmount:    req.FromAmount,
		Side:          strings.ToUpper(req.Side),
		ClientOrderID: req.ClientOrderID,
		Meta:          meta,
	}
}

// ExecuteTrade исполняет сделку
// POST /api/v1/trades/execute
//
// Response:
// - 201 Created: сделка исполнена (или возвращена существующая по client_order_id)
// - 422 Unprocessable Entity: ошибка валидации
// - 503 Service Unavailable: временный сбой, повтор безопасен
func (h *TradeHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, false)
}

// ExecuteAccountToAccount исполняет перевод между своими счетами
// POST /api/v1/trades/account-to-account
func (h *TradeHandler) ExecuteAccountToAccount(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, true)
}

func (h *TradeHandler) execute(w http.ResponseWriter, r *http.Request, accountToAccount bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	var req ExecuteTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if field, message, ok := req.validate(accountToAccount); !ok {
		respondWithValidationError(w, field, message)
		return
	}

	dto := req.toDTO(userID, requestMeta(r))

	var trade *models.Trade
	var err error
	if accountToAccount {
		trade, err = h.trades.ExecuteAccountToAccount(r.Context(), dto)
	} else {
		trade, err = h.trades.Execute(r.Context(), dto)
	}
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "Trade executed successfully",
		Data:    trade,
	})
}

// GetTrades возвращает историю сделок пользователя
// GET /api/v1/trades?limit=50&offset=0
func (h *TradeHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	limit := parseQueryInt(r, "limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := parseQueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	trades, err := h.tradeRepo.GetUserTrades(r.Context(), userID, limit, offset)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	total, err := h.tradeRepo.CountByUser(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if trades == nil {
		trades = []*models.Trade{}
	}

	respondWithJSON(w, http.StatusOK, PaginatedResponse{
		Data: trades,
		Meta: PageMeta{Total: total, Limit: limit, Offset: offset},
	})
}

// GetTrade возвращает одну сделку пользователя
// GET /api/v1/trades/{id}
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid trade id", "")
		return
	}

	trade, err := h.tradeRepo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotFound) {
			respondWithError(w, http.StatusNotFound, "not_found", "Trade not found", "")
			return
		}
		respondWithServiceError(w, h.logger, err)
		return
	}

	// Чужая сделка неотличима от несуществующей
	if trade.UserID != userID {
		respondWithError(w, http.StatusNotFound, "not_found", "Trade not found", "")
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Data: trade})
}

func parseQueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}
