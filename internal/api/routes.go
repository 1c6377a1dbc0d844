package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fxtrade/internal/api/handlers"
	"fxtrade/internal/api/middleware"
	"fxtrade/internal/service"
	"fxtrade/internal/websocket"
	"fxtrade/pkg/ratelimit"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Trades      service.TradeExecutorInterface
	TradeRepo   service.TradeRepositoryInterface
	AccountRepo service.AccountRepositoryInterface
	Rates       service.MarketRateServiceInterface

	Tokens middleware.TokenStore

	Hub           *websocket.Hub
	OriginChecker *websocket.OriginChecker

	// Пер-пользовательский лимит торговых эндпоинтов
	TradeLimiter *ratelimit.KeyedLimiter

	CORSOrigins string
	Logger      *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/ (Auth)
//
//	├── /trades/
//	│   ├── POST /execute            - исполнение сделки (RateLimit)
//	│   ├── POST /account-to-account - перевод между своими счетами (RateLimit)
//	│   ├── GET /                    - история сделок
//	│   └── GET /{id}                - конкретная сделка
//	├── /accounts/
//	│   ├── GET /      - счета пользователя
//	│   └── GET /{id}  - конкретный счет
//	└── /rates/
//	    └── GET /{from}/{to} - текущий курс
//
// /ws/stream - WebSocket поток событий (tradeExecuted, rateUpdate)
// /health    - проверка живости
// /metrics   - Prometheus метрики
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (для /api/v1)
// 5. RateLimit (только торговые POST эндпоинты)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logging(deps.Logger))
	router.Use(middleware.CORS(deps.CORSOrigins))

	tradeHandler := handlers.NewTradeHandler(deps.Trades, deps.TradeRepo, deps.Logger)
	accountHandler := handlers.NewAccountHandler(deps.AccountRepo, deps.Logger)

	// *websocket.Hub(nil) не должен стать непустым интерфейсом
	var rateBroadcaster service.Broadcaster
	if deps.Hub != nil {
		rateBroadcaster = deps.Hub
	}
	rateHandler := handlers.NewRateHandler(deps.Rates, rateBroadcaster, deps.Logger)

	// API v1 routes, все за аутентификацией
	api := router.PathPrefix("/api/v1").Subrouter()
	auth := middleware.NewAuth(deps.Tokens, deps.Logger)
	api.Use(auth.Handler)

	// Торговые эндпоинты дополнительно под пер-пользовательским лимитом
	trading := api.PathPrefix("/trades").Subrouter()
	if deps.TradeLimiter != nil {
		trading.Use(middleware.RateLimit(deps.TradeLimiter))
	}
	trading.HandleFunc("/execute", tradeHandler.ExecuteTrade).Methods("POST")
	trading.HandleFunc("/account-to-account", tradeHandler.ExecuteAccountToAccount).Methods("POST")

	// Чтение сделок без торгового лимита
	api.HandleFunc("/trades", tradeHandler.GetTrades).Methods("GET")
	api.HandleFunc("/trades/{id:[0-9]+}", tradeHandler.GetTrade).Methods("GET")

	// Account routes
	api.HandleFunc("/accounts", accountHandler.GetAccounts).Methods("GET")
	api.HandleFunc("/accounts/{id:[0-9]+}", accountHandler.GetAccount).Methods("GET")

	// Rate routes
	api.HandleFunc("/rates/{from}/{to}", rateHandler.GetRate).Methods("GET")

	// WebSocket route
	if deps.Hub != nil {
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(deps.Hub, deps.OriginChecker, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
