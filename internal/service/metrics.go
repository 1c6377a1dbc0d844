package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики движка исполнения
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации латентности исполнения
// - Alertmanager: рост transient-отказов сигналит о проблемах БД

// tradeExecutionLatency - полное время исполнения сделки,
// от входа в движок до COMMIT'а (pre-check идемпотентности включен)
var tradeExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "fxtrade",
		Subsystem: "engine",
		Name:      "trade_execution_latency_seconds",
		Help:      "Trade execution latency from request to commit in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"operation"}, // trade_executed, account_to_account_trade
)

// tradesExecuted - успешно исполненные сделки
var tradesExecuted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fxtrade",
		Subsystem: "engine",
		Name:      "trades_executed_total",
		Help:      "Total number of executed trades",
	},
	[]string{"side"}, // buy, sell
)

// tradeFailures - отказы исполнения по классам таксономии
var tradeFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fxtrade",
		Subsystem: "engine",
		Name:      "trade_failures_total",
		Help:      "Total number of failed trade executions",
	},
	[]string{"reason"}, // validation, transient, internal
)

// lockWaitSeconds - время ожидания FOR UPDATE на счетах сделки.
// Рост хвоста - признак горячих счетов и конкуренции за строки.
var lockWaitSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "fxtrade",
		Subsystem: "engine",
		Name:      "account_lock_wait_seconds",
		Help:      "Time spent acquiring FOR UPDATE locks on trade accounts",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
	},
)

// idempotencyHits - повторы, разрешенные идемпотентным токеном
var idempotencyHits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fxtrade",
		Subsystem: "engine",
		Name:      "idempotency_hits_total",
		Help:      "Requests answered with an existing trade via client_order_id",
	},
	[]string{"path"}, // precheck, conflict
)
