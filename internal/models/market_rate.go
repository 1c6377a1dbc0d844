package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketRate представляет сохраненный курс валютной пары
//
// Pair хранится в формате "GBP/EUR" (base/quote). С точки зрения движка
// исполнения курс read-only: ядро его только читает, запись выполняется
// внешним загрузчиком котировок (вне этого сервиса).
type MarketRate struct {
	ID            int64               `json:"id" db:"id"`
	Pair          string              `json:"pair" db:"pair"`
	BaseCurrency  string              `json:"base_currency" db:"base_currency"`
	QuoteCurrency string              `json:"quote_currency" db:"quote_currency"`
	Rate          decimal.Decimal     `json:"rate" db:"rate"`
	Bid           decimal.NullDecimal `json:"bid,omitempty" db:"bid"`
	Ask           decimal.NullDecimal `json:"ask,omitempty" db:"ask"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// PairKey собирает ключ пары в формате хранения ("GBP/EUR")
func PairKey(from, to string) string {
	return from + "/" + to
}
