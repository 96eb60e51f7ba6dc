package persist

import "time"

// InstrumentModel maps the trading_pairs table.
type InstrumentModel struct {
	ID                int64  `gorm:"primaryKey"`
	Symbol            string `gorm:"size:32;not null;uniqueIndex"`
	BaseAsset         string `gorm:"size:16;not null"`
	QuoteAsset        string `gorm:"size:16;not null"`
	IsActive          bool   `gorm:"not null;default:false"`
	MarginEnabled     bool   `gorm:"not null;default:false"`
	MarginIsolated    bool   `gorm:"not null;default:false"`
	PricePrecision    int    `gorm:"not null;default:8"`
	QuantityPrecision int    `gorm:"not null;default:8"`
	MinTradeSize      float64
	MaxTradeSize      float64
	TickSize          float64
	StepSize          float64
	StrategyHint      string `gorm:"size:255"`
}

func (InstrumentModel) TableName() string {
	return "trading_pairs"
}

// SettingModel maps the settings key/value table used for global feature
// flags such as provider toggles.
type SettingModel struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:255"`
}

func (SettingModel) TableName() string {
	return "settings"
}

// DecisionModel maps the ai_decisions table. Rows are append-only.
type DecisionModel struct {
	ID           int64  `gorm:"primaryKey"`
	InstrumentID int64  `gorm:"index;not null"`
	Symbol       string `gorm:"size:32;not null;index"`
	Decision     string `gorm:"size:16;not null"`
	Reason       string `gorm:"type:text"`
	Provider     string `gorm:"size:64"`
	Model        string `gorm:"size:128"`
	Prompt       string `gorm:"type:text"`
	RawResponse  string `gorm:"type:text"`
	CreatedAt    time.Time
}

func (DecisionModel) TableName() string {
	return "ai_decisions"
}

// TransactionModel maps the transactions table. Rows are append-only.
type TransactionModel struct {
	ID            int64  `gorm:"primaryKey"`
	InstrumentID  int64  `gorm:"index;not null"`
	OrderID       string `gorm:"size:64;index"`
	ClientOrderID string `gorm:"size:64"`
	Side          string `gorm:"size:8;not null"`
	Mode          string `gorm:"size:8;not null"`
	Price         float64
	Quantity      float64
	QuoteValue    float64
	Status        string `gorm:"size:32"`
	ExecutedAt    time.Time
	CreatedAt     time.Time
}

func (TransactionModel) TableName() string {
	return "transactions"
}
