package persist

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/types"
)

type instrumentStore struct {
	db *gorm.DB
}

var _ interfaces.InstrumentStore = (*instrumentStore)(nil)

// NewInstrumentStore returns the gorm-backed instrument repository.
func NewInstrumentStore(db *gorm.DB) *instrumentStore {
	return &instrumentStore{db: db}
}

func (s *instrumentStore) Active(ctx context.Context) ([]types.Instrument, error) {
	var rows []InstrumentModel
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("symbol").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Instrument, 0, len(rows))
	for _, m := range rows {
		out = append(out, toInstrument(m))
	}
	return out, nil
}

func (s *instrumentStore) ByID(ctx context.Context, id int64) (types.Instrument, error) {
	var m InstrumentModel
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return types.Instrument{}, err
	}
	return toInstrument(m), nil
}

// Seed inserts instruments that are not present yet; existing symbols
// are left untouched. Used to bootstrap the universe from config.
func (s *instrumentStore) Seed(ctx context.Context, instruments []types.Instrument) error {
	for _, inst := range instruments {
		var count int64
		if err := s.db.WithContext(ctx).Model(&InstrumentModel{}).Where("symbol = ?", inst.Symbol).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		m := fromInstrument(inst)
		if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
			return err
		}
	}
	return nil
}

func toInstrument(m InstrumentModel) types.Instrument {
	return types.Instrument{
		ID:                m.ID,
		Symbol:            m.Symbol,
		BaseAsset:         m.BaseAsset,
		QuoteAsset:        m.QuoteAsset,
		Active:            m.IsActive,
		MarginEnabled:     m.MarginEnabled,
		MarginIsolated:    m.MarginIsolated,
		PricePrecision:    m.PricePrecision,
		QuantityPrecision: m.QuantityPrecision,
		MinTradeSize:      m.MinTradeSize,
		MaxTradeSize:      m.MaxTradeSize,
		TickSize:          m.TickSize,
		StepSize:          m.StepSize,
		StrategyHint:      m.StrategyHint,
	}
}

func fromInstrument(i types.Instrument) InstrumentModel {
	return InstrumentModel{
		ID:                i.ID,
		Symbol:            i.Symbol,
		BaseAsset:         i.BaseAsset,
		QuoteAsset:        i.QuoteAsset,
		IsActive:          i.Active,
		MarginEnabled:     i.MarginEnabled,
		MarginIsolated:    i.MarginIsolated,
		PricePrecision:    i.PricePrecision,
		QuantityPrecision: i.QuantityPrecision,
		MinTradeSize:      i.MinTradeSize,
		MaxTradeSize:      i.MaxTradeSize,
		TickSize:          i.TickSize,
		StepSize:          i.StepSize,
		StrategyHint:      i.StrategyHint,
	}
}

type settingsStore struct {
	db *gorm.DB
}

var _ interfaces.SettingsStore = (*settingsStore)(nil)

// NewSettingsStore returns the gorm-backed settings repository.
func NewSettingsStore(db *gorm.DB) *settingsStore {
	return &settingsStore{db: db}
}

func (s *settingsStore) Get(ctx context.Context, keys []string) (map[string]string, error) {
	var rows []SettingModel
	if err := s.db.WithContext(ctx).Where("key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *settingsStore) Set(ctx context.Context, key, value string) error {
	m := SettingModel{Key: key, Value: value}
	return s.db.WithContext(ctx).Save(&m).Error
}

type decisionStore struct {
	db *gorm.DB
}

var _ interfaces.DecisionStore = (*decisionStore)(nil)

// NewDecisionStore returns the append-only decision log.
func NewDecisionStore(db *gorm.DB) *decisionStore {
	return &decisionStore{db: db}
}

func (s *decisionStore) AppendDecision(ctx context.Context, d types.Decision) error {
	m := DecisionModel{
		InstrumentID: d.InstrumentID,
		Symbol:       d.Symbol,
		Decision:     string(d.Action),
		Reason:       d.Reason,
		Provider:     d.Provider,
		Model:        d.Model,
		Prompt:       d.Prompt,
		RawResponse:  d.RawResponse,
		CreatedAt:    d.CreatedAt,
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

type transactionStore struct {
	db *gorm.DB
}

var _ interfaces.TransactionStore = (*transactionStore)(nil)

// NewTransactionStore returns the append-only transaction log.
func NewTransactionStore(db *gorm.DB) *transactionStore {
	return &transactionStore{db: db}
}

func (s *transactionStore) AppendTransaction(ctx context.Context, tx types.Transaction) error {
	m := TransactionModel{
		InstrumentID:  tx.InstrumentID,
		OrderID:       tx.OrderID,
		ClientOrderID: tx.ClientOrderID,
		Side:          string(tx.Side),
		Mode:          string(tx.Mode),
		Price:         tx.Price,
		Quantity:      tx.Quantity,
		QuoteValue:    tx.QuoteValue,
		Status:        tx.Status,
		ExecutedAt:    tx.ExecutedAt,
	}
	return s.db.WithContext(ctx).Create(&m).Error
}
