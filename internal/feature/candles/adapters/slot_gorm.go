// Package adapters はcandlesフィーチャーの時系列ストア実装を提供します。
package adapters

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_realtime/internal/feature/candles/domain"
	"stock_realtime/internal/feature/candles/domain/entity"
	"stock_realtime/internal/feature/candles/usecase"
)

type slotGorm struct {
	db *gorm.DB
}

var _ usecase.SlotStore = (*slotGorm)(nil)

// NewSlotRepository は candle_slots テーブルの時系列ストアを生成します。
func NewSlotRepository(db *gorm.DB) *slotGorm {
	return &slotGorm{db: db}
}

// CandleSlotModel is one minute of a (symbol, date) series. One logical
// series is the set of rows sharing symbol and date; idx is overwritten in place.
type CandleSlotModel struct {
	ID     uint   `gorm:"primaryKey"`
	Symbol string `gorm:"size:32;not null;uniqueIndex:slot_sym_date_idx,priority:1"`
	Date   string `gorm:"size:10;not null;uniqueIndex:slot_sym_date_idx,priority:2"`
	Idx    int    `gorm:"not null;uniqueIndex:slot_sym_date_idx,priority:3"`
	MaxLen int    `gorm:"not null"`

	Open      float64   `gorm:"not null"`
	High      float64   `gorm:"not null"`
	Low       float64   `gorm:"not null"`
	Close     float64   `gorm:"not null"`
	Volume    int64     `gorm:"not null;default:0"`
	StartTime time.Time `gorm:"not null"`
}

func (CandleSlotModel) TableName() string {
	return "candle_slots"
}

func toModel(s entity.Slot) CandleSlotModel {
	return CandleSlotModel{
		Symbol:    s.Symbol,
		Date:      s.Date,
		Idx:       s.Index,
		MaxLen:    s.MaxLen,
		Open:      s.Candle.Open,
		High:      s.Candle.High,
		Low:       s.Candle.Low,
		Close:     s.Candle.Close,
		Volume:    s.Candle.Volume,
		StartTime: s.Candle.StartTime,
	}
}

// Write は1スロットを挿入し、同じ (symbol, date, idx) があれば上書きします。
func (r *slotGorm) Write(ctx context.Context, slot entity.Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %s %s index=%d maxLen=%d",
			domain.ErrSlotOutOfRange, slot.Symbol, slot.Date, slot.Index, slot.MaxLen)
	}
	m := toModel(slot)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}, {Name: "idx"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_len", "open", "high", "low", "close", "volume", "start_time"}),
	}).Create(&m).Error
}

// Series returns the written slots of one (symbol, date) series ordered by index.
func (r *slotGorm) Series(ctx context.Context, symbol, date string) ([]entity.Slot, error) {
	var rows []CandleSlotModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND date = ?", symbol, date).
		Order("idx ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Slot, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Slot{
			Symbol: m.Symbol,
			Date:   m.Date,
			Index:  m.Idx,
			MaxLen: m.MaxLen,
			Candle: entity.Candle{
				Open:      m.Open,
				High:      m.High,
				Low:       m.Low,
				Close:     m.Close,
				Volume:    m.Volume,
				StartTime: m.StartTime,
			},
		})
	}
	return out, nil
}
