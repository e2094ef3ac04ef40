// Package adapters はsymbollistフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	feedentity "stock_realtime/internal/feature/feed/domain/entity"
	feedusecase "stock_realtime/internal/feature/feed/usecase"
	"stock_realtime/internal/feature/symbollist/domain/entity"
)

// symbolGorm は銘柄マスタのgorm実装です。
type symbolGorm struct {
	db *gorm.DB
}

// symbolGormがInstrumentListerを実装していることをコンパイル時に検証します。
var _ feedusecase.InstrumentLister = (*symbolGorm)(nil)

// NewSymbolRepository は指定されたDB接続でsymbolGormリポジトリの新しいインスタンスを生成します。
func NewSymbolRepository(db *gorm.DB) *symbolGorm {
	return &symbolGorm{db: db}
}

// ListActive はsort_key順にすべてのアクティブな銘柄を返します。
func (r *symbolGorm) ListActive(ctx context.Context) ([]entity.Symbol, error) {
	var symbols []entity.Symbol
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// ListInstruments returns the active symbols as feed instruments, in sort_key order.
func (r *symbolGorm) ListInstruments(ctx context.Context) ([]feedentity.Instrument, error) {
	symbols, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]feedentity.Instrument, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, feedentity.Instrument{Symbol: s.Code, Venue: s.Market})
	}
	return out, nil
}

// Upsert は code をキーに銘柄を登録・更新します。
func (r *symbolGorm) Upsert(ctx context.Context, symbols []entity.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "market", "is_active", "sort_key", "updated_at"}),
	}).Create(&symbols).Error
}
