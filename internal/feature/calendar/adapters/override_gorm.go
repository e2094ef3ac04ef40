// Package adapters はcalendarフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_realtime/internal/feature/calendar/domain/entity"
	"stock_realtime/internal/feature/calendar/usecase"
)

type overrideGorm struct {
	db *gorm.DB
}

var _ usecase.OverrideRepository = (*overrideGorm)(nil)

// NewOverrideRepository は休場日・短縮取引日テーブルのリポジトリを生成します。
func NewOverrideRepository(db *gorm.DB) *overrideGorm {
	return &overrideGorm{db: db}
}

// SessionOverrideModel is one row of session_overrides.
type SessionOverrideModel struct {
	Date    string `gorm:"primaryKey;size:10"`
	Session string `gorm:"size:11;not null;default:''"`
	Closed  bool   `gorm:"not null;default:false"`
	Event   string `gorm:"size:100;not null;default:''"`
}

func (SessionOverrideModel) TableName() string {
	return "session_overrides"
}

// GetOverride は指定日の上書き設定を返します。存在しない場合は nil, nil を返します。
func (r *overrideGorm) GetOverride(ctx context.Context, date string) (*entity.Override, error) {
	var m SessionOverrideModel
	err := r.db.WithContext(ctx).Where("date = ?", date).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity.Override{Date: m.Date, Session: m.Session, Closed: m.Closed, Event: m.Event}, nil
}

// Upsert inserts or replaces overrides keyed by date.
func (r *overrideGorm) Upsert(ctx context.Context, overrides []entity.Override) error {
	if len(overrides) == 0 {
		return nil
	}
	ms := make([]SessionOverrideModel, 0, len(overrides))
	for _, ov := range overrides {
		ms = append(ms, SessionOverrideModel{Date: ov.Date, Session: ov.Session, Closed: ov.Closed, Event: ov.Event})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"session", "closed", "event"}),
	}).Create(&ms).Error
}
