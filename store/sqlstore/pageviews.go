package sqlstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qforum/models"
)

// RecordPageView increments today's counter for path.
func (s *Store) RecordPageView(ctx context.Context, path string) error {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Atomic upsert to avoid duplicate key errors under concurrency
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "path"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("page_views.count + 1"),
			"updated_at": now,
		}),
	}).Create(&models.PageView{Date: midnight, Path: path, Count: 1}).Error
}

// PageViews sums all recorded views of path.
func (s *Store) PageViews(ctx context.Context, path string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.PageView{}).
		Where("path = ?", path).
		Select("COALESCE(SUM(count),0)").
		Scan(&total).Error
	return total, err
}

// ViewsToday sums every view recorded since local midnight.
func (s *Store) ViewsToday(ctx context.Context) (int64, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var total int64
	err := s.db.WithContext(ctx).Model(&models.PageView{}).
		Where("date >= ?", midnight).
		Select("COALESCE(SUM(count),0)").
		Scan(&total).Error
	return total, err
}
