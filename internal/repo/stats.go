// Package repo implements the data persistence layer for the specials
// engine, backed by GORM. This file provides small aggregate queries
// used for conditional responses (ETag generation) on the read-only
// listing endpoints, which tolerate slight staleness.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shtetl/go-specials-backend/internal/domain"
)

// SpecialsStats returns aggregate metadata over active specials: the
// total number of rows and the greatest UpdatedAt among them. When no
// specials are active, count is 0 and maxUpdatedAt is nil.
func SpecialsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Special{}).Where("is_active = ?", true)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
