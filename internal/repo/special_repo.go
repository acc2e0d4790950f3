// Package repo implements the data persistence layer for the specials
// engine, backed by GORM. This file provides repository functions for
// the Special model.
//
// All functions are context-aware and accept a *gorm.DB handle, making
// them safe for use within transactions or connection-scoped
// operations. They follow the "thin repository" approach: no business
// logic, only CRUD persistence and query composition.
//
// Error semantics:
//   - When a special is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// The filter assembly in SearchSpecials deliberately uses GORM's typed
// query composition instead of string concatenation; every value goes
// through a bound parameter.
package repo

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/shtetl/go-specials-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetSpecial fetches a single special by ID with its business joined.
// Returns ErrNotFound when missing.
func GetSpecial(ctx context.Context, db *gorm.DB, id string) (*domain.Special, error) {
	var s domain.Special
	err := db.WithContext(ctx).
		Preload("Business").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSpecialForClaim re-reads a special inside the claim transaction.
// It must be called on the transaction handle so the capacity and
// active-flag checks see the same snapshot the claim insert will use.
func GetSpecialForClaim(ctx context.Context, tx *gorm.DB, id string) (*domain.Special, error) {
	var s domain.Special
	err := tx.WithContext(ctx).
		Preload("Business").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountActiveSpecials counts specials that are enabled and inside
// their validity window at now.
func CountActiveSpecials(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Special{}).
		Where("is_active = ? AND valid_from <= ? AND valid_until >= ?", true, now, now).
		Count(&total).Error
	return total, err
}

// ListActiveSpecialsPage returns a page of active, in-window specials
// ordered by priority descending then by soonest expiry, with business
// metadata preloaded. The caller computes offset and limit.
func ListActiveSpecialsPage(ctx context.Context, db *gorm.DB, now time.Time, offset, limit int) ([]domain.Special, error) {
	var out []domain.Special
	err := db.WithContext(ctx).
		Preload("Business").
		Where("is_active = ? AND valid_from <= ? AND valid_until >= ?", true, now, now).
		Order("priority desc").
		Order("valid_until asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SpecialSearchFilter is the parameter object for SearchSpecials. Zero
// values mean "no constraint" for Query, Category, and BusinessID.
// When ActiveOnly is set, Now anchors the validity-window check.
type SpecialSearchFilter struct {
	Query      string
	Category   string
	BusinessID string
	ActiveOnly bool
	Now        time.Time
	Offset     int
	Limit      int
}

// foldCaser performs Unicode case folding for case-insensitive matching.
var foldCaser = cases.Fold()

// SearchSpecials returns specials matching the filter, ordered by
// soonest expiry, plus the unpaged match count. Free-text queries match
// title, description, and the business name case-insensitively.
func SearchSpecials(ctx context.Context, db *gorm.DB, f SpecialSearchFilter) ([]domain.Special, int64, error) {
	base := db.WithContext(ctx).
		Model(&domain.Special{}).
		Joins("JOIN businesses ON businesses.id = specials.business_id")

	if f.ActiveOnly {
		base = base.Where(
			"specials.is_active = ? AND specials.valid_from <= ? AND specials.valid_until >= ?",
			true, f.Now, f.Now,
		)
	}
	if text := strings.TrimSpace(f.Query); text != "" {
		pattern := "%" + foldCaser.String(text) + "%"
		base = base.Where(
			"LOWER(specials.title) LIKE ? OR LOWER(specials.description) LIKE ? OR LOWER(businesses.name) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if f.Category != "" {
		base = base.Where("businesses.category = ?", foldCaser.String(f.Category))
	}
	if f.BusinessID != "" {
		base = base.Where("specials.business_id = ?", f.BusinessID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := base.Session(&gorm.Session{}).Preload("Business")
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []domain.Special
	err := q.Order("specials.valid_until asc").Find(&out).Error
	return out, total, err
}
