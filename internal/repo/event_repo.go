// Package repo implements the data persistence layer for the specials
// engine, backed by GORM. This file provides repository functions for
// engagement (view) events.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shtetl/go-specials-backend/internal/domain"
)

// CreateViewEvent appends a view event for a special. Callers on the
// engagement path treat failures as log-and-drop; nothing here retries.
func CreateViewEvent(ctx context.Context, db *gorm.DB, specialID string, who domain.Claimant) (*domain.ViewEvent, error) {
	ev := &domain.ViewEvent{
		ID:             uuid.NewString(),
		SpecialID:      specialID,
		UserID:         who.UserIDPtr(),
		GuestSessionID: who.GuestSessionIDPtr(),
		EventType:      domain.EventTypeView,
		IPAddress:      who.IPAddress,
		UserAgent:      who.UserAgent,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

// CountViews returns the number of view events recorded for a special.
func CountViews(ctx context.Context, db *gorm.DB, specialID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ViewEvent{}).
		Where("special_id = ? AND event_type = ?", specialID, domain.EventTypeView).
		Count(&total).Error
	return total, err
}

// CountViewsBySpecial returns view counts for a set of specials in one
// GROUP BY query. Specials with no views are absent from the map.
func CountViewsBySpecial(ctx context.Context, db *gorm.DB, specialIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(specialIDs))
	if len(specialIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		SpecialID string
		N         int64
	}
	err := db.WithContext(ctx).
		Model(&domain.ViewEvent{}).
		Select("special_id, COUNT(*) as n").
		Where("special_id IN ? AND event_type = ?", specialIDs, domain.EventTypeView).
		Group("special_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.SpecialID] = r.N
	}
	return counts, nil
}
