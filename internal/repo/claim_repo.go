// Package repo implements the data persistence layer for the specials
// engine, backed by GORM. This file provides repository functions for
// the claim ledger.
//
// The ledger is append-mostly: rows are inserted in state "claimed"
// and only ever updated to one of the terminal states. Capacity is
// never stored; it is always recomputed from these rows so there is no
// second counter that could drift.
//
// Functions:
//
//   - CountActiveClaims(ctx, db, specialID) -> (int64, error)
//     Counts claims occupying a capacity slot (claimed or redeemed).
//
//   - CountActiveClaimsBySpecial(ctx, db, ids) -> (map[string]int64, error)
//     Batched variant for list pages, one GROUP BY query.
//
//   - FindActiveClaim(ctx, db, specialID, claimant) -> (*domain.Claim, error)
//     Returns the claimant's active claim on the special, or ErrNotFound.
//
//   - CreateClaim(ctx, db, specialID, claimant, now) -> (*domain.Claim, error)
//     Appends a ledger row in state "claimed" with ClaimedAt = now.
//
//   - GetClaim(ctx, db, id) -> (*domain.Claim, error)
//     Fetches a claim by primary key.
//
//   - GetClaimForClaimant(ctx, db, id, claimant) -> (*domain.Claim, error)
//     Fetches a claim enforcing ownership by the claimant identity.
//
//   - TransitionClaim(ctx, db, id, toStatus, now) -> error
//     Guarded move from an active state to a terminal one; ErrNotFound
//     when the row is missing or already terminal.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shtetl/go-specials-backend/internal/domain"
)

// CountActiveClaims counts claims in an active state for one special.
func CountActiveClaims(ctx context.Context, db *gorm.DB, specialID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Claim{}).
		Where("special_id = ? AND status IN ?", specialID, domain.ActiveClaimStatuses).
		Count(&total).Error
	return total, err
}

// CountActiveClaimsBySpecial returns active-claim counts for a set of
// specials in one query. Specials with no claims are absent from the map.
func CountActiveClaimsBySpecial(ctx context.Context, db *gorm.DB, specialIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(specialIDs))
	if len(specialIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		SpecialID string
		N         int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Claim{}).
		Select("special_id, COUNT(*) as n").
		Where("special_id IN ? AND status IN ?", specialIDs, domain.ActiveClaimStatuses).
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

// claimantScope narrows a claim query to one claimant identity.
func claimantScope(q *gorm.DB, who domain.Claimant) *gorm.DB {
	if who.IsGuest() {
		return q.Where("guest_session_id = ?", who.GuestSessionID)
	}
	return q.Where("user_id = ?", who.UserID)
}

// FindActiveClaim returns the claimant's active claim on the special,
// or ErrNotFound when none exists. With per-visit specials several
// active claims may exist; the earliest is returned.
func FindActiveClaim(ctx context.Context, db *gorm.DB, specialID string, who domain.Claimant) (*domain.Claim, error) {
	var c domain.Claim
	q := db.WithContext(ctx).
		Where("special_id = ? AND status IN ?", specialID, domain.ActiveClaimStatuses)
	err := claimantScope(q, who).Order("claimed_at asc").First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClaim appends a ledger row in state "claimed". ClaimedAt and
// StatusChangedAt are both set to now (UTC expected from the caller).
func CreateClaim(ctx context.Context, db *gorm.DB, specialID string, who domain.Claimant, now time.Time) (*domain.Claim, error) {
	c := &domain.Claim{
		ID:              uuid.NewString(),
		SpecialID:       specialID,
		UserID:          who.UserIDPtr(),
		GuestSessionID:  who.GuestSessionIDPtr(),
		Status:          domain.ClaimStatusClaimed,
		ClaimedAt:       now,
		StatusChangedAt: now,
		IPAddress:       who.IPAddress,
		UserAgent:       who.UserAgent,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetClaim fetches a claim by ID regardless of who owns it.
func GetClaim(ctx context.Context, db *gorm.DB, id string) (*domain.Claim, error) {
	var c domain.Claim
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetClaimForClaimant fetches a claim by ID, enforcing that it belongs
// to the given claimant. Returns ErrNotFound otherwise.
func GetClaimForClaimant(ctx context.Context, db *gorm.DB, id string, who domain.Claimant) (*domain.Claim, error) {
	var c domain.Claim
	err := claimantScope(db.WithContext(ctx).Where("id = ?", id), who).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// TransitionClaim moves a claim from an active state to toStatus and
// stamps StatusChangedAt. The WHERE guard keeps terminal states final:
// if the row is missing or already terminal, no row is touched and
// ErrNotFound is returned.
func TransitionClaim(ctx context.Context, db *gorm.DB, id, toStatus string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Claim{}).
		Where("id = ? AND status = ?", id, domain.ClaimStatusClaimed).
		Updates(map[string]interface{}{
			"status":            toStatus,
			"status_changed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
