// Package domain defines the persistence models for the specials engine:
// businesses, promotional specials, the claim ledger, and view events.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Claim status values. A claim is created as "claimed" and may move to
// exactly one of the terminal states "redeemed" or "cancelled".
const (
	ClaimStatusClaimed   = "claimed"
	ClaimStatusRedeemed  = "redeemed"
	ClaimStatusCancelled = "cancelled"
)

// ActiveClaimStatuses are the states that occupy a unit of a special's
// capacity and count toward duplicate-claim checks. Cancelled claims
// release their slot.
var ActiveClaimStatuses = []string{ClaimStatusClaimed, ClaimStatusRedeemed}

// UnboundedClaimsSentinel is the value reported to API clients for
// claims_left when a special has no configured capacity.
const UnboundedClaimsSentinel = 999999

// Business is the slice of directory metadata the specials endpoints
// join in. The business directory itself is owned by an external
// collaborator; rows here are read-only as far as this subsystem is
// concerned.
type Business struct {
	ID        string         `json:"id"       gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"     gorm:"type:varchar(255);not null;index"`
	Address   string         `json:"address"  gorm:"type:varchar(255)"`
	City      string         `json:"city"     gorm:"type:varchar(128)"`
	State     string         `json:"state"    gorm:"type:varchar(64)"`
	ZipCode   string         `json:"zip_code" gorm:"type:varchar(16)"`
	Phone     string         `json:"phone"    gorm:"type:varchar(32)"`
	Website   string         `json:"website"  gorm:"type:varchar(255)"`
	Category  string         `json:"category" gorm:"type:varchar(64);index"`
	Rating    float64        `json:"rating"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"        gorm:"index"`
}

// TableName returns the database table name for Business.
func (Business) TableName() string { return "businesses" }

// Special represents a capped-quantity promotional offer tied to a
// business and claimable within a validity window.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - BusinessID: owning business; indexed for per-business listings.
//   - MaxClaimsTotal: capacity cap; nil means unbounded.
//   - PerVisit: when true, one claimant may hold several active claims.
//   - Priority: list ordering weight (higher first).
//   - IsActive: soft-disable switch; the only field that may change
//     once claims exist.
type Special struct {
	ID             string         `json:"id"               gorm:"type:char(36);primaryKey"`
	BusinessID     string         `json:"business_id"      gorm:"type:char(36);not null;index:idx_business_specials"`
	Title          string         `json:"title"            gorm:"type:varchar(255);not null"`
	Subtitle       string         `json:"subtitle"         gorm:"type:varchar(255)"`
	Description    string         `json:"description"      gorm:"type:text"`
	DiscountLabel  string         `json:"discount_label"   gorm:"type:varchar(128)"`
	ValidFrom      time.Time      `json:"valid_from"       gorm:"not null;index"`
	ValidUntil     time.Time      `json:"valid_until"      gorm:"not null;index"`
	IsActive       bool           `json:"is_active"        gorm:"not null;default:true;index"`
	MaxClaimsTotal *int           `json:"max_claims_total"`
	PerVisit       bool           `json:"per_visit"        gorm:"not null;default:false"`
	Priority       int            `json:"priority"         gorm:"not null;default:0;index"`
	HeroImageURL   string         `json:"hero_image_url"   gorm:"type:varchar(512)"`
	Terms          string         `json:"terms"            gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"                gorm:"index"`

	// Business is the owning directory entry, joined for display.
	Business Business `json:"-" gorm:"foreignKey:BusinessID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Special.
func (Special) TableName() string { return "specials" }

// Bounded reports whether the special carries a capacity cap.
func (s *Special) Bounded() bool { return s.MaxClaimsTotal != nil }

// WindowContains reports whether now falls inside [ValidFrom, ValidUntil].
func (s *Special) WindowContains(now time.Time) bool {
	return !now.Before(s.ValidFrom) && !now.After(s.ValidUntil)
}

// Claim is one row of the claim ledger: a record of a claimant
// reserving one unit of a special's capacity. ClaimedAt is set once at
// creation and never mutated; status transitions update
// StatusChangedAt.
//
// Exactly one of UserID or GuestSessionID is set. IPAddress and
// UserAgent are audit metadata only and are never consulted for
// eligibility decisions.
type Claim struct {
	ID              string         `json:"id"                gorm:"type:char(36);primaryKey"`
	SpecialID       string         `json:"special_id"        gorm:"type:char(36);not null;index:idx_special_claims,priority:1"`
	UserID          *string        `json:"user_id,omitempty" gorm:"type:varchar(64);index"`
	GuestSessionID  *string        `json:"guest_session_id,omitempty" gorm:"type:varchar(64);index"`
	Status          string         `json:"status"            gorm:"type:varchar(16);not null;default:'claimed';index:idx_special_claims,priority:2;check:status IN ('claimed','redeemed','cancelled')"`
	ClaimedAt       time.Time      `json:"claimed_at"        gorm:"not null"`
	StatusChangedAt time.Time      `json:"status_changed_at" gorm:"not null"`
	IPAddress       string         `json:"-"                 gorm:"type:varchar(64)"`
	UserAgent       string         `json:"-"                 gorm:"type:varchar(512)"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                 gorm:"index"`

	// Special is the claimed offer. Claims are cascade-deleted if the
	// special is removed.
	Special Special `json:"-" gorm:"foreignKey:SpecialID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Claim.
func (Claim) TableName() string { return "special_claims" }

// Active reports whether the claim occupies a capacity slot.
func (c *Claim) Active() bool {
	return c.Status == ClaimStatusClaimed || c.Status == ClaimStatusRedeemed
}

// Terminal reports whether the claim has reached a final state.
func (c *Claim) Terminal() bool {
	return c.Status == ClaimStatusRedeemed || c.Status == ClaimStatusCancelled
}

// ViewEvent records a single engagement event against a special. Rows
// are written best-effort by the engagement recorder and consumed only
// for the views_count aggregate; losing one is acceptable.
type ViewEvent struct {
	ID             string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SpecialID      string    `json:"special_id" gorm:"type:char(36);not null;index:idx_special_events,priority:1"`
	UserID         *string   `json:"user_id,omitempty" gorm:"type:varchar(64)"`
	GuestSessionID *string   `json:"guest_session_id,omitempty" gorm:"type:varchar(64)"`
	EventType      string    `json:"event_type" gorm:"type:varchar(16);not null;default:'view';index:idx_special_events,priority:2"`
	IPAddress      string    `json:"-"          gorm:"type:varchar(64)"`
	UserAgent      string    `json:"-"          gorm:"type:varchar(512)"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for ViewEvent.
func (ViewEvent) TableName() string { return "special_events" }

// EventTypeView is the only event type currently recorded.
const EventTypeView = "view"
