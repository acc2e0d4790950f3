package repo

import (
	"context"
	"testing"
	"time"

	"github.com/shtetl/go-specials-backend/internal/domain"
)

func TestCreateClaim_SetsLedgerFields(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.Claim{})
	seedSpecial(t, db, "s1", nil)

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	who := domain.UserClaimant("u1")
	who.IPAddress = "203.0.113.7"
	who.UserAgent = "test-agent"

	c, err := CreateClaim(context.Background(), db, "s1", who, now)
	if err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	if c.ID == "" || c.SpecialID != "s1" || c.Status != domain.ClaimStatusClaimed {
		t.Fatalf("unexpected claim: %+v", c)
	}
	if c.UserID == nil || *c.UserID != "u1" || c.GuestSessionID != nil {
		t.Fatalf("identity columns wrong: %+v", c)
	}
	if !c.ClaimedAt.Equal(now) || !c.StatusChangedAt.Equal(now) {
		t.Fatalf("timestamps wrong: %+v", c)
	}

	// round-trip
	var got domain.Claim
	if err := db.First(&got, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if got.IPAddress != "203.0.113.7" || got.UserAgent != "test-agent" {
		t.Fatalf("audit metadata not persisted: %+v", got)
	}
}

func TestCountActiveClaims_ExcludesCancelled(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.Claim{})
	seedSpecial(t, db, "s1", nil)
	now := time.Now().UTC()

	c1, _ := CreateClaim(context.Background(), db, "s1", domain.UserClaimant("u1"), now)
	CreateClaim(context.Background(), db, "s1", domain.UserClaimant("u2"), now)
	c3, _ := CreateClaim(context.Background(), db, "s1", domain.UserClaimant("u3"), now)

	// Redeemed still counts; cancelled does not.
	if err := TransitionClaim(context.Background(), db, c1.ID, domain.ClaimStatusRedeemed, now); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if err := TransitionClaim(context.Background(), db, c3.ID, domain.ClaimStatusCancelled, now); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	total, err := CountActiveClaims(context.Background(), db, "s1")
	if err != nil {
		t.Fatalf("CountActiveClaims: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 active claims, got %d", total)
	}
}

func TestCountActiveClaimsBySpecial_Batched(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.Claim{})
	seedSpecial(t, db, "a", nil)
	seedSpecial(t, db, "b", nil)
	now := time.Now().UTC()

	CreateClaim(context.Background(), db, "a", domain.UserClaimant("u1"), now)
	CreateClaim(context.Background(), db, "a", domain.UserClaimant("u2"), now)
	CreateClaim(context.Background(), db, "b", domain.GuestClaimant("g1"), now)

	counts, err := CountActiveClaimsBySpecial(context.Background(), db, []string{"a", "b", "empty"})
	if err != nil {
		t.Fatalf("batched count: %v", err)
	}
	if counts["a"] != 2 || counts["b"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if _, ok := counts["empty"]; ok {
		t.Fatalf("specials without claims must be absent from the map")
	}

	empty, err := CountActiveClaimsBySpecial(context.Background(), db, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("nil ids: %v, %v", empty, err)
	}
}

func TestFindActiveClaim_PerIdentity(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.Claim{})
	seedSpecial(t, db, "s1", nil)
	now := time.Now().UTC()

	user := domain.UserClaimant("u1")
	guest := domain.GuestClaimant("u1") // same raw ID on purpose

	if _, err := FindActiveClaim(context.Background(), db, "s1", user); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before claiming, got %v", err)
	}

	created, err := CreateClaim(context.Background(), db, "s1", user, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := FindActiveClaim(context.Background(), db, "s1", user)
	if err != nil || got.ID != created.ID {
		t.Fatalf("find user claim: %v, %v", got, err)
	}

	// A guest session with the same raw ID is a different claimant.
	if _, err := FindActiveClaim(context.Background(), db, "s1", guest); err != ErrNotFound {
		t.Fatalf("guest with same raw id must not see user claim, got %v", err)
	}

	// Cancelled claims stop matching.
	if err := TransitionClaim(context.Background(), db, created.ID, domain.ClaimStatusCancelled, now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := FindActiveClaim(context.Background(), db, "s1", user); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after cancel, got %v", err)
	}
}

func TestTransitionClaim_TerminalStatesAreFinal(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.Claim{})
	seedSpecial(t, db, "s1", nil)
	now := time.Now().UTC()

	c, err := CreateClaim(context.Background(), db, "s1", domain.UserClaimant("u1"), now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	later := now.Add(time.Minute)
	if err := TransitionClaim(context.Background(), db, c.ID, domain.ClaimStatusRedeemed, later); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	// Redeemed is terminal: no further transition may touch the row.
	if err := TransitionClaim(context.Background(), db, c.ID, domain.ClaimStatusCancelled, later); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound re-transitioning terminal claim, got %v", err)
	}

	var got domain.Claim
	if err := db.First(&got, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Status != domain.ClaimStatusRedeemed {
		t.Fatalf("terminal status overwritten: %s", got.Status)
	}
	if !got.ClaimedAt.Equal(c.ClaimedAt) {
		t.Fatalf("ClaimedAt must be immutable: %v vs %v", got.ClaimedAt, c.ClaimedAt)
	}
}

func TestTransitionClaim_MissingRow(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.Claim{})
	if err := TransitionClaim(context.Background(), db, "missing", domain.ClaimStatusCancelled, time.Now()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetClaimForClaimant_EnforcesOwnership(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.Claim{})
	seedSpecial(t, db, "s1", nil)
	now := time.Now().UTC()

	c, err := CreateClaim(context.Background(), db, "s1", domain.GuestClaimant("g1"), now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := GetClaimForClaimant(context.Background(), db, c.ID, domain.GuestClaimant("g1"))
	if err != nil || got.ID != c.ID {
		t.Fatalf("owner lookup: %v, %v", got, err)
	}
	if _, err := GetClaimForClaimant(context.Background(), db, c.ID, domain.GuestClaimant("g2")); err != ErrNotFound {
		t.Fatalf("foreign claimant must get ErrNotFound, got %v", err)
	}
}
