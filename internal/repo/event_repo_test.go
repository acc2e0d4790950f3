package repo

import (
	"context"
	"testing"

	"github.com/shtetl/go-specials-backend/internal/domain"
)

func TestCreateViewEvent_AndCount(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.ViewEvent{})
	seedSpecial(t, db, "s1", nil)

	who := domain.GuestClaimant("g1")
	who.IPAddress = "198.51.100.2"

	ev, err := CreateViewEvent(context.Background(), db, "s1", who)
	if err != nil {
		t.Fatalf("CreateViewEvent: %v", err)
	}
	if ev.EventType != domain.EventTypeView || ev.SpecialID != "s1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.GuestSessionID == nil || *ev.GuestSessionID != "g1" || ev.UserID != nil {
		t.Fatalf("identity columns wrong: %+v", ev)
	}

	if _, err := CreateViewEvent(context.Background(), db, "s1", domain.UserClaimant("u1")); err != nil {
		t.Fatalf("second event: %v", err)
	}

	total, err := CountViews(context.Background(), db, "s1")
	if err != nil || total != 2 {
		t.Fatalf("CountViews = %d, %v", total, err)
	}
	none, err := CountViews(context.Background(), db, "other")
	if err != nil || none != 0 {
		t.Fatalf("CountViews(other) = %d, %v", none, err)
	}
}

func TestCountViewsBySpecial_Batched(t *testing.T) {
	db := newRepoDB(t, &domain.Business{}, &domain.Special{}, &domain.ViewEvent{})
	seedSpecial(t, db, "a", nil)
	seedSpecial(t, db, "b", nil)

	for i := 0; i < 3; i++ {
		if _, err := CreateViewEvent(context.Background(), db, "a", domain.GuestClaimant("g1")); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
	if _, err := CreateViewEvent(context.Background(), db, "b", domain.UserClaimant("u1")); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	counts, err := CountViewsBySpecial(context.Background(), db, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batched views: %v", err)
	}
	if counts["a"] != 3 || counts["b"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if _, ok := counts["c"]; ok {
		t.Fatalf("specials without views must be absent from the map")
	}
}

func TestCreateViewEvent_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	if _, err := CreateViewEvent(context.Background(), db, "s1", domain.UserClaimant("u1")); err == nil {
		t.Fatalf("expected error when table missing")
	}
}
