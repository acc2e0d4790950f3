package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shtetl/go-specials-backend/internal/domain"
	"github.com/shtetl/go-specials-backend/internal/repo"
)

func TestSpecialService_ListActive(t *testing.T) {
	db := newServiceDB(t)
	seedClaimable(t, db, "front", func(s *domain.Special) {
		s.Priority = 5
		s.MaxClaimsTotal = intp(10)
	})
	seedClaimable(t, db, "back", func(s *domain.Special) { s.Priority = 1 })
	seedClaimable(t, db, "hidden", func(s *domain.Special) { s.IsActive = false })

	claims := NewClaimService(db, time.Second)
	if _, err := claims.Claim(context.Background(), "front", domain.UserClaimant("u1")); err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	svc := NewSpecialService(db)
	page, err := svc.ListActive(context.Background(), 0, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Specials) != 2 {
		t.Fatalf("want 2 active specials, got total=%d len=%d", page.Total, len(page.Specials))
	}
	if page.Specials[0].Special.ID != "front" {
		t.Fatalf("priority ordering broken: first is %s", page.Specials[0].Special.ID)
	}
	front := page.Specials[0]
	if front.ClaimsCount != 1 || front.ClaimsLeft.Remaining != 9 {
		t.Fatalf("front counts wrong: claims=%d left=%d", front.ClaimsCount, front.ClaimsLeft.Remaining)
	}
	if front.Special.Business.ID == "" {
		t.Fatalf("business not preloaded")
	}
}

func TestSpecialService_Get(t *testing.T) {
	db := newServiceDB(t)
	seedClaimable(t, db, "sp1", nil)

	if _, err := repo.CreateViewEvent(context.Background(), db, "sp1", domain.GuestClaimant("g1")); err != nil {
		t.Fatalf("seed view: %v", err)
	}

	svc := NewSpecialService(db)
	got, err := svc.Get(context.Background(), "sp1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ViewsCount != 1 {
		t.Fatalf("views %d, want 1", got.ViewsCount)
	}
	if !got.ClaimsLeft.Unbounded || got.ClaimsLeft.Sentinel() != domain.UnboundedClaimsSentinel {
		t.Fatalf("unbounded special must report the sentinel, got %+v", got.ClaimsLeft)
	}

	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrSpecialNotFound) {
		t.Fatalf("want ErrSpecialNotFound, got %v", err)
	}
}

func TestSpecialService_ReadPathDegradesWithoutEventStore(t *testing.T) {
	db := newServiceDB(t)
	seedClaimable(t, db, "sp1", nil)
	if err := db.Migrator().DropTable(&domain.ViewEvent{}); err != nil {
		t.Fatalf("drop events table: %v", err)
	}

	svc := NewSpecialService(db)
	got, err := svc.Get(context.Background(), "sp1")
	if err != nil {
		t.Fatalf("detail must survive a broken event store, got %v", err)
	}
	if got.ViewsCount != 0 {
		t.Fatalf("views should degrade to 0, got %d", got.ViewsCount)
	}

	page, err := svc.ListActive(context.Background(), 0, 20)
	if err != nil {
		t.Fatalf("list must survive a broken event store, got %v", err)
	}
	if len(page.Specials) != 1 || page.Specials[0].ViewsCount != 0 {
		t.Fatalf("list should render with zero views, got %+v", page.Specials)
	}
}

func TestSpecialService_GetReturnsDisabledSpecials(t *testing.T) {
	db := newServiceDB(t)
	seedClaimable(t, db, "off", func(s *domain.Special) { s.IsActive = false })

	svc := NewSpecialService(db)
	got, err := svc.Get(context.Background(), "off")
	if err != nil {
		t.Fatalf("detail must serve disabled specials, got %v", err)
	}
	if got.Special.IsActive {
		t.Fatalf("expected disabled special")
	}
}

func TestSpecialService_Search(t *testing.T) {
	db := newServiceDB(t)
	seedClaimable(t, db, "tacos", func(s *domain.Special) { s.Title = "Taco Tuesday" })
	seedClaimable(t, db, "wings", func(s *domain.Special) { s.Title = "Wing Night" })

	svc := NewSpecialService(db)
	page, err := svc.Search(context.Background(), repo.SpecialSearchFilter{Query: "taco", ActiveOnly: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 || len(page.Specials) != 1 || page.Specials[0].Special.ID != "tacos" {
		t.Fatalf("search mismatch: total=%d %+v", page.Total, page.Specials)
	}
}
