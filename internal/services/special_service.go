// Package services – SpecialService
//
// Read path for the specials catalogue: active listings, single-offer
// detail, and search. All three return offers decorated with derived
// counts (active claims, recorded views, remaining capacity) so
// handlers never compute availability themselves.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shtetl/go-specials-backend/internal/domain"
	"github.com/shtetl/go-specials-backend/internal/repo"
)

// SpecialWithCounts is a catalogue entry decorated with the derived
// numbers the API exposes alongside the offer itself.
type SpecialWithCounts struct {
	Special     *domain.Special
	ClaimsCount int64
	ViewsCount  int64
	ClaimsLeft  Availability
}

// SpecialPage is one page of catalogue results plus the total count
// for pagination metadata.
type SpecialPage struct {
	Specials []SpecialWithCounts
	Total    int64
	Offset   int
	Limit    int
}

// SpecialService serves the read-only catalogue operations.
type SpecialService struct {
	DB *gorm.DB

	// now is a seam for validity-window tests.
	now func() time.Time
}

// NewSpecialService wires a read-path service around the storage handle.
func NewSpecialService(db *gorm.DB) *SpecialService {
	return &SpecialService{
		DB:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ListActive returns a page of currently-claimable specials ordered by
// priority, then soonest expiry. Counts are fetched in two batched
// queries rather than per row.
func (s *SpecialService) ListActive(ctx context.Context, offset, limit int) (*SpecialPage, error) {
	tr := otel.Tracer("services/SpecialService")
	ctx, span := tr.Start(ctx, "ListActive",
		trace.WithAttributes(
			attribute.Int("page.offset", offset),
			attribute.Int("page.limit", limit),
		),
	)
	defer span.End()

	now := s.now()
	total, err := repo.CountActiveSpecials(ctx, s.DB, now)
	if err != nil {
		return nil, transient(err)
	}
	specials, err := repo.ListActiveSpecialsPage(ctx, s.DB, now, offset, limit)
	if err != nil {
		return nil, transient(err)
	}
	decorated, err := s.decorate(ctx, specials)
	if err != nil {
		return nil, err
	}
	return &SpecialPage{Specials: decorated, Total: total, Offset: offset, Limit: limit}, nil
}

// Get returns a single special with its counts. Inactive and
// out-of-window specials are still returned; the detail page shows
// them, only claiming is refused.
func (s *SpecialService) Get(ctx context.Context, id string) (*SpecialWithCounts, error) {
	tr := otel.Tracer("services/SpecialService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("special.id", id)),
	)
	defer span.End()

	sp, err := repo.GetSpecial(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSpecialNotFound
		}
		return nil, transient(err)
	}
	claims, err := repo.CountActiveClaims(ctx, s.DB, id)
	if err != nil {
		return nil, transient(err)
	}
	// Views are engagement decoration. A broken event store degrades
	// the count to zero instead of taking down the read path.
	views, err := repo.CountViews(ctx, s.DB, id)
	if err != nil {
		log.Warn().Err(err).Str("special_id", id).Msg("view count unavailable")
		views = 0
	}
	return &SpecialWithCounts{
		Special:     sp,
		ClaimsCount: claims,
		ViewsCount:  views,
		ClaimsLeft:  ClaimsLeft(sp.MaxClaimsTotal, claims),
	}, nil
}

// Search filters the catalogue by free-text query, category and
// business, returning a decorated page like ListActive.
func (s *SpecialService) Search(ctx context.Context, filter repo.SpecialSearchFilter) (*SpecialPage, error) {
	tr := otel.Tracer("services/SpecialService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.String("search.query", filter.Query)),
	)
	defer span.End()

	if filter.ActiveOnly {
		filter.Now = s.now()
	}
	specials, total, err := repo.SearchSpecials(ctx, s.DB, filter)
	if err != nil {
		return nil, transient(err)
	}
	decorated, err := s.decorate(ctx, specials)
	if err != nil {
		return nil, err
	}
	return &SpecialPage{Specials: decorated, Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}

// decorate attaches batched claim and view counts to a result set.
func (s *SpecialService) decorate(ctx context.Context, specials []domain.Special) ([]SpecialWithCounts, error) {
	ids := make([]string, 0, len(specials))
	for i := range specials {
		ids = append(ids, specials[i].ID)
	}
	claims, err := repo.CountActiveClaimsBySpecial(ctx, s.DB, ids)
	if err != nil {
		return nil, transient(err)
	}
	// Same degradation as Get: lists render without view counts when
	// the event store is unavailable.
	views, err := repo.CountViewsBySpecial(ctx, s.DB, ids)
	if err != nil {
		log.Warn().Err(err).Msg("view counts unavailable")
		views = map[string]int64{}
	}
	out := make([]SpecialWithCounts, 0, len(specials))
	for i := range specials {
		sp := &specials[i]
		out = append(out, SpecialWithCounts{
			Special:     sp,
			ClaimsCount: claims[sp.ID],
			ViewsCount:  views[sp.ID],
			ClaimsLeft:  ClaimsLeft(sp.MaxClaimsTotal, claims[sp.ID]),
		})
	}
	return out, nil
}
