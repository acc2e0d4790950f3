// Package services – ClaimService
//
// This file implements the claim coordinator, the one place in the
// application where correctness depends on concurrency control rather
// than request/response mapping. A claim attempt must never push the
// number of active claims past the special's capacity, and a claimant
// must not double-claim a single-use special, no matter how many
// requests hit the same special at once.
//
// The coordinator combines two mechanisms:
//
//  1. A per-special keyed lock with a bounded wait serializes claim
//     processing for one special. Different specials proceed
//     independently.
//  2. Inside the lock, the special, the active-claim count, and the
//     claimant's existing claim are re-read within a single GORM
//     transaction, eligibility is re-validated against that snapshot,
//     and the new ledger row is inserted before commit. The
//     transaction rolls back on any error or early return, so no
//     partial write is ever observable.
//
// Reading counts before taking the lock and acting on them after would
// reintroduce the classic oversubscription race, which is why every
// read used for the decision happens after acquisition.
//
// Observability: public methods are OpenTelemetry-instrumented and
// claim outcomes feed the specials_claim_attempts_total counter.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shtetl/go-specials-backend/internal/domain"
	"github.com/shtetl/go-specials-backend/internal/repo"
)

// DefaultLockWait bounds how long a claim attempt waits for a
// contended special before failing with ErrClaimContention.
const DefaultLockWait = 3 * time.Second

// ClaimReceipt is the successful outcome of a claim: the ledger row
// that was written, the special it was written against, and the
// post-commit availability.
type ClaimReceipt struct {
	Claim      *domain.Claim
	Special    *domain.Special
	ClaimsLeft Availability
}

// ClaimService coordinates eligibility checking and ledger writes
// inside a single atomic unit of work per claim attempt.
type ClaimService struct {
	// DB is the injected storage handle; the coordinator never touches
	// process-global state.
	DB *gorm.DB

	// LockWait bounds the per-special lock acquisition.
	LockWait time.Duration

	locks *specialLocker

	// now is a seam for window and timestamp tests.
	now func() time.Time
}

// NewClaimService wires a coordinator around the given storage handle.
func NewClaimService(db *gorm.DB, lockWait time.Duration) *ClaimService {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &ClaimService{
		DB:       db,
		LockWait: lockWait,
		locks:    newSpecialLocker(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Claim attempts to reserve one unit of the special's capacity for the
// claimant.
//
// Semantics:
//   - The special must exist, be active, and be inside its validity
//     window; otherwise ErrSpecialNotFound / ErrSpecialInactive /
//     ErrSpecialNotYetValid / ErrSpecialExpired.
//   - Bounded specials reject with ErrSoldOut once active claims reach
//     capacity; the count is always recomputed from the ledger.
//   - Non-per-visit specials reject a claimant holding an active claim
//     with ErrAlreadyClaimed. Per-visit specials allow repeats, each
//     consuming capacity.
//   - Lock-wait timeouts and storage failures surface as ErrTransient
//     (ErrClaimContention for the former); nothing is persisted.
//
// Exactly one ledger row is written on success; zero on any rejection.
func (s *ClaimService) Claim(ctx context.Context, specialID string, who domain.Claimant) (receipt *ClaimReceipt, err error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Claim",
		trace.WithAttributes(
			attribute.String("special.id", specialID),
			attribute.String("claimant.key", who.Key()),
		),
	)
	defer span.End()
	defer func() { claimOutcomes.WithLabelValues(claimOutcomeLabel(err)).Inc() }()

	if verr := who.Validate(); verr != nil {
		return nil, verr
	}

	release, lerr := s.locks.acquire(ctx, specialID, s.LockWait)
	if lerr != nil {
		if errors.Is(lerr, context.DeadlineExceeded) {
			return nil, ErrClaimContention
		}
		// Caller went away before the lock was free: plain rollback,
		// nothing persisted.
		return nil, lerr
	}
	defer release()

	now := s.now()
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sp, gerr := repo.GetSpecialForClaim(ctx, tx, specialID)
		if gerr != nil {
			if errors.Is(gerr, repo.ErrNotFound) {
				return ErrSpecialNotFound
			}
			return transient(gerr)
		}

		active, cerr := repo.CountActiveClaims(ctx, tx, specialID)
		if cerr != nil {
			return transient(cerr)
		}

		hasActive := false
		if _, ferr := repo.FindActiveClaim(ctx, tx, specialID, who); ferr == nil {
			hasActive = true
		} else if !errors.Is(ferr, repo.ErrNotFound) {
			return transient(ferr)
		}

		if eerr := CheckEligibility(sp, active, hasActive, now); eerr != nil {
			return eerr
		}

		claim, ierr := repo.CreateClaim(ctx, tx, specialID, who, now)
		if ierr != nil {
			return transient(ierr)
		}

		receipt = &ClaimReceipt{
			Claim:      claim,
			Special:    sp,
			ClaimsLeft: ClaimsLeft(sp.MaxClaimsTotal, active+1),
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return receipt, nil
}

// Cancel voids the claimant's own claim, releasing its capacity slot.
// Cancelled is terminal: the claim must currently be in the "claimed"
// state, otherwise ErrClaimFinal.
func (s *ClaimService) Cancel(ctx context.Context, claimID string, who domain.Claimant) error {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(attribute.String("claim.id", claimID)),
	)
	defer span.End()

	if err := who.Validate(); err != nil {
		return err
	}

	claim, err := repo.GetClaimForClaimant(ctx, s.DB, claimID, who)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrClaimNotFound
		}
		return transient(err)
	}
	if claim.Terminal() {
		return ErrClaimFinal
	}
	if err := repo.TransitionClaim(ctx, s.DB, claimID, domain.ClaimStatusCancelled, s.now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Lost a race with another transition; the state is final.
			return ErrClaimFinal
		}
		return transient(err)
	}
	return nil
}

// Redeem marks a claim as used by the business. Redeemed claims keep
// occupying their capacity slot and remain terminal.
func (s *ClaimService) Redeem(ctx context.Context, claimID string) error {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Redeem",
		trace.WithAttributes(attribute.String("claim.id", claimID)),
	)
	defer span.End()

	claim, err := repo.GetClaim(ctx, s.DB, claimID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrClaimNotFound
		}
		return transient(err)
	}
	if claim.Terminal() {
		return ErrClaimFinal
	}
	if err := repo.TransitionClaim(ctx, s.DB, claimID, domain.ClaimStatusRedeemed, s.now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrClaimFinal
		}
		return transient(err)
	}
	return nil
}
