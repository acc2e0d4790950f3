// Specials HTTP handlers.
//
// This file exposes the read-only REST endpoints for promotional
// specials:
//   - GET /specials          (list active, paginated, ETag support)
//   - GET /specials/search   (filtered listing)
//   - GET /specials/{id}     (detail; records a view event as a side effect)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including
// conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shtetl/go-specials-backend/internal/domain"
	"github.com/shtetl/go-specials-backend/internal/repo"
	"github.com/shtetl/go-specials-backend/internal/services"
	"github.com/shtetl/go-specials-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SpecialService defines the catalogue read operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor
// the provided context.
type SpecialService interface {
	// ListActive returns a page of currently-claimable specials.
	ListActive(ctx context.Context, offset, limit int) (*services.SpecialPage, error)
	// Get returns one special with derived counts.
	Get(ctx context.Context, id string) (*services.SpecialWithCounts, error)
	// Search returns a filtered, paginated catalogue page.
	Search(ctx context.Context, filter repo.SpecialSearchFilter) (*services.SpecialPage, error)
}

// ClaimService defines the claim lifecycle operations consumed by HTTP
// handlers.
type ClaimService interface {
	// Claim reserves one unit of the special's capacity for the claimant.
	Claim(ctx context.Context, specialID string, who domain.Claimant) (*services.ClaimReceipt, error)
	// Cancel voids the claimant's own active claim.
	Cancel(ctx context.Context, claimID string, who domain.Claimant) error
}

// ViewRecorder records engagement events off the request path.
type ViewRecorder interface {
	RecordView(specialID string, who domain.Claimant)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for specials and claims. It
// depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	specialSvc SpecialService
	claimSvc   ClaimService
	recorder   ViewRecorder
	idemTTL    time.Duration
}

// New constructs a Handlers instance bound to the given services.
// idemTTL is the replay window for recorded claims (IDEMPOTENCY_TTL);
// values <= 0 fall back to the 24h default.
func New(specialSvc SpecialService, claimSvc ClaimService, recorder ViewRecorder, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = defaultIdempotencyTTL
	}
	return &Handlers{specialSvc: specialSvc, claimSvc: claimSvc, recorder: recorder, idemTTL: idemTTL}
}

//
// DTOs
//

// BusinessResponse is the slice of directory metadata embedded in
// special payloads.
type BusinessResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address,omitempty"`
	City     string  `json:"city,omitempty"`
	Category string  `json:"category,omitempty"`
	Rating   float64 `json:"rating"`
}

// SpecialResponse is the JSON shape for one special, decorated with
// derived availability and engagement counts. ClaimsLeft reports
// 999999 for unbounded specials.
type SpecialResponse struct {
	ID            string           `json:"id"`
	BusinessID    string           `json:"business_id"`
	Business      BusinessResponse `json:"business"`
	Title         string           `json:"title"`
	Subtitle      string           `json:"subtitle,omitempty"`
	Description   string           `json:"description,omitempty"`
	DiscountLabel string           `json:"discount_label,omitempty"`
	ValidFrom     string           `json:"valid_from"`
	ValidUntil    string           `json:"valid_until"`
	IsActive      bool             `json:"is_active"`
	PerVisit      bool             `json:"per_visit"`
	Priority      int              `json:"priority"`
	HeroImageURL  string           `json:"hero_image_url,omitempty"`
	Terms         string           `json:"terms,omitempty"`
	ClaimsCount   int64            `json:"claims_count"`
	ViewsCount    int64            `json:"views_count"`
	ClaimsLeft    int              `json:"claims_left"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListSpecialsResponse wraps a page of specials and pagination information.
type ListSpecialsResponse struct {
	Specials   []SpecialResponse `json:"specials"`
	Pagination Pagination        `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to
// sane defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// toSpecialResponse flattens a decorated special into the API shape.
func toSpecialResponse(sc services.SpecialWithCounts) SpecialResponse {
	sp := sc.Special
	return SpecialResponse{
		ID:            sp.ID,
		BusinessID:    sp.BusinessID,
		Business:      toBusinessResponse(sp.Business),
		Title:         sp.Title,
		Subtitle:      sp.Subtitle,
		Description:   sp.Description,
		DiscountLabel: sp.DiscountLabel,
		ValidFrom:     sp.ValidFrom.UTC().Format(time.RFC3339),
		ValidUntil:    sp.ValidUntil.UTC().Format(time.RFC3339),
		IsActive:      sp.IsActive,
		PerVisit:      sp.PerVisit,
		Priority:      sp.Priority,
		HeroImageURL:  sp.HeroImageURL,
		Terms:         sp.Terms,
		ClaimsCount:   sc.ClaimsCount,
		ViewsCount:    sc.ViewsCount,
		ClaimsLeft:    sc.ClaimsLeft.Sentinel(),
	}
}

func toBusinessResponse(b domain.Business) BusinessResponse {
	return BusinessResponse{
		ID:       b.ID,
		Name:     b.Name,
		Address:  b.Address,
		City:     b.City,
		Category: b.Category,
		Rating:   b.Rating,
	}
}

func toPageResponse(page *services.SpecialPage, pageNum, pageSize int) ListSpecialsResponse {
	items := make([]SpecialResponse, 0, len(page.Specials))
	for _, sc := range page.Specials {
		items = append(items, toSpecialResponse(sc))
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((page.Total + int64(pageSize) - 1) / int64(pageSize))
	}
	return ListSpecialsResponse{
		Specials: items,
		Pagination: Pagination{
			Page:       pageNum,
			PageSize:   pageSize,
			Total:      page.Total,
			TotalPages: totalPages,
			HasNext:    pageNum < totalPages,
		},
	}
}

//
// Handlers
//

// ListSpecials godoc
// @ID          listSpecials
// @Summary     List active specials (paginated)
// @Description Returns a page of currently-claimable specials ordered by priority.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Specials
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSpecialsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     503  {object} handlers.ErrorResponse "Transient failure"
// @Router      /specials [get]
func (h *Handlers) ListSpecials(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort). Listing tolerates slight staleness.
	var db *gorm.DB
	if svc, isConcrete := h.specialSvc.(*services.SpecialService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.SpecialsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"specials:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	result, err := h.specialSvc.ListActive(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, toPageResponse(result, page, pageSize))
}

// SearchSpecials godoc
// @ID          searchSpecials
// @Summary     Search specials
// @Description Filters specials by free text (title, description, business name),
// @Description category, and business. active_only limits results to claimable offers.
// @Tags        Specials
// @Produce     json
//
// @Param       q            query  string  false "Free-text query"
// @Param       category     query  string  false "Business category"  example(restaurant)
// @Param       business_id  query  string  false "Owning business ID" format(uuid)
// @Param       active_only  query  bool    false "Only active, in-window specials" default(false)
// @Param       page         query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size    query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSpecialsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     503  {object} handlers.ErrorResponse "Transient failure"
// @Router      /specials/search [get]
func (h *Handlers) SearchSpecials(c *gin.Context) {
	page, pageSize := clampPagination(c)
	filter := repo.SpecialSearchFilter{
		Query:      strings.TrimSpace(c.Query("q")),
		Category:   strings.TrimSpace(c.Query("category")),
		BusinessID: strings.TrimSpace(c.Query("business_id")),
		ActiveOnly: strings.EqualFold(c.Query("active_only"), "true"),
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	}

	result, err := h.specialSvc.Search(c.Request.Context(), filter)
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, toPageResponse(result, page, pageSize))
}

// GetSpecial godoc
// @ID          getSpecial
// @Summary     Get a special
// @Description Returns one special with derived availability and engagement counts.
// @Description A view event is recorded asynchronously when the caller carries an identity.
// @Tags        Specials
// @Produce     json
//
// @Param       X-User-ID           header  string  false "User ID"           example(user123)
// @Param       X-Guest-Session-ID  header  string  false "Guest session ID"  example(guest-9f2)
// @Param       id                  path    string  true  "Special ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.SpecialResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Special not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     503  {object} handlers.ErrorResponse "Transient failure"
// @Router      /specials/{id} [get]
func (h *Handlers) GetSpecial(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "special id must be a UUID")
		return
	}

	got, err := h.specialSvc.Get(c.Request.Context(), id)
	if err != nil {
		failServiceError(c, err)
		return
	}

	// Best-effort engagement tracking; anonymous lookers without any
	// identity are simply not recorded.
	if h.recorder != nil {
		if who, hasIdentity := claimantFrom(c); hasIdentity {
			h.recorder.RecordView(id, who)
		}
	}

	ok(c, http.StatusOK, toSpecialResponse(*got))
}

// failServiceError translates service-layer read-path errors to HTTP.
func failServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSpecialNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "special not found")
	case errors.Is(err, services.ErrTransient):
		fail(c, http.StatusServiceUnavailable, ErrCodeTransient, "temporary failure, please retry")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
