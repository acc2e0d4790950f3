package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shtetl/go-specials-backend/internal/domain"
	"github.com/shtetl/go-specials-backend/internal/services"
)

// --- test fixtures ---

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handlers.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&domain.Business{}, &domain.Special{}, &domain.Claim{},
		&domain.ViewEvent{}, &domain.Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type specialOpt func(*domain.Special)

func withCap(n int) specialOpt    { return func(s *domain.Special) { s.MaxClaimsTotal = &n } }
func withPriority(p int) specialOpt {
	return func(s *domain.Special) { s.Priority = p }
}
func withTitle(title string) specialOpt {
	return func(s *domain.Special) { s.Title = title }
}
func withWindow(from, until time.Time) specialOpt {
	return func(s *domain.Special) { s.ValidFrom, s.ValidUntil = from, until }
}
func disabled() specialOpt { return func(s *domain.Special) { s.IsActive = false } }

// seedSpecial inserts a business and one claimable special, returning the special ID.
func seedSpecial(t *testing.T, db *gorm.DB, opts ...specialOpt) string {
	t.Helper()
	now := time.Now().UTC()
	biz := domain.Business{
		ID:       uuid.NewString(),
		Name:     "Taco Palace",
		City:     "Springfield",
		Category: "restaurant",
		Rating:   4.5,
	}
	if err := db.Create(&biz).Error; err != nil {
		t.Fatalf("seed business: %v", err)
	}
	sp := domain.Special{
		ID:         uuid.NewString(),
		BusinessID: biz.ID,
		Title:      "Two-for-one tacos",
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
		IsActive:   true,
	}
	for _, opt := range opts {
		opt(&sp)
	}
	if err := db.Create(&sp).Error; err != nil {
		t.Fatalf("seed special: %v", err)
	}
	return sp.ID
}

// newSpecialsRouter wires real services over the test DB behind the public routes.
func newSpecialsRouter(t *testing.T, db *gorm.DB) (*gin.Engine, *services.EngagementRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	recorder := services.NewEngagementRecorder(db, time.Second)
	h := New(
		services.NewSpecialService(db),
		services.NewClaimService(db, time.Second),
		recorder,
		testIdemTTL,
	)
	r.GET("/specials", h.ListSpecials)
	r.GET("/specials/search", h.SearchSpecials)
	r.GET("/specials/:id", h.GetSpecial)
	r.POST("/specials/:id/claim", h.ClaimSpecial)
	r.POST("/claims/:id/cancel", h.CancelClaim)
	return r, recorder
}

func doGet(t *testing.T, r *gin.Engine, path string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) ListSpecialsResponse {
	t.Helper()
	var resp ListSpecialsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode page: %v (body=%s)", err, w.Body.String())
	}
	return resp
}

// --- tests ---

func TestListSpecials_PageShapeAndOrdering(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newSpecialsRouter(t, db)

	seedSpecial(t, db, withTitle("Low priority"), withPriority(1))
	seedSpecial(t, db, withTitle("High priority"), withPriority(9))
	seedSpecial(t, db, withTitle("Hidden"), disabled())

	w := doGet(t, r, "/specials", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	resp := decodePage(t, w)
	if len(resp.Specials) != 2 || resp.Pagination.Total != 2 {
		t.Fatalf("expected 2 active specials, got %d (total=%d)", len(resp.Specials), resp.Pagination.Total)
	}
	if resp.Specials[0].Title != "High priority" {
		t.Fatalf("priority ordering broken: first=%q", resp.Specials[0].Title)
	}
	if resp.Specials[0].Business.Name != "Taco Palace" {
		t.Fatalf("business not joined: %+v", resp.Specials[0].Business)
	}
	if resp.Specials[0].ClaimsLeft != domain.UnboundedClaimsSentinel {
		t.Fatalf("unbounded special should report sentinel, got %d", resp.Specials[0].ClaimsLeft)
	}
	if resp.Pagination.Page != 1 || resp.Pagination.PageSize != 20 || resp.Pagination.HasNext {
		t.Fatalf("pagination defaults wrong: %+v", resp.Pagination)
	}
}

func TestListSpecials_PaginationClamps(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newSpecialsRouter(t, db)

	for i := 0; i < 3; i++ {
		seedSpecial(t, db, withPriority(i))
	}

	w := doGet(t, r, "/specials?page=0&page_size=2", nil)
	resp := decodePage(t, w)
	if resp.Pagination.Page != 1 || resp.Pagination.PageSize != 2 {
		t.Fatalf("clamp failed: %+v", resp.Pagination)
	}
	if len(resp.Specials) != 2 || !resp.Pagination.HasNext || resp.Pagination.TotalPages != 2 {
		t.Fatalf("page math wrong: n=%d %+v", len(resp.Specials), resp.Pagination)
	}

	w = doGet(t, r, "/specials?page_size=9999", nil)
	resp = decodePage(t, w)
	if resp.Pagination.PageSize != 100 {
		t.Fatalf("page_size cap expected 100, got %d", resp.Pagination.PageSize)
	}
}

func TestListSpecials_ETagRoundTrip(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newSpecialsRouter(t, db)
	seedSpecial(t, db)

	w := doGet(t, r, "/specials", nil)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag == "" {
		t.Fatalf("expected 200 with ETag, got %d %q", w.Code, etag)
	}

	w = doGet(t, r, "/specials", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("If-None-Match should yield 304, got %d", w.Code)
	}

	// Catalogue change invalidates the tag.
	seedSpecial(t, db, withTitle("Fresh deal"))
	w = doGet(t, r, "/specials", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("stale ETag should yield 200, got %d", w.Code)
	}
}

func TestSearchSpecials_TextAndCategory(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newSpecialsRouter(t, db)

	seedSpecial(t, db, withTitle("Happy hour wings"))
	seedSpecial(t, db, withTitle("Two-for-one tacos"))

	w := doGet(t, r, "/specials/search?q=WINGS", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	resp := decodePage(t, w)
	if len(resp.Specials) != 1 || resp.Specials[0].Title != "Happy hour wings" {
		t.Fatalf("text search miss: %+v", resp.Specials)
	}

	w = doGet(t, r, "/specials/search?category=florist", nil)
	resp = decodePage(t, w)
	if len(resp.Specials) != 0 {
		t.Fatalf("category filter should exclude all, got %d", len(resp.Specials))
	}
}

func TestSearchSpecials_ActiveOnlyHidesOutOfWindow(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newSpecialsRouter(t, db)

	now := time.Now().UTC()
	seedSpecial(t, db, withTitle("Live"))
	seedSpecial(t, db, withTitle("Expired"), withWindow(now.Add(-48*time.Hour), now.Add(-24*time.Hour)))

	w := doGet(t, r, "/specials/search?active_only=true", nil)
	resp := decodePage(t, w)
	if len(resp.Specials) != 1 || resp.Specials[0].Title != "Live" {
		t.Fatalf("active_only miss: %+v", resp.Specials)
	}

	// Without the flag both are visible.
	w = doGet(t, r, "/specials/search", nil)
	resp = decodePage(t, w)
	if len(resp.Specials) != 2 {
		t.Fatalf("unfiltered search expected 2, got %d", len(resp.Specials))
	}
}

func TestGetSpecial_Detail(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newSpecialsRouter(t, db)
	id := seedSpecial(t, db, withCap(5))

	w := doGet(t, r, "/specials/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp SpecialResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != id || resp.ClaimsLeft != 5 || resp.ClaimsCount != 0 {
		t.Fatalf("unexpected detail: %+v", resp)
	}
	if _, err := time.Parse(time.RFC3339, resp.ValidUntil); err != nil {
		t.Fatalf("valid_until not RFC3339: %q", resp.ValidUntil)
	}
}

func TestGetSpecial_BadIDAndNotFound(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newSpecialsRouter(t, db)

	w := doGet(t, r, "/specials/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-uuid id expected 400, got %d", w.Code)
	}

	w = doGet(t, r, "/specials/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown id expected 404, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Fatalf("expected code %q, got %q", ErrCodeNotFound, resp.Code)
	}
}

func TestGetSpecial_RecordsViewForIdentifiedCallers(t *testing.T) {
	db := newHandlerDB(t)
	r, recorder := newSpecialsRouter(t, db)
	id := seedSpecial(t, db)

	// Anonymous lookup: no event.
	doGet(t, r, "/specials/"+id, nil)
	// Identified lookups: one event each.
	doGet(t, r, "/specials/"+id, map[string]string{HeaderUserID: "u1"})
	doGet(t, r, "/specials/"+id, map[string]string{HeaderGuestSessionID: "g7"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := recorder.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	var n int64
	if err := db.Model(&domain.ViewEvent{}).Where("special_id = ?", id).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 view events, got %d", n)
	}
}

func TestGetSpecial_SurvivesBrokenEventStore(t *testing.T) {
	db := newHandlerDB(t)
	r, recorder := newSpecialsRouter(t, db)
	id := seedSpecial(t, db)

	// Recording is fire-and-forget; a dead event store must never
	// surface on the read path.
	if err := db.Migrator().DropTable(&domain.ViewEvent{}); err != nil {
		t.Fatalf("drop events table: %v", err)
	}

	w := doGet(t, r, "/specials/"+id, map[string]string{HeaderUserID: "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("detail expected 200 with broken event store, got %d %s", w.Code, w.Body.String())
	}
	var resp SpecialResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != id {
		t.Fatalf("expected special %s, got %s", id, resp.ID)
	}

	// The failed write stays internal to the recorder.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = recorder.Flush(ctx)

	w = doGet(t, r, "/specials/"+id, map[string]string{HeaderUserID: "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("detail after failed flush expected 200, got %d", w.Code)
	}
}
