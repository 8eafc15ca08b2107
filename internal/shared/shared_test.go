package shared

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)
	assert.Equal(t, Pagination{Page: 2, PerPage: 10, Total: 25, TotalPages: 3}, p)
	assert.Equal(t, 10, p.Offset())

	p = NewPagination(0, 500, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, maxPerPage, p.PerPage)
	assert.Equal(t, 0, p.TotalPages)
}

func TestPageFromRequest(t *testing.T) {
	page, perPage := PageFromRequest(httptest.NewRequest(http.MethodGet, "/?page=3&per_page=5", nil))
	assert.Equal(t, 3, page)
	assert.Equal(t, 5, perPage)

	page, perPage = PageFromRequest(httptest.NewRequest(http.MethodGet, "/?page=abc", nil))
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPerPage, perPage)
}

func TestActorMiddleware(t *testing.T) {
	var got Actor
	h := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorIDHeader, " 17 ")
	req.Header.Set(ActorRoleHeader, "Owner")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, Actor{ID: 17, Role: "owner", Elevated: true}, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorIDHeader, "5")
	req.Header.Set(ActorRoleHeader, "cashier")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, got.Elevated)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIdempotencyStoreRequiresPool(t *testing.T) {
	var store *IdempotencyStore
	assert.Error(t, store.CheckAndInsert(t.Context(), "k", "settlement"))
	assert.NoError(t, store.Delete(t.Context(), "k"))
	assert.ErrorIs(t, ErrIdempotencyConflict, ErrConflict)
}

func TestCycleOpenLockKey(t *testing.T) {
	assert.Equal(t, "cycle:business:9:open", CycleOpenLockKey(9))
}
