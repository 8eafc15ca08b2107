package cycle

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _, _ := newTestService(t)
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body, role string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(shared.ActorIDHeader, "7")
	if role != "" {
		req.Header.Set(shared.ActorRoleHeader, role)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/businesses/3/cycles", `{"name":"Lunch","priceSystemId":2}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var opened Cycle
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &opened))
	assert.Equal(t, StateActive, opened.State)
	assert.Equal(t, int64(2), opened.PriceSystemID)
	assert.Equal(t, int64(7), opened.OpenedBy)

	rr = do(t, router, http.MethodPost, "/businesses/3/cycles", `{"priceSystemId":2}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, http.MethodGet, "/businesses/3/cycles/active", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodPatch, "/cycles/1", `{"observations":"short on change","priceSystemId":5}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var edited Cycle
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &edited))
	assert.Equal(t, int64(5), edited.PriceSystemID)

	rr = do(t, router, http.MethodDelete, "/cycles/1", "", "owner")
	assert.Equal(t, http.StatusConflict, rr.Code, "active cycles cannot be deleted")

	rr = do(t, router, http.MethodPost, "/cycles/1/close", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodPatch, "/cycles/1", `{"name":"late"}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, http.MethodDelete, "/cycles/1", "", "cashier")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodDelete, "/cycles/1", "", "admin")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodGet, "/cycles/1", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerList(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/businesses/4/cycles", `{"priceSystemId":1}`, "").Code)

	rr := do(t, router, http.MethodGet, "/businesses/4/cycles?page=1&per_page=10", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Cycles, 1)
	assert.Equal(t, 1, resp.Pagination.Total)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router := newTestRouter(t)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/cycles/abc", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/businesses/1/cycles", `{"unknown":1}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/businesses/1/cycles", `{"name":"no price system"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPatch, "/cycles/1", `{"priceSystemId":0}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/businesses/1/cycles", `{"priceSystemId":1,"name":"`+strings.Repeat("x", 121)+`"}`, "").Code)
}
