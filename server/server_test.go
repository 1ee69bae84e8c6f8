package server_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentatrack/console/api"
	"github.com/dentatrack/console/appointments"
	"github.com/dentatrack/console/auth"
	"github.com/dentatrack/console/clinics"
	"github.com/dentatrack/console/dashboard"
	"github.com/dentatrack/console/inventory"
	"github.com/dentatrack/console/invitations"
	"github.com/dentatrack/console/products"
	"github.com/dentatrack/console/server"
	"github.com/dentatrack/console/session/storefake"
	"github.com/dentatrack/console/users"
)

// upstream is a fake platform API with a mutable clinic set.
type upstream struct {
	srv *httptest.Server

	lock    sync.Mutex
	clinics []clinics.Clinic
}

func newUpstream(t *testing.T, initial ...clinics.Clinic) *upstream {
	t.Helper()
	u := &upstream{clinics: initial}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		var credentials users.LoginCredentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&credentials))
		if credentials.Password != "Passw0rd" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeBody(w, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if !bearerOK(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeBody(w, users.User{ID: "u1", Email: "owner@example.com", Role: users.RoleOwner})
	})
	mux.HandleFunc("GET /clinics", func(w http.ResponseWriter, r *http.Request) {
		u.lock.Lock()
		defer u.lock.Unlock()
		writeBody(w, u.clinics)
	})
	mux.HandleFunc("POST /clinics", func(w http.ResponseWriter, r *http.Request) {
		var data clinics.CreateClinicData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
		clinic := clinics.Clinic{ID: "c-new", Name: data.Name, Address: data.Address}
		u.lock.Lock()
		u.clinics = append(u.clinics, clinic)
		u.lock.Unlock()
		w.WriteHeader(http.StatusCreated)
		writeBody(w, clinic)
	})
	mux.HandleFunc("GET /products/clinic/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, []products.Product{{ID: "p1", Name: "Gloves", ClinicID: r.PathValue("id")}})
	})
	mux.HandleFunc("GET /inventory-logs/clinic/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("date,product,action,quantity\n"))
	})
	mux.HandleFunc("GET /dashboard/clinic/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, dashboard.Stats{TotalAppointments: 12, LowStockCount: 3})
	})

	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func bearerOK(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
}

type fixture struct {
	upstream *upstream
	store    *storefake.FakeStore
	manager  *auth.Manager
	handler  http.Handler
}

func newFixture(t *testing.T, initial ...clinics.Clinic) *fixture {
	t.Helper()
	u := newUpstream(t, initial...)

	store := storefake.NewFakeStore()
	client := api.New(u.srv.URL, store)

	manager, err := auth.NewManager(client, store, zerolog.Nop())
	require.NoError(t, err)
	client.SetSessionExpiredHook(manager.SessionExpired)

	clinicsService := clinics.NewService(client)
	selector := clinics.NewSelector(context.Background(), clinicsService, store, zerolog.Nop())
	selector.Bind(manager)

	srv, err := server.New(server.Deps{
		Auth:         manager,
		Selector:     selector,
		Clinics:      clinicsService,
		Products:     products.NewService(client),
		Appointments: appointments.NewService(client),
		Inventory:    inventory.NewService(client),
		Invitations:  invitations.NewService(client),
		Dashboard:    dashboard.NewService(client),
	}, zerolog.Nop())
	require.NoError(t, err)

	return &fixture{upstream: u, store: store, manager: manager, handler: srv}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/login", users.LoginCredentials{
		Email:    "owner@example.com",
		Password: "Passw0rd",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

type stateBody struct {
	Decision string           `json:"decision"`
	State    string           `json:"state"`
	User     *users.User      `json:"user"`
	Clinics  []clinics.Clinic `json:"clinics"`
	Active   *clinics.Clinic  `json:"activeClinic"`
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateBody {
	t.Helper()
	var body stateBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestStateBeforeInitShowsLoading(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	state := decodeState(t, rec)
	assert.Equal(t, "show-loading", state.Decision)
	assert.Equal(t, "uninitialized", state.State)
}

func TestLoginEstablishesSessionAndSelection(t *testing.T) {
	f := newFixture(t, clinics.Clinic{ID: "c1", Name: "Smile"}, clinics.Clinic{ID: "c2", Name: "Molar"})

	f.login(t)

	rec := f.do(t, http.MethodGet, "/api/state", nil)
	state := decodeState(t, rec)
	assert.Equal(t, "render-app", state.Decision)
	assert.Equal(t, "authenticated", state.State)
	require.NotNil(t, state.User)
	assert.Equal(t, users.RoleOwner, state.User.Role)
	require.NotNil(t, state.Active)
	assert.Equal(t, "c1", state.Active.ID)
	assert.Len(t, state.Clinics, 2)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/login", users.LoginCredentials{
		Email:    "owner@example.com",
		Password: "WrongPassword1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutReturnsToLogin(t *testing.T) {
	f := newFixture(t, clinics.Clinic{ID: "c1", Name: "Smile"})
	f.login(t)

	rec := f.do(t, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	state := decodeState(t, f.do(t, http.MethodGet, "/api/state", nil))
	assert.Equal(t, "redirect-to-login", state.Decision)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Clinics)
}

func TestSetActiveClinic(t *testing.T) {
	f := newFixture(t, clinics.Clinic{ID: "c1", Name: "Smile"}, clinics.Clinic{ID: "c2", Name: "Molar"})
	f.login(t)

	rec := f.do(t, http.MethodPost, "/api/clinics/active", map[string]string{"id": "c2"})
	require.Equal(t, http.StatusOK, rec.Code)

	state := decodeState(t, f.do(t, http.MethodGet, "/api/state", nil))
	require.NotNil(t, state.Active)
	assert.Equal(t, "c2", state.Active.ID)

	stored, err := f.store.LoadActiveClinic()
	require.NoError(t, err)
	assert.Equal(t, "c2", stored)
}

func TestSetActiveClinicUnknownID(t *testing.T) {
	f := newFixture(t, clinics.Clinic{ID: "c1", Name: "Smile"})
	f.login(t)

	rec := f.do(t, http.MethodPost, "/api/clinics/active", map[string]string{"id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClinicScopedRoutesRequireActiveClinic(t *testing.T) {
	f := newFixture(t) // no clinics, so no active selection after login
	f.login(t)

	for _, path := range []string{
		"/api/products",
		"/api/appointments",
		"/api/inventory-logs",
		"/api/invitations",
		"/api/dashboard",
	} {
		rec := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, path)
	}
}

func TestCreateClinicRefreshesSelection(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	state := decodeState(t, f.do(t, http.MethodGet, "/api/state", nil))
	require.Equal(t, "redirect-to-create-clinic", state.Decision)

	rec := f.do(t, http.MethodPost, "/api/clinics", clinics.CreateClinicData{Name: "Smile"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	state = decodeState(t, f.do(t, http.MethodGet, "/api/state", nil))
	assert.Equal(t, "render-app", state.Decision)
	require.NotNil(t, state.Active)
	assert.Equal(t, "c-new", state.Active.ID)
}

func TestProductsProxyUsesActiveClinic(t *testing.T) {
	f := newFixture(t, clinics.Clinic{ID: "c1", Name: "Smile"})
	f.login(t)

	rec := f.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []products.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "c1", list[0].ClinicID)
}

func TestInventoryExport(t *testing.T) {
	f := newFixture(t, clinics.Clinic{ID: "c1", Name: "Smile"})
	f.login(t)

	rec := f.do(t, http.MethodGet, "/api/inventory-logs/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inventory-logs.csv")
	assert.Contains(t, rec.Body.String(), "date,product,action,quantity")
}

func TestDashboardProxy(t *testing.T) {
	f := newFixture(t, clinics.Clinic{ID: "c1", Name: "Smile"})
	f.login(t)

	rec := f.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats dashboard.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 12, stats.TotalAppointments)
	assert.Equal(t, 3, stats.LowStockCount)
}
