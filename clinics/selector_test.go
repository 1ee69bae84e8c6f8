package clinics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentatrack/console/api"
	"github.com/dentatrack/console/auth"
	"github.com/dentatrack/console/clinics"
	"github.com/dentatrack/console/session/storefake"
	"github.com/dentatrack/console/users"
)

// clinicBackend serves /clinics with a mutable list, plus the auth endpoints
// needed to drive transitions.
type clinicBackend struct {
	lock       sync.Mutex
	clinics    []clinics.Clinic
	fetchCalls int
	failList   bool
}

func (b *clinicBackend) setClinics(list ...clinics.Clinic) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.clinics = list
}

func (b *clinicBackend) listCalls() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.fetchCalls
}

func (b *clinicBackend) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/clinics", func(w http.ResponseWriter, r *http.Request) {
		b.lock.Lock()
		defer b.lock.Unlock()
		b.fetchCalls++
		if b.failList {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.clinics)
	})
	mux.HandleFunc("/users/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.TokenResponse{AccessToken: "access-valid", RefreshToken: "refresh-valid"})
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(users.User{ID: "user-1", Email: "d@x.example", Role: users.RoleOwner})
	})
	return httptest.NewServer(mux)
}

type selectorFixture struct {
	backend  *clinicBackend
	store    *storefake.FakeStore
	selector *clinics.Selector
	url      string
	close    func()
}

func setupSelector(t *testing.T) *selectorFixture {
	t.Helper()
	b := &clinicBackend{}
	srv := b.server()
	store := storefake.NewFakeStore()
	client := api.New(srv.URL, store)
	service := clinics.NewService(client)
	selector := clinics.NewSelector(context.Background(), service, store, zerolog.Nop())
	return &selectorFixture{backend: b, store: store, selector: selector, url: srv.URL, close: srv.Close}
}

func TestResolutionKeepsPersistedClinic(t *testing.T) {
	f := setupSelector(t)
	defer f.close()
	f.backend.setClinics(
		clinics.Clinic{ID: "c1", Name: "Smile"},
		clinics.Clinic{ID: "c2", Name: "Bright"},
	)
	require.NoError(t, f.store.SaveActiveClinic("c2"))

	f.selector.Refresh(context.Background())

	snap := f.selector.Snapshot()
	require.True(t, snap.HasFetched)
	require.NotNil(t, snap.Active)
	assert.Equal(t, "c2", snap.Active.ID)
}

func TestResolutionFallsBackToFirstClinic(t *testing.T) {
	f := setupSelector(t)
	defer f.close()
	f.backend.setClinics(
		clinics.Clinic{ID: "c1", Name: "Smile"},
		clinics.Clinic{ID: "c2", Name: "Bright"},
	)
	// Persisted id no longer in the fetched list.
	require.NoError(t, f.store.SaveActiveClinic("gone"))

	f.selector.Refresh(context.Background())

	snap := f.selector.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, "c1", snap.Active.ID)

	id, err := f.store.LoadActiveClinic()
	require.NoError(t, err)
	assert.Equal(t, "c1", id, "persisted id updated to the fallback")
}

func TestResolutionEmptyListClearsPersistence(t *testing.T) {
	f := setupSelector(t)
	defer f.close()
	require.NoError(t, f.store.SaveActiveClinic("c1"))

	f.selector.Refresh(context.Background())

	snap := f.selector.Snapshot()
	assert.True(t, snap.HasFetched)
	assert.Nil(t, snap.Active)
	assert.Empty(t, snap.Clinics)

	id, err := f.store.LoadActiveClinic()
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestFetchFailureYieldsEmptySelection(t *testing.T) {
	f := setupSelector(t)
	defer f.close()
	f.backend.failList = true
	require.NoError(t, f.store.SaveActiveClinic("c1"))

	f.selector.Refresh(context.Background())

	snap := f.selector.Snapshot()
	assert.True(t, snap.HasFetched, "hasFetched set regardless of outcome")
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Active)
	assert.Empty(t, snap.Clinics)
}

func TestSetActivePersistsImmediately(t *testing.T) {
	f := setupSelector(t)
	defer f.close()

	f.selector.SetActive(clinics.Clinic{ID: "c9", Name: "New"})

	require.NotNil(t, f.selector.Active())
	assert.Equal(t, "c9", f.selector.Active().ID)
	id, err := f.store.LoadActiveClinic()
	require.NoError(t, err)
	assert.Equal(t, "c9", id)
}

func TestRefreshRecomputesSelection(t *testing.T) {
	f := setupSelector(t)
	defer f.close()
	f.backend.setClinics(clinics.Clinic{ID: "c1", Name: "Smile"})

	f.selector.Refresh(context.Background())
	require.Equal(t, "c1", f.selector.Active().ID)

	// The active clinic disappears; refresh falls back to the new first.
	f.backend.setClinics(clinics.Clinic{ID: "c2", Name: "Bright"})
	f.selector.Refresh(context.Background())
	require.Equal(t, "c2", f.selector.Active().ID)
}

func TestBindFetchesOncePerAuthTransition(t *testing.T) {
	f := setupSelector(t)
	defer f.close()
	f.backend.setClinics(clinics.Clinic{ID: "c1", Name: "Smile"})

	store := f.store
	client := api.New(f.url, store)
	manager, err := auth.NewManager(client, store, zerolog.Nop())
	require.NoError(t, err)
	f.selector.Bind(manager)

	creds := users.LoginCredentials{Email: "d@x.example", Password: "Sup3rSecret"}
	require.NoError(t, manager.Login(context.Background(), creds))

	assert.Equal(t, 1, f.backend.listCalls(), "exactly one fetch per transition into authenticated")
	require.NotNil(t, f.selector.Active())
	assert.Equal(t, "c1", f.selector.Active().ID)

	manager.Logout()
	snap := f.selector.Snapshot()
	assert.Nil(t, snap.Active)
	assert.False(t, snap.HasFetched)

	require.NoError(t, manager.Login(context.Background(), creds))
	assert.Equal(t, 2, f.backend.listCalls())
}
