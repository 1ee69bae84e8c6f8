package clinics

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dentatrack/console/auth"
	"github.com/dentatrack/console/internal/utils"
	"github.com/dentatrack/console/session"
)

// Snapshot is the selector state the navigation gate evaluates. HasFetched is
// only true once a fetch and its active-clinic resolution have fully
// completed, so a partial list can never trigger a premature redirect.
type Snapshot struct {
	Clinics    []Clinic
	Active     *Clinic
	Loading    bool
	HasFetched bool
}

// Selector owns the active-clinic selection: it fetches the clinic list once
// per transition into the authenticated state, restores the persisted active
// clinic and exposes the result read-only.
type Selector struct {
	service *Service
	store   session.Store
	log     zerolog.Logger

	// base context for fetches triggered by auth transitions
	ctx context.Context

	lock             sync.RWMutex
	clinics          []Clinic
	active           *Clinic
	loading          bool
	hasFetched       bool
	wasAuthenticated bool
}

// NewSelector creates a selector. ctx bounds the fetches triggered by auth
// state transitions.
func NewSelector(ctx context.Context, service *Service, store session.Store, log zerolog.Logger) *Selector {
	return &Selector{
		service: service,
		store:   store,
		log:     log,
		ctx:     ctx,
	}
}

// Bind subscribes the selector to auth transitions: entering the
// authenticated state triggers exactly one fetch, leaving it resets the
// selection. The fetch runs synchronously so the gate never observes a
// half-resolved selection.
func (s *Selector) Bind(manager *auth.Manager) {
	manager.Subscribe(func(snap auth.Snapshot) {
		s.lock.Lock()
		entered := snap.Authenticated() && !s.wasAuthenticated
		left := !snap.Authenticated() && s.wasAuthenticated
		s.wasAuthenticated = snap.Authenticated()
		s.lock.Unlock()

		switch {
		case entered:
			s.fetch(s.ctx)
		case left:
			s.reset()
		}
	})
}

// Snapshot returns the current selection state.
func (s *Selector) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return Snapshot{
		Clinics:    s.clinics,
		Active:     s.active,
		Loading:    s.loading,
		HasFetched: s.hasFetched,
	}
}

// Active returns the active clinic, or nil when no clinic context is set.
func (s *Selector) Active() *Clinic {
	return s.Snapshot().Active
}

// SetActive switches the clinic context and persists the choice immediately.
// No network call is involved.
func (s *Selector) SetActive(clinic Clinic) {
	s.lock.Lock()
	s.active = utils.Ptr(clinic)
	s.lock.Unlock()

	if err := s.store.SaveActiveClinic(clinic.ID); err != nil {
		s.log.Error().Err(err).Str("clinic_id", clinic.ID).Msg("failed to persist active clinic")
	}
}

// Refresh re-fetches the clinic list and re-resolves the active selection.
// Callers that mutate the clinic set (clinic creation, staff removal) use it
// to force recomputation.
func (s *Selector) Refresh(ctx context.Context) {
	s.fetch(ctx)
}

// fetch retrieves the clinic list and resolves the active clinic. HasFetched
// is set on completion regardless of outcome; a failed fetch yields an empty
// list and no active clinic.
func (s *Selector) fetch(ctx context.Context) {
	s.lock.Lock()
	s.loading = true
	s.lock.Unlock()

	list, err := s.service.List(ctx)

	s.lock.Lock()
	defer s.lock.Unlock()
	s.loading = false
	s.hasFetched = true

	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch clinics")
		s.clinics = nil
		s.active = nil
		return
	}

	s.clinics = list
	s.active = s.resolveActive(list)
}

// resolveActive applies the fallback rules: keep the persisted clinic when it
// is still in the list, otherwise the first clinic (persisting the new id),
// otherwise none (clearing the persisted id).
func (s *Selector) resolveActive(list []Clinic) *Clinic {
	storedID, err := s.store.LoadActiveClinic()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load persisted active clinic")
	}

	// The active clinic is always a detached copy, never a pointer into the
	// list slice a later fetch may replace.
	for i := range list {
		if list[i].ID == storedID {
			return utils.Ptr(list[i])
		}
	}

	if len(list) > 0 {
		if err := s.store.SaveActiveClinic(list[0].ID); err != nil {
			s.log.Error().Err(err).Msg("failed to persist active clinic")
		}
		return utils.Ptr(list[0])
	}

	if err := s.store.ClearActiveClinic(); err != nil {
		s.log.Error().Err(err).Msg("failed to clear persisted active clinic")
	}
	return nil
}

// reset drops the selection when the session ends. The persisted id is
// cleared by the auth manager's logout path.
func (s *Selector) reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.clinics = nil
	s.active = nil
	s.loading = false
	s.hasFetched = false
}
