package storefake

import (
	"sync"

	"github.com/dentatrack/console/session"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory session store for tests.
type FakeStore struct {
	lock         sync.RWMutex
	session      *session.Session
	activeClinic string

	SaveErr error // when set, Save returns this error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (f *FakeStore) Save(s *session.Session) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	copied := *s
	f.session = &copied
	return nil
}

func (f *FakeStore) Load() (*session.Session, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.session == nil {
		return nil, nil
	}
	copied := *f.session
	return &copied, nil
}

func (f *FakeStore) Clear() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.session = nil
	return nil
}

func (f *FakeStore) SaveActiveClinic(id string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.activeClinic = id
	return nil
}

func (f *FakeStore) LoadActiveClinic() (string, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.activeClinic, nil
}

func (f *FakeStore) ClearActiveClinic() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.activeClinic = ""
	return nil
}
