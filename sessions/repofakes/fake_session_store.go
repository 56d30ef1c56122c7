package repofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/auction-storefront/sessions"
)

var _ sessions.Store = (*FakeSessionStore)(nil)

// FakeSessionStore is an in-memory Store that records how it was used
type FakeSessionStore struct {
	lock    sync.RWMutex
	data    []byte
	saves   int
	clears  int
	SaveErr error
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{}
}

// NewFakeSessionStoreWith starts with raw stored bytes, corrupt or not
func NewFakeSessionStoreWith(data []byte) *FakeSessionStore {
	return &FakeSessionStore{data: data}
}

func (fs *FakeSessionStore) Save(_ context.Context, s sessions.Session) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.SaveErr != nil {
		return fs.SaveErr
	}
	data, err := sessions.Marshal(s)
	if err != nil {
		return err
	}
	fs.data = data
	fs.saves++
	return nil
}

func (fs *FakeSessionStore) Load(_ context.Context) (sessions.Session, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.data == nil {
		return sessions.Session{}, false
	}
	return sessions.Unmarshal(fs.data)
}

func (fs *FakeSessionStore) Clear(_ context.Context) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.data = nil
	fs.clears++
	return nil
}

// Raw returns the stored bytes, nil when empty
func (fs *FakeSessionStore) Raw() []byte {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return append([]byte(nil), fs.data...)
}

func (fs *FakeSessionStore) Saves() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.saves
}

func (fs *FakeSessionStore) Clears() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.clears
}
