// Package session keeps the signed-in identity of a client.
//
// Each Session is the per-tab copy and dies with its owner. The Store is the
// copy shared between tabs; it expires after a fixed number of days and is
// only used to pre-fill new sessions. It is not a credential.
package session

import (
	"encoding/gob"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const sharedKey = "user"

var ErrNotAuthenticated = errors.New("not authenticated")

type Identity struct {
	Email        string
	Username     string
	Organization string
	Token        string
}

func init() {
	// go-cache persists items with gob
	gob.Register(Identity{})
}

// Store is the shared identity copy
type Store struct {
	shared *cache.Cache
	ttl    time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		shared: cache.New(ttl, ttl*2),
		ttl:    ttl,
	}
}

func (s *Store) Save(id Identity) {
	s.shared.Set(sharedKey, id, s.ttl)
}

func (s *Store) Load() (Identity, bool) {
	v, ok := s.shared.Get(sharedKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func (s *Store) Clear() {
	s.shared.Delete(sharedKey)
}

// Persist writes the shared copy to path so other processes can pick it up
func (s *Store) Persist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := s.shared.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Restore loads a copy written by Persist. A missing file is not an error.
func (s *Store) Restore(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return s.shared.Load(f)
}

// Session is the per-tab identity
type Session struct {
	store *Store

	mu      sync.RWMutex
	current *Identity
}

// New opens a session, pre-filled from the shared copy when one is alive
func New(store *Store) *Session {
	s := &Session{store: store}
	if id, ok := store.Load(); ok {
		s.current = &id
	}
	return s
}

func (s *Session) SignIn(id Identity) {
	s.mu.Lock()
	s.current = &id
	s.mu.Unlock()
	s.store.Save(id)
}

func (s *Session) SignOut() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.store.Clear()
}

func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

// Require returns the current identity or ErrNotAuthenticated
func (s *Session) Require() (Identity, error) {
	id, ok := s.Current()
	if !ok {
		return Identity{}, ErrNotAuthenticated
	}
	return id, nil
}
