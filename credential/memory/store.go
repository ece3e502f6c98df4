// Package memory provides an in-process [credential.Store] backed by maps.
// It is intended for tests, single-process deployments and the CLI.
package memory

import (
	"context"
	"sync"

	"github.com/MrEthical07/authcore/credential"
)

// Store is a mutex-guarded in-memory credential store.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*credential.User
	byEmail map[string]string
	byReset map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*credential.User),
		byEmail: make(map[string]string),
		byReset: make(map[string]string),
	}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*credential.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[credential.NormalizeEmail(email)]
	if !ok {
		return nil, credential.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*credential.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, credential.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *Store) FindByResetToken(ctx context.Context, tokenHash string) (*credential.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tokenHash == "" {
		return nil, credential.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byReset[tokenHash]
	if !ok {
		return nil, credential.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) Insert(ctx context.Context, user *credential.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := credential.NormalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return credential.ErrDuplicateEmail
	}
	if _, exists := s.byID[user.ID]; exists {
		return credential.ErrDuplicateEmail
	}

	user.Version = 1
	stored := user.Clone()
	s.byID[stored.ID] = stored
	s.byEmail[key] = stored.ID
	if stored.ResetTokenHash != "" {
		s.byReset[stored.ResetTokenHash] = stored.ID
	}
	return nil
}

func (s *Store) Update(ctx context.Context, user *credential.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[user.ID]
	if !ok {
		return credential.ErrNotFound
	}
	if current.Version != user.Version {
		return credential.ErrVersionConflict
	}

	oldKey := credential.NormalizeEmail(current.Email)
	newKey := credential.NormalizeEmail(user.Email)
	if oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return credential.ErrDuplicateEmail
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = user.ID
	}
	if current.ResetTokenHash != "" {
		delete(s.byReset, current.ResetTokenHash)
	}
	if user.ResetTokenHash != "" {
		s.byReset[user.ResetTokenHash] = user.ID
	}

	user.Version++
	s.byID[user.ID] = user.Clone()
	return nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

var _ credential.Store = (*Store)(nil)
