// Package redisstore implements [credential.Store] on Redis.
//
// Records are stored under "<prefix>:u:<id>" in a compact versioned binary
// encoding. Two secondary indexes map normalized email and reset-token hash
// to the user id. Writes run inside WATCH/MULTI so the version check and the
// index updates commit atomically.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/credential"
)

const maxRetries = 4

// Store is a Redis-backed credential store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Store using prefix for all keys ("acu" when empty).
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "acu"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) userKey(id string) string     { return s.prefix + ":u:" + id }
func (s *Store) emailKey(email string) string { return s.prefix + ":e:" + credential.NormalizeEmail(email) }
func (s *Store) resetKey(hash string) string  { return s.prefix + ":r:" + hash }

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
}

func (s *Store) FindByID(ctx context.Context, id string) (*credential.User, error) {
	data, err := s.redis.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, credential.ErrNotFound
		}
		return nil, unavailable(err)
	}
	u, err := decodeUser(data)
	if err != nil {
		return nil, unavailable(err)
	}
	return u, nil
}

func (s *Store) findByIndex(ctx context.Context, key string) (*credential.User, error) {
	id, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, credential.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return s.FindByID(ctx, id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*credential.User, error) {
	u, err := s.findByIndex(ctx, s.emailKey(email))
	if err != nil {
		return nil, err
	}
	if credential.NormalizeEmail(u.Email) != credential.NormalizeEmail(email) {
		return nil, credential.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindByResetToken(ctx context.Context, tokenHash string) (*credential.User, error) {
	if tokenHash == "" {
		return nil, credential.ErrNotFound
	}
	u, err := s.findByIndex(ctx, s.resetKey(tokenHash))
	if err != nil {
		return nil, err
	}
	if u.ResetTokenHash != tokenHash {
		return nil, credential.ErrNotFound
	}
	return u, nil
}

func (s *Store) Insert(ctx context.Context, user *credential.User) error {
	userKey := s.userKey(user.ID)
	emailKey := s.emailKey(user.Email)

	record := user.Clone()
	record.Version = 1
	encoded, err := encodeUser(record)
	if err != nil {
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, userKey, emailKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return credential.ErrDuplicateEmail
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, userKey, encoded, 0)
				pipe.Set(ctx, emailKey, user.ID, 0)
				if record.ResetTokenHash != "" {
					pipe.Set(ctx, s.resetKey(record.ResetTokenHash), user.ID, 0)
				}
				return nil
			})
			return err
		}, userKey, emailKey)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, credential.ErrDuplicateEmail) {
				return err
			}
			return unavailable(err)
		}

		user.Version = 1
		return nil
	}

	return fmt.Errorf("%w: insert of %s kept losing to concurrent writers", credential.ErrUnavailable, user.ID)
}

func (s *Store) Update(ctx context.Context, user *credential.User) error {
	userKey := s.userKey(user.ID)
	newEmailKey := s.emailKey(user.Email)

	next := user.Clone()
	next.Version = user.Version + 1
	encoded, err := encodeUser(next)
	if err != nil {
		return err
	}

	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, userKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return credential.ErrNotFound
			}
			return err
		}
		current, err := decodeUser(data)
		if err != nil {
			return err
		}
		if current.Version != user.Version {
			return credential.ErrVersionConflict
		}

		oldEmailKey := s.emailKey(current.Email)
		if oldEmailKey != newEmailKey {
			owner, err := tx.Get(ctx, newEmailKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil && owner != user.ID {
				return credential.ErrDuplicateEmail
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey, encoded, 0)
			if oldEmailKey != newEmailKey {
				pipe.Del(ctx, oldEmailKey)
				pipe.Set(ctx, newEmailKey, user.ID, 0)
			}
			if current.ResetTokenHash != "" && current.ResetTokenHash != next.ResetTokenHash {
				pipe.Del(ctx, s.resetKey(current.ResetTokenHash))
			}
			if next.ResetTokenHash != "" {
				pipe.Set(ctx, s.resetKey(next.ResetTokenHash), user.ID, 0)
			}
			return nil
		})
		return err
	}, userKey, newEmailKey)

	switch {
	case err == nil:
		user.Version = next.Version
		return nil
	case err == redis.TxFailedErr:
		// A concurrent writer touched the record between read and commit.
		return credential.ErrVersionConflict
	case errors.Is(err, credential.ErrNotFound),
		errors.Is(err, credential.ErrVersionConflict),
		errors.Is(err, credential.ErrDuplicateEmail):
		return err
	default:
		return unavailable(err)
	}
}

var _ credential.Store = (*Store)(nil)
