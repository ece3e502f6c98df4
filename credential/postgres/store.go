// Package postgres implements [credential.Store] on PostgreSQL through
// database/sql and the pgx stdlib driver.
//
// The schema is managed by goose migrations embedded in the binary; call
// [Store.Migrate] before serving traffic.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/credential/postgres/migrations"
)

const uniqueViolation = "23505"

const selectColumns = `id, name, email, password_hash, mfa_state, mfa_secret,
	mfa_pending_secret, mfa_last_used_step, reset_token_hash, reset_expires_at,
	version, created_at, updated_at`

// Store is a Postgres-backed credential store.
type Store struct {
	db *sql.DB
}

// New wraps an existing pool. The schema must already be migrated.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the pgx driver and verifies the connection. It does not
// touch the schema; call [Store.Migrate] when migrations are wanted.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return connect(ctx, db)
}

func connect(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}
	return New(db), nil
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) FindByEmail(ctx context.Context, email string) (*credential.User, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM authcore_users WHERE email_normalized = $1`,
		credential.NormalizeEmail(email))
}

func (s *Store) FindByID(ctx context.Context, id string) (*credential.User, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM authcore_users WHERE id = $1`, id)
}

func (s *Store) FindByResetToken(ctx context.Context, tokenHash string) (*credential.User, error) {
	if tokenHash == "" {
		return nil, credential.ErrNotFound
	}
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM authcore_users WHERE reset_token_hash = $1`, tokenHash)
}

func (s *Store) findOne(ctx context.Context, query string, arg string) (*credential.User, error) {
	var (
		u         credential.User
		state     int16
		version   int64
		resetExp  sql.NullTime
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&state, &u.MFA.Secret, &u.MFA.PendingSecret, &u.MFA.LastUsedStep,
		&u.ResetTokenHash, &resetExp,
		&version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}

	u.MFA.State = credential.MFAState(state)
	u.Version = uint64(version)
	if resetExp.Valid {
		u.ResetExpiresAt = resetExp.Time.UTC()
	}
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return &u, nil
}

func (s *Store) Insert(ctx context.Context, user *credential.User) error {
	query :=
		`INSERT INTO authcore_users (id, name, email, email_normalized, password_hash,
			mfa_state, mfa_secret, mfa_pending_secret, mfa_last_used_step,
			reset_token_hash, reset_expires_at, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $13)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, credential.NormalizeEmail(user.Email), user.PasswordHash,
		int16(user.MFA.State), user.MFA.Secret, user.MFA.PendingSecret, user.MFA.LastUsedStep,
		user.ResetTokenHash, nullTime(user.ResetExpiresAt), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return credential.ErrDuplicateEmail
		}
		return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}

	user.Version = 1
	return nil
}

func (s *Store) Update(ctx context.Context, user *credential.User) error {
	query :=
		`UPDATE authcore_users SET
			name = $3, email = $4, email_normalized = $5, password_hash = $6,
			mfa_state = $7, mfa_secret = $8, mfa_pending_secret = $9, mfa_last_used_step = $10,
			reset_token_hash = $11, reset_expires_at = $12, updated_at = $13,
			version = version + 1
		 WHERE id = $1 AND version = $2`

	res, err := s.db.ExecContext(ctx, query,
		user.ID, int64(user.Version),
		user.Name, user.Email, credential.NormalizeEmail(user.Email), user.PasswordHash,
		int16(user.MFA.State), user.MFA.Secret, user.MFA.PendingSecret, user.MFA.LastUsedStep,
		user.ResetTokenHash, nullTime(user.ResetExpiresAt), user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return credential.ErrDuplicateEmail
		}
		return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}
	if n == 1 {
		user.Version++
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM authcore_users WHERE id = $1)`, user.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: %v", credential.ErrUnavailable, err)
	}
	if !exists {
		return credential.ErrNotFound
	}
	return credential.ErrVersionConflict
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

var _ credential.Store = (*Store)(nil)
