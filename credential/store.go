package credential

import "context"

// Store is the credential store contract.
//
// Lookups return [ErrNotFound] when nothing matches. Insert returns
// [ErrDuplicateEmail] when the normalized email already exists. Update is a
// compare-and-swap on User.Version: it returns [ErrVersionConflict] when the
// stored version differs and, on success, increments Version on the record
// passed in. Infrastructure failures wrap [ErrUnavailable].
//
// Implementations must be safe for concurrent use and must copy records on
// the way in and out.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
}
