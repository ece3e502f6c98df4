// Package storetest holds the behavioural suite every credential.Store
// implementation must pass. Store packages call [Run] from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/credential"
)

// Factory returns a fresh, empty store and a cleanup func.
type Factory func(t *testing.T) (credential.Store, func())

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("InsertAndFind", func(t *testing.T) { testInsertAndFind(t, newStore) })
	t.Run("EmailCaseInsensitive", func(t *testing.T) { testEmailCaseInsensitive(t, newStore) })
	t.Run("UpdateVersionCheck", func(t *testing.T) { testUpdateVersionCheck(t, newStore) })
	t.Run("ResetTokenIndex", func(t *testing.T) { testResetTokenIndex(t, newStore) })
	t.Run("MFAStateRoundTrip", func(t *testing.T) { testMFAStateRoundTrip(t, newStore) })
	t.Run("ConcurrentUpdateSingleWinner", func(t *testing.T) { testConcurrentUpdate(t, newStore) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore) })
}

func sampleUser(id, email string) *credential.User {
	now := time.Unix(1_700_000_000, 0).UTC()
	return &credential.User{
		ID:           id,
		Name:         "Alice " + id,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testInsertAndFind(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store, done := newStore(t)
	defer done()

	u := sampleUser("u1", "alice@example.com")
	if err := store.Insert(ctx, u); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if u.Version != 1 {
		t.Fatalf("expected version 1 after insert, got %d", u.Version)
	}

	byID, err := store.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Email != u.Email || byID.Name != u.Name || byID.PasswordHash != u.PasswordHash {
		t.Fatalf("unexpected record %+v", byID)
	}
	if !byID.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("expected CreatedAt %v, got %v", u.CreatedAt, byID.CreatedAt)
	}

	if _, err := store.FindByID(ctx, "missing"); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	byID.Name = "mutated"
	again, err := store.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if again.Name == "mutated" {
		t.Fatal("store must not share records with callers")
	}
}

func testEmailCaseInsensitive(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store, done := newStore(t)
	defer done()

	if err := store.Insert(ctx, sampleUser("u1", "Alice@Example.com")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	got, err := store.FindByEmail(ctx, "ALICE@example.COM")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("expected u1, got %s", got.ID)
	}

	err = store.Insert(ctx, sampleUser("u2", "alice@EXAMPLE.com"))
	if !errors.Is(err, credential.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if _, err := store.FindByID(ctx, "u2"); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("duplicate insert must not persist, got %v", err)
	}
}

func testUpdateVersionCheck(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store, done := newStore(t)
	defer done()

	if err := store.Insert(ctx, sampleUser("u1", "alice@example.com")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	first, _ := store.FindByID(ctx, "u1")
	stale, _ := store.FindByID(ctx, "u1")

	first.PasswordHash = "new-hash"
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", first.Version)
	}

	stale.PasswordHash = "stale-hash"
	if err := store.Update(ctx, stale); !errors.Is(err, credential.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := store.FindByID(ctx, "u1")
	if got.PasswordHash != "new-hash" {
		t.Fatalf("stale update must not win, got %q", got.PasswordHash)
	}
}

func testResetTokenIndex(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store, done := newStore(t)
	defer done()

	if err := store.Insert(ctx, sampleUser("u1", "alice@example.com")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	u, _ := store.FindByID(ctx, "u1")
	u.ResetTokenHash = "hash-one"
	u.ResetExpiresAt = time.Unix(1_700_000_900, 0).UTC()
	if err := store.Update(ctx, u); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.FindByResetToken(ctx, "hash-one")
	if err != nil {
		t.Fatalf("FindByResetToken failed: %v", err)
	}
	if got.ID != "u1" || !got.ResetExpiresAt.Equal(u.ResetExpiresAt) {
		t.Fatalf("unexpected reset record %+v", got)
	}

	got.ResetTokenHash = "hash-two"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := store.FindByResetToken(ctx, "hash-one"); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("superseded token must not resolve, got %v", err)
	}

	got.ClearResetToken()
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := store.FindByResetToken(ctx, "hash-two"); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("cleared token must not resolve, got %v", err)
	}
	if _, err := store.FindByResetToken(ctx, ""); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("empty hash must not resolve, got %v", err)
	}
}

func testMFAStateRoundTrip(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store, done := newStore(t)
	defer done()

	if err := store.Insert(ctx, sampleUser("u1", "alice@example.com")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	u, _ := store.FindByID(ctx, "u1")
	if err := u.MFA.BeginSetup("JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("BeginSetup failed: %v", err)
	}
	if err := store.Update(ctx, u); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.FindByID(ctx, "u1")
	if got.MFA.State != credential.MFAPending || got.MFA.PendingSecret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("unexpected pending mfa %+v", got.MFA)
	}

	if err := got.MFA.Confirm(); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	got.MFA.LastUsedStep = 56_666_666
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	final, _ := store.FindByEmail(ctx, "alice@example.com")
	if !final.MFAEnabled() || final.MFA.Secret != "JBSWY3DPEHPK3PXP" || final.MFA.PendingSecret != "" {
		t.Fatalf("unexpected enabled mfa %+v", final.MFA)
	}
	if final.MFA.LastUsedStep != 56_666_666 {
		t.Fatalf("expected last used step persisted, got %d", final.MFA.LastUsedStep)
	}
}

func testConcurrentUpdate(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store, done := newStore(t)
	defer done()

	if err := store.Insert(ctx, sampleUser("u1", "alice@example.com")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	const workers = 8
	snapshots := make([]*credential.User, workers)
	for i := range snapshots {
		u, err := store.FindByID(ctx, "u1")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		snapshots[i] = u
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(u *credential.User) {
			defer wg.Done()
			u.PasswordHash = "hash-" + u.ID
			err := store.Update(ctx, u)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, credential.ErrVersionConflict) {
				t.Errorf("unexpected update error: %v", err)
			}
		}(snapshots[i])
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one winner, got %d", successes)
	}
}

func testUpdateMissing(t *testing.T, newStore Factory) {
	store, done := newStore(t)
	defer done()

	u := sampleUser("ghost", "ghost@example.com")
	u.Version = 1
	if err := store.Update(context.Background(), u); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
