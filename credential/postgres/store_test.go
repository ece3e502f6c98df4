package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/credential/storetest"
)

// Set AUTHCORE_TEST_POSTGRES_DSN to a disposable database to run these.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("AUTHCORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AUTHCORE_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func TestPostgresStoreConformance(t *testing.T) {
	dsn := testDSN(t)

	storetest.Run(t, func(t *testing.T) (credential.Store, func()) {
		ctx := context.Background()
		s, err := Open(ctx, dsn)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate failed: %v", err)
		}
		if _, err := s.DB().ExecContext(ctx, `TRUNCATE authcore_users`); err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
		return s, func() { _ = s.Close() }
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	for i := 0; i < 2; i++ {
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate #%d failed: %v", i+1, err)
		}
	}
}
