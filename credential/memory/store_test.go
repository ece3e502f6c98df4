package memory

import (
	"testing"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/credential/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (credential.Store, func()) {
		return New(), func() {}
	})
}

func TestMemoryStoreLen(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}
