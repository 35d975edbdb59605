// internal/identity/manager_test.go
package identity

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/vantara/tagfusion/internal/utils"
)

func newTestManager(tiers ...Tier) *Manager {
	return NewManager(utils.NewLoggerWithLevel(utils.ErrorLevel), tiers...)
}

func TestGetOrCreateID_Stable(t *testing.T) {
	m := newTestManager(NewMemoryTier())

	first := m.GetOrCreateID(KeyUserID, UserTTL)
	if first == "" {
		t.Fatal("expected a generated identifier")
	}
	second := m.GetOrCreateID(KeyUserID, UserTTL)
	if second != first {
		t.Fatalf("identifier must be stable across reads: %q vs %q", first, second)
	}
}

func TestGetOrCreateID_AnyTierWins(t *testing.T) {
	memory := NewMemoryTier()
	durable := NewMemoryTier()
	if err := durable.Set(KeyUserID, "existing-uid", UserTTL); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	m := newTestManager(memory, durable)
	if got := m.GetOrCreateID(KeyUserID, UserTTL); got != "existing-uid" {
		t.Fatalf("a value in any tier must win over generation, got %q", got)
	}

	// The read must have mirrored the value back into the empty tier.
	if v, ok := memory.Get(KeyUserID); !ok || v != "existing-uid" {
		t.Fatalf("expected write-back into first tier, got %q (%v)", v, ok)
	}
}

func TestGetOrCreateID_FirstTierPrecedence(t *testing.T) {
	memory := NewMemoryTier()
	durable := NewMemoryTier()
	memory.Set(KeyUserID, "from-memory", UserTTL)
	durable.Set(KeyUserID, "from-durable", UserTTL)

	m := newTestManager(memory, durable)
	if got := m.GetOrCreateID(KeyUserID, UserTTL); got != "from-memory" {
		t.Fatalf("tiers are checked in order, got %q", got)
	}
}

func TestIdentity_DistinctUserAndSession(t *testing.T) {
	m := newTestManager(NewMemoryTier())

	id := m.Identity()
	if id.UserID == "" || id.SessionID == "" {
		t.Fatalf("both identifiers must be populated: %+v", id)
	}
	if id.UserID == id.SessionID {
		t.Fatal("user and session identifiers must be independent")
	}

	again := m.Identity()
	if again != id {
		t.Fatalf("identity must be stable: %+v vs %+v", id, again)
	}
}

func TestMemoryTier_Expiry(t *testing.T) {
	tier := NewMemoryTier()
	if err := tier.Set("k", "v", time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := tier.Get("k"); ok {
		t.Fatal("expired value must not be returned")
	}
}

func TestSQLiteTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")
	tier, err := NewSQLiteTier(path)
	if err != nil {
		t.Fatalf("failed to open tier: %v", err)
	}
	defer tier.Close()

	if _, ok := tier.Get(KeyUserID); ok {
		t.Fatal("fresh store should be empty")
	}
	if err := tier.Set(KeyUserID, "uid-1", UserTTL); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if v, ok := tier.Get(KeyUserID); !ok || v != "uid-1" {
		t.Fatalf("unexpected read: %q (%v)", v, ok)
	}

	// Upsert replaces the value.
	if err := tier.Set(KeyUserID, "uid-2", UserTTL); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if v, _ := tier.Get(KeyUserID); v != "uid-2" {
		t.Fatalf("expected upserted value, got %q", v)
	}

	// Expired rows are dropped on read.
	if err := tier.Set("short", "gone", -time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok := tier.Get("short"); ok {
		t.Fatal("expired row must not be returned")
	}
}

func TestSQLiteTier_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")

	tier, err := NewSQLiteTier(path)
	if err != nil {
		t.Fatalf("failed to open tier: %v", err)
	}
	if err := tier.Set(KeyUserID, "durable-uid", UserTTL); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	tier.Close()

	reopened, err := NewSQLiteTier(path)
	if err != nil {
		t.Fatalf("failed to reopen tier: %v", err)
	}
	defer reopened.Close()
	if v, ok := reopened.Get(KeyUserID); !ok || v != "durable-uid" {
		t.Fatalf("identifier must survive reopen, got %q (%v)", v, ok)
	}
}
