// internal/security/gate_test.go
package security

import (
	"errors"
	"testing"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/identity"
	"github.com/vantara/tagfusion/internal/utils"
)

func newTestGate(cfg *config.RemoteConfig) *Gate {
	return NewGate(cfg, utils.NewLoggerWithLevel(utils.ErrorLevel))
}

func isSecurityReject(err error) bool {
	var structured *utils.StructuredError
	return errors.As(err, &structured) && structured.Code == utils.ErrCodeSecurityReject
}

func TestCheckIdentity(t *testing.T) {
	gate := newTestGate(&config.RemoteConfig{
		WebsiteID: "site-1",
		Blacklist: []string{"bad-uid", " padded-uid "},
	})

	if err := gate.CheckIdentity(identity.Identity{UserID: "good-uid"}); err != nil {
		t.Fatalf("clean identity rejected: %v", err)
	}
	if err := gate.CheckIdentity(identity.Identity{UserID: "bad-uid"}); !isSecurityReject(err) {
		t.Fatalf("expected security rejection, got %v", err)
	}
	if err := gate.CheckIdentity(identity.Identity{UserID: "padded-uid"}); !isSecurityReject(err) {
		t.Fatalf("blacklist entries should be trimmed, got %v", err)
	}
}

func TestCheckEvent_DenyWins(t *testing.T) {
	gate := newTestGate(&config.RemoteConfig{
		WebsiteID: "site-1",
		EventFilters: []config.EventFilter{
			{EventName: "page_view", Action: "allow"},
			{EventName: "page_view", Action: "deny"},
		},
	})

	if err := gate.CheckEvent("page_view"); !isSecurityReject(err) {
		t.Fatalf("deny filter must win over allow, got %v", err)
	}
}

func TestCheckEvent_AllowListSemantics(t *testing.T) {
	gate := newTestGate(&config.RemoteConfig{
		WebsiteID: "site-1",
		EventFilters: []config.EventFilter{
			{EventName: "purchase", Action: "allow"},
		},
	})

	if err := gate.CheckEvent("purchase"); err != nil {
		t.Fatalf("allowed event rejected: %v", err)
	}
	if err := gate.CheckEvent("page_view"); !isSecurityReject(err) {
		t.Fatalf("non-listed event must be rejected when an allow list exists, got %v", err)
	}
}

func TestCheckEvent_NoFilters(t *testing.T) {
	gate := newTestGate(&config.RemoteConfig{WebsiteID: "site-1"})
	if err := gate.CheckEvent("anything"); err != nil {
		t.Fatalf("empty filter set must pass everything, got %v", err)
	}
}

func TestNewGate_NilConfig(t *testing.T) {
	gate := newTestGate(nil)
	if err := gate.CheckEvent("page_view"); err != nil {
		t.Fatalf("nil config should produce a permissive gate, got %v", err)
	}
	if err := gate.CheckIdentity(identity.Identity{UserID: "u"}); err != nil {
		t.Fatalf("nil config should produce a permissive gate, got %v", err)
	}
}
