// Package security applies the blacklist and event filters before any
// event leaves the runtime. A rejection here silently drops the event:
// nothing is emitted, nothing surfaces to the host page.
package security

import (
	"strings"

	"github.com/vantara/tagfusion/internal/config"
	"github.com/vantara/tagfusion/internal/identity"
	"github.com/vantara/tagfusion/internal/utils"
)

// Gate holds the compiled blacklist and filter set for a page.
type Gate struct {
	blacklist map[string]struct{}
	allow     map[string]struct{}
	deny      map[string]struct{}
	logger    utils.Logger
}

// NewGate compiles the gate from the remote configuration.
func NewGate(cfg *config.RemoteConfig, logger utils.Logger) *Gate {
	if logger == nil {
		logger = utils.NewLogger()
	}
	g := &Gate{
		blacklist: make(map[string]struct{}),
		allow:     make(map[string]struct{}),
		deny:      make(map[string]struct{}),
		logger:    logger.WithField("component", "security"),
	}
	if cfg != nil {
		for _, id := range cfg.Blacklist {
			g.blacklist[strings.TrimSpace(id)] = struct{}{}
		}
		for _, f := range cfg.EventFilters {
			switch f.Action {
			case "deny":
				g.deny[f.EventName] = struct{}{}
			case "allow":
				g.allow[f.EventName] = struct{}{}
			}
		}
	}
	return g
}

// CheckIdentity rejects blacklisted user identities.
func (g *Gate) CheckIdentity(id identity.Identity) error {
	if _, blocked := g.blacklist[id.UserID]; blocked {
		g.logger.Debugf("identity %s is blacklisted, dropping", id.UserID)
		return utils.NewErrorf(utils.ErrCodeSecurityReject, "identity is blacklisted")
	}
	return nil
}

// CheckEvent rejects filtered event names. Deny filters always win; when
// any allow filters exist, the event name must match one of them.
func (g *Gate) CheckEvent(eventName string) error {
	if _, denied := g.deny[eventName]; denied {
		return utils.NewErrorf(utils.ErrCodeSecurityReject, "event %q is filtered", eventName)
	}
	if len(g.allow) > 0 {
		if _, allowed := g.allow[eventName]; !allowed {
			return utils.NewErrorf(utils.ErrCodeSecurityReject, "event %q not in allow list", eventName)
		}
	}
	return nil
}
