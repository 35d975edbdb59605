// Package identity manages durable pseudonymous user and session
// identifiers. Identifiers are mirrored across two storage tiers and
// their expiry extends on every read; a fresh UUID is generated only
// when no tier holds a value.
package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/vantara/tagfusion/internal/utils"
)

// Storage keys and lifetimes for the two identifiers.
const (
	KeyUserID    = "tf_uid"
	KeySessionID = "tf_sid"

	UserTTL    = 365 * 24 * time.Hour
	SessionTTL = 30 * time.Minute
)

// Identity pairs the pseudonymous user with the current session.
type Identity struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// Manager resolves identifiers against the configured tiers.
type Manager struct {
	tiers  []Tier
	logger utils.Logger
}

// NewManager creates an identity manager over the given tiers, checked
// in order. Typically memory first, then the durable tier.
func NewManager(logger utils.Logger, tiers ...Tier) *Manager {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Manager{
		tiers:  tiers,
		logger: logger.WithField("component", "identity"),
	}
}

// Identity returns the current user and session identifiers, creating
// and persisting them when absent.
func (m *Manager) Identity() Identity {
	return Identity{
		UserID:    m.GetOrCreateID(KeyUserID, UserTTL),
		SessionID: m.GetOrCreateID(KeySessionID, SessionTTL),
	}
}

// UserID returns the durable user identifier.
func (m *Manager) UserID() string {
	return m.GetOrCreateID(KeyUserID, UserTTL)
}

// SessionID returns the session identifier.
func (m *Manager) SessionID() string {
	return m.GetOrCreateID(KeySessionID, SessionTTL)
}

// GetOrCreateID resolves one identifier. Any tier holding a value wins
// over generating a new one; the value is then written back to every
// tier with a fresh TTL so liveness extends on each read. Only when all
// tiers are empty is a new UUID generated and persisted.
func (m *Manager) GetOrCreateID(key string, ttl time.Duration) string {
	var value string
	for _, tier := range m.tiers {
		if v, ok := tier.Get(key); ok {
			value = v
			break
		}
	}

	if value == "" {
		value = uuid.NewString()
		m.logger.Debugf("generated new identifier for %s", key)
	}

	for _, tier := range m.tiers {
		if err := tier.Set(key, value, ttl); err != nil {
			m.logger.Warnf("tier %s failed to persist %s: %v", tier.Name(), key, err)
		}
	}
	return value
}
