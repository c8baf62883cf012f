package session

import "context"

// Manager composes the credential store with the event broker. Writers fully
// replace the stored value; readers only ever check presence.
type Manager struct {
	store  CredentialStore
	broker *Broker
}

func NewManager(store CredentialStore, broker *Broker) *Manager {
	return &Manager{
		store:  store,
		broker: broker,
	}
}

func (m *Manager) Broker() *Broker {
	return m.broker
}

// SetCredential persists the token and broadcasts login and auth-change so
// every interested view converges without re-reading storage.
func (m *Manager) SetCredential(ctx context.Context, sessionID, token string) error {
	if err := m.store.Save(ctx, sessionID, token); err != nil {
		return err
	}

	m.broker.Publish(ctx, Event{Type: EventLogin, SessionID: sessionID})
	m.broker.Publish(ctx, Event{Type: EventAuthChange, SessionID: sessionID})

	return nil
}

// ClearCredential destroys the token and broadcasts logout and auth-change.
// Callers take this path for explicit sign-out and for credentials the
// backend rejects; both must look identical downstream.
func (m *Manager) ClearCredential(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return err
	}

	m.broker.Publish(ctx, Event{Type: EventLogout, SessionID: sessionID})
	m.broker.Publish(ctx, Event{Type: EventAuthChange, SessionID: sessionID})

	return nil
}

func (m *Manager) Credential(ctx context.Context, sessionID string) (string, error) {
	return m.store.Get(ctx, sessionID)
}

// IsAuthenticated is derived from credential presence at the time of the
// check and never cached beyond it.
func (m *Manager) IsAuthenticated(ctx context.Context, sessionID string) bool {
	token, err := m.store.Get(ctx, sessionID)
	return err == nil && token != ""
}
