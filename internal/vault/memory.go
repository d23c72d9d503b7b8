package vault

import "sync"

type memoryVault struct {
	mu      sync.RWMutex
	session Session
	present bool
}

// NewMemory builds an in-process vault with no persistence. Useful for tests
// and for ephemeral sessions.
func NewMemory() Vault {
	return &memoryVault{}
}

func (v *memoryVault) Read() (Session, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.present || !v.session.Valid() {
		return Session{}, false
	}
	return v.session, true
}

func (v *memoryVault) Write(session Session) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session = session
	v.present = true
	return nil
}

func (v *memoryVault) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session = Session{}
	v.present = false
	return nil
}
