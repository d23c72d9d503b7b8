package vault

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

type fileVault struct {
	mu   sync.Mutex
	path string
}

// NewFile builds a vault backed by a single JSON file. Writes go through a
// temporary file and rename so both slots always change together.
func NewFile(path string) Vault {
	return &fileVault{path: path}
}

func (v *fileVault) Read() (Session, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	raw, err := os.ReadFile(v.path)
	if err != nil {
		return Session{}, false
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, false
	}
	if !session.Valid() {
		return Session{}, false
	}
	return session, true
}

func (v *fileVault) Write(session Session) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(v.path), ".session-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, v.path)
}

func (v *fileVault) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	err := os.Remove(v.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
