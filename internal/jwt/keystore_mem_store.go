package jwt

import (
	"context"
	"sort"
	"sync"
)

// MemoryKeyStore guarda las claves en memoria. Las claves no sobreviven un
// reinicio: los tokens emitidos antes dejan de verificar.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	list []SigningKey
}

func NewMemoryKeyStore() *MemoryKeyStore { return &MemoryKeyStore{} }

func (m *MemoryKeyStore) ActiveSigningKey(_ context.Context) (*SigningKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var act *SigningKey
	for i := range m.list {
		k := &m.list[i]
		if k.Status != KeyActive || k.Private == nil {
			continue
		}
		if act == nil || k.CreatedAt.After(act.CreatedAt) {
			act = k
		}
	}
	if act == nil {
		return nil, ErrNoActiveKey
	}
	cp := *act
	return &cp, nil
}

func (m *MemoryKeyStore) ListPublicSigningKeys(_ context.Context) ([]SigningKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SigningKey, 0, len(m.list))
	for _, k := range m.list {
		if k.Status == KeyActive || k.Status == KeyRetiring {
			out = append(out, k.PublicOnly())
		}
	}
	// activas primero, más nuevas primero
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status == KeyActive
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryKeyStore) InsertSigningKey(_ context.Context, k *SigningKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, *k)
	return nil
}
