package registry

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps rows in process memory. It only suits a single process
// and tests; a fleet of handlers needs one of the shared stores.
type MemoryStore struct {
	mu           sync.RWMutex
	byConnection map[string]map[string]string
	byChannel    map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byConnection: make(map[string]map[string]string),
		byChannel:    make(map[string]map[string]string),
	}
}

func (m *MemoryStore) Put(_ context.Context, sub Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byConnection[sub.ConnectionID] == nil {
		m.byConnection[sub.ConnectionID] = make(map[string]string)
	}
	m.byConnection[sub.ConnectionID][sub.Channel] = sub.UserData

	if m.byChannel[sub.Channel] == nil {
		m.byChannel[sub.Channel] = make(map[string]string)
	}
	m.byChannel[sub.Channel][sub.ConnectionID] = sub.UserData
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, connectionID, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(connectionID, channel)
	return nil
}

func (m *MemoryStore) deleteLocked(connectionID, channel string) {
	if channels, ok := m.byConnection[connectionID]; ok {
		delete(channels, channel)
		if len(channels) == 0 {
			delete(m.byConnection, connectionID)
		}
	}
	if conns, ok := m.byChannel[channel]; ok {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(m.byChannel, channel)
		}
	}
}

func (m *MemoryStore) ByConnection(_ context.Context, connectionID string) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]Subscription, 0, len(m.byConnection[connectionID]))
	for channel, userData := range m.byConnection[connectionID] {
		subs = append(subs, Subscription{ConnectionID: connectionID, Channel: channel, UserData: userData})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Channel < subs[j].Channel })
	return subs, nil
}

func (m *MemoryStore) ByChannel(_ context.Context, channel string) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]Subscription, 0, len(m.byChannel[channel]))
	for connectionID, userData := range m.byChannel[channel] {
		subs = append(subs, Subscription{ConnectionID: connectionID, Channel: channel, UserData: userData})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ConnectionID < subs[j].ConnectionID })
	return subs, nil
}

func (m *MemoryStore) DeleteConnection(_ context.Context, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for channel := range m.byConnection[connectionID] {
		m.deleteLocked(connectionID, channel)
	}
	return nil
}
