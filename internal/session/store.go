package session

import (
	"context"
	"sync"
)

// Store keeps transient session state: one State per participant and the
// single operator reply slot.
type Store interface {
	Get(ctx context.Context, participantID int64) (State, error)
	Set(ctx context.Context, participantID int64, st State) error
	Operator(ctx context.Context) (OperatorState, error)
	SetOperator(ctx context.Context, st OperatorState) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	states   map[int64]State
	operator OperatorState
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

// Get returns StateIdle for participants without a stored state.
func (m *MemoryStore) Get(_ context.Context, participantID int64) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[participantID]; ok {
		return st, nil
	}
	return StateIdle, nil
}

// Set stores st; idle participants are dropped from the map.
func (m *MemoryStore) Set(_ context.Context, participantID int64, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == StateIdle || st == "" {
		delete(m.states, participantID)
		return nil
	}
	m.states[participantID] = st
	return nil
}

func (m *MemoryStore) Operator(_ context.Context) (OperatorState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.operator, nil
}

func (m *MemoryStore) SetOperator(_ context.Context, st OperatorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operator = st
	return nil
}
