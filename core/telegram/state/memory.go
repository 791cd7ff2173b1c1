package state

import "sync"

type entry struct {
	mu sync.Mutex
	s  Session
}

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*entry
}

// NewMemoryManager returns an in-process Manager. Sessions are lost on restart.
func NewMemoryManager() Manager {
	return &memoryManager{sessions: make(map[int64]*entry)}
}

func (m *memoryManager) entry(userID int64, create bool) *entry {
	m.mu.RLock()
	e, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok || !create {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.sessions[userID]; !ok {
		e = &entry{}
		m.sessions[userID] = e
	}
	return e
}

func (m *memoryManager) Get(userID int64) Session {
	e := m.entry(userID, false)
	if e == nil {
		return Session{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone()
}

func (m *memoryManager) Update(userID int64, fn func(*Session)) Session {
	e := m.entry(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.Fields == nil && e.s.Active() {
		e.s.Fields = make(map[string]string)
	}
	fn(&e.s)
	return e.s.Clone()
}

func (m *memoryManager) Clear(userID int64) Session {
	e := m.entry(userID, false)
	if e == nil {
		return Session{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.s
	e.s = Session{}
	return prev
}

func (m *memoryManager) InProgress(userID int64) bool {
	return m.Get(userID).Active()
}
