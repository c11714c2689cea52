package ident

import "sync"

// MapResolver is an in-memory identity database. Set and Delete model a
// renumbering event between phases.
type MapResolver struct {
	mu     sync.RWMutex
	byName [2]map[string]ID
}

// NewMapResolver returns an empty resolver.
func NewMapResolver() *MapResolver {
	return &MapResolver{byName: [2]map[string]ID{{}, {}}}
}

// Set assigns id to name, replacing any previous assignment of name.
func (m *MapResolver) Set(kind Kind, name string, id ID) *MapResolver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byName[kind][name] = id
	return m
}

// Delete removes name.
func (m *MapResolver) Delete(kind Kind, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byName[kind], name)
}

// LookupName implements Resolver. When several names share an ID the
// lexically smallest wins so results are stable.
func (m *MapResolver) LookupName(kind Kind, id ID) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	best, found := "", false
	for name, v := range m.byName[kind] {
		if v == id && (!found || name < best) {
			best, found = name, true
		}
	}
	return best, found, nil
}

// LookupID implements Resolver.
func (m *MapResolver) LookupID(kind Kind, name string) (ID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[kind][name]
	return id, ok, nil
}
