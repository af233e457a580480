package impl

import (
	"sync"

	"go.dedis.ch/kadem/types"
)

// SafeResourceMap stores the resources this node seeds, keyed by the key they
// live at. Thread-safe.
type SafeResourceMap struct {
	sync.RWMutex
	resources map[types.Key]types.Resource
}

// NewSafeResourceMap returns an empty resource store.
func NewSafeResourceMap() *SafeResourceMap {
	return &SafeResourceMap{
		resources: make(map[types.Key]types.Resource),
	}
}

// Set stores given resource under given key, replacing any previous one.
func (m *SafeResourceMap) Set(key types.Key, resource types.Resource) {
	m.Lock()
	defer m.Unlock()

	m.resources[key] = resource
}

// Get returns the resource stored under given key, if any.
func (m *SafeResourceMap) Get(key types.Key) (types.Resource, bool) {
	m.RLock()
	defer m.RUnlock()

	resource, ok := m.resources[key]
	return resource, ok
}

// Len returns the number of stored resources.
func (m *SafeResourceMap) Len() int {
	m.RLock()
	defer m.RUnlock()

	return len(m.resources)
}
