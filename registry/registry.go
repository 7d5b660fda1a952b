// Package registry provides field schema registry implementations: the
// collaborator that resolves candidate property keys to active, org-scoped
// field definitions during query compilation.
package registry

import (
	"sync"

	"github.com/thisisjab/contactsearch/entity"
)

// Memory is a fixed in-memory registry, used in tests and anywhere the field
// schema is known up front.
type Memory struct {
	mu     sync.RWMutex
	fields []*entity.Field
}

func NewMemory(fields ...*entity.Field) *Memory {
	return &Memory{fields: fields}
}

// Add registers another field definition.
func (m *Memory) Add(field *entity.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields = append(m.fields, field)
}

// ActiveFields returns the active fields of the org whose keys are among the
// candidates, keyed by field key.
func (m *Memory) ActiveFields(org *entity.Org, keys []string) (map[string]*entity.Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		wanted[key] = true
	}

	matches := map[string]*entity.Field{}
	for _, field := range m.fields {
		if field.OrgID == org.ID && field.IsActive && wanted[field.Key] {
			matches[field.Key] = field
		}
	}
	return matches, nil
}
