package config

import (
	"sync"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

// SettingsStore holds the runtime-mutable automation settings. Readers
// get a consistent copy; updates are all-or-nothing against validation.
type SettingsStore struct {
	mu       sync.RWMutex
	settings models.AutomationSettings
}

func NewSettingsStore(initial models.AutomationSettings) *SettingsStore {
	return &SettingsStore{settings: initial}
}

func (s *SettingsStore) Current() models.AutomationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update replaces the settings if the new set validates. On error the
// previous settings stay in effect unchanged.
func (s *SettingsStore) Update(next models.AutomationSettings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	return nil
}
