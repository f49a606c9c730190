package features

import (
	"sort"
	"sync"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string
	Enabled     bool
	Description string
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{
		flags: make(map[string]*FeatureFlag),
	}
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// Apply sets the state of registered flags from overrides, typically read
// from configuration. It returns the names that matched no flag.
func (m *Manager) Apply(overrides map[string]bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var unknown []string
	for name, enabled := range overrides {
		flag, exists := m.flags[name]
		if !exists {
			unknown = append(unknown, name)
			continue
		}
		flag.Enabled = enabled
	}
	sort.Strings(unknown)
	return unknown
}

// IsEnabled checks if a feature flag is enabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return false
	}

	return flag.Enabled
}

// Enable enables a feature flag.
func (m *Manager) Enable(name string) {
	m.set(name, true)
}

// Disable disables a feature flag.
func (m *Manager) Disable(name string) {
	m.set(name, false)
}

func (m *Manager) set(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = enabled
	}
}

// GetAll returns copies of all feature flags.
func (m *Manager) GetAll() map[string]*FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*FeatureFlag)
	for k, v := range m.flags {
		result[k] = &FeatureFlag{
			Name:        v.Name,
			Enabled:     v.Enabled,
			Description: v.Description,
		}
	}
	return result
}

// Predefined feature flag names
const (
	// FeatureViewCache caches aggregated offer views per selection
	FeatureViewCache = "view_cache"
	// FeatureEventHooks enables event-driven hooks
	FeatureEventHooks = "event_hooks"
	// FeatureShareLinks includes a shareable link in selection and offer views
	FeatureShareLinks = "share_links"
	// FeatureCarousel runs the best-offer carousel timer
	FeatureCarousel = "carousel"
)

// Defaults registers the predefined flags with their default state.
func (m *Manager) Defaults() *Manager {
	m.Register(FeatureViewCache, true, "Cache aggregated offer views per selection")
	m.Register(FeatureEventHooks, true, "Publish selection, usage and carousel events")
	m.Register(FeatureShareLinks, true, "Include shareable links in responses")
	m.Register(FeatureCarousel, true, "Auto-advance the best-offer carousel")
	return m
}
