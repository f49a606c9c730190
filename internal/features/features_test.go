package features

import "testing"

func TestManager_Defaults(t *testing.T) {
	m := NewManager().Defaults()

	for _, name := range []string{FeatureViewCache, FeatureEventHooks, FeatureShareLinks, FeatureCarousel} {
		if !m.IsEnabled(name) {
			t.Errorf("Expected %s to be enabled by default", name)
		}
	}

	m.Disable(FeatureCarousel)
	if m.IsEnabled(FeatureCarousel) {
		t.Error("Expected carousel to be disabled")
	}
	m.Enable(FeatureCarousel)
	if !m.IsEnabled(FeatureCarousel) {
		t.Error("Expected carousel to be re-enabled")
	}

	if m.IsEnabled("unknown_flag") {
		t.Error("Unknown flags should default to disabled")
	}

	all := m.GetAll()
	if len(all) != 4 {
		t.Errorf("Expected 4 flags, got %d", len(all))
	}
	all[FeatureViewCache].Enabled = false
	if !m.IsEnabled(FeatureViewCache) {
		t.Error("GetAll should return copies")
	}
}

func TestManager_Apply(t *testing.T) {
	m := NewManager().Defaults()

	unknown := m.Apply(map[string]bool{FeatureCarousel: false, "zz_flag": true, "aa_flag": false})
	if m.IsEnabled(FeatureCarousel) {
		t.Error("Expected carousel to be disabled by override")
	}
	if len(unknown) != 2 || unknown[0] != "aa_flag" || unknown[1] != "zz_flag" {
		t.Errorf("Unexpected unknown flags: %v", unknown)
	}
}
