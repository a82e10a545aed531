package store

import "testing"

func TestSettingsGetUnset(t *testing.T) {
	s := NewSettingsStore(setupTestDB(t))

	v, err := s.Get(KeyCountdownTarget)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "" {
		t.Errorf("unset value = %q, want empty", v)
	}
}

func TestSettingsSetOverwrite(t *testing.T) {
	s := NewSettingsStore(setupTestDB(t))

	if err := s.Set(KeyCountdownTarget, "2026-11-20"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(KeyCountdownTarget, "2026-11-27"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _ := s.Get(KeyCountdownTarget)
	if v != "2026-11-27" {
		t.Errorf("value = %q, want 2026-11-27", v)
	}
}

func TestCampusMapSettings(t *testing.T) {
	s := NewSettingsStore(setupTestDB(t))

	got, err := s.GetCampusMapSettings()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no campus map settings, got %v", got)
	}

	err = s.SetMany(map[string]string{
		KeyCampusMapURL:  "https://cdn/map.png",
		KeyCampusMapPath: "about/map.png",
	})
	if err != nil {
		t.Fatalf("set many: %v", err)
	}
	got, _ = s.GetCampusMapSettings()
	if got[KeyCampusMapURL] != "https://cdn/map.png" || got[KeyCampusMapPath] != "about/map.png" {
		t.Errorf("campus map = %v", got)
	}
}
