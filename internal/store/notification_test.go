package store

import (
	"reflect"
	"testing"
)

func TestNotificationCreateRoundTrip(t *testing.T) {
	s := NewNotificationStore(setupTestDB(t))

	n, err := s.Create("announcement", "Rehearsal moved", "Now at 10am.",
		map[string]any{"screen": "news", "news_id": float64(4)},
		[]string{"Law", "Science"}, 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.AudienceSize != 42 {
		t.Errorf("audience_size = %d, want 42", n.AudienceSize)
	}
	if !reflect.DeepEqual(n.TargetFaculties, []string{"Law", "Science"}) {
		t.Errorf("target_faculties = %v", n.TargetFaculties)
	}
	if n.Metadata["screen"] != "news" || n.Metadata["news_id"] != float64(4) {
		t.Errorf("metadata = %v", n.Metadata)
	}
}

func TestNotificationNilMetadata(t *testing.T) {
	s := NewNotificationStore(setupTestDB(t))

	n, err := s.Create("announcement", "Hello", "", nil, nil, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.Metadata == nil || len(n.Metadata) != 0 {
		t.Errorf("metadata = %v, want empty map", n.Metadata)
	}
	if n.TargetFaculties == nil || len(n.TargetFaculties) != 0 {
		t.Errorf("target_faculties = %v, want empty slice", n.TargetFaculties)
	}
}

func TestNotificationListLimitAndDelete(t *testing.T) {
	s := NewNotificationStore(setupTestDB(t))

	for _, title := range []string{"one", "two", "three"} {
		if _, err := s.Create("announcement", title, "", nil, nil, 0); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	recent, err := s.List(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 2 || recent[0].Title != "three" {
		t.Errorf("recent = %+v", recent)
	}

	all, _ := s.List(0)
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}

	if err := s.Delete(all[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = s.List(0)
	if len(all) != 2 {
		t.Errorf("len = %d after delete, want 2", len(all))
	}
}

func TestNotificationSentLog(t *testing.T) {
	s := NewNotificationStore(setupTestDB(t))

	sent, err := s.WasSent("deadline_reminder", "2026-11-02")
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if sent {
		t.Error("expected not sent")
	}

	if err := s.RecordSent("deadline_reminder", "2026-11-02"); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Recording twice is a no-op.
	if err := s.RecordSent("deadline_reminder", "2026-11-02"); err != nil {
		t.Fatalf("record again: %v", err)
	}

	sent, _ = s.WasSent("deadline_reminder", "2026-11-02")
	if !sent {
		t.Error("expected sent")
	}
	sent, _ = s.WasSent("deadline_reminder", "2026-11-03")
	if sent {
		t.Error("other day should not be sent")
	}
}
