package store

import "testing"

func TestDeadlineCreateAndGet(t *testing.T) {
	s := NewDeadlineStore(setupTestDB(t))

	d, err := s.Create("Clearance deadline", "2026-11-02", "- 2026-11-06", "Bursary")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if d.Title != "Clearance deadline" || d.Date != "2026-11-02" || d.Time != "- 2026-11-06" || d.Location != "Bursary" {
		t.Errorf("unexpected record: %+v", d)
	}
	if d.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}

	got, err := s.GetByID(d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Title != d.Title {
		t.Errorf("get = %+v, want %+v", got, d)
	}
}

func TestDeadlineGetNotFound(t *testing.T) {
	s := NewDeadlineStore(setupTestDB(t))

	got, err := s.GetByID(404)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestDeadlineUpdateDeleteList(t *testing.T) {
	s := NewDeadlineStore(setupTestDB(t))

	a, _ := s.Create("Gown collection", "2026-11-10", "", "")
	b, _ := s.Create("Rehearsal", "2026-11-18", "", "Convocation Square")

	updated, err := s.Update(a.ID, "Gown collection", "2026-11-11", "2026-11-13", "Sports Centre")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Date != "2026-11-11" || updated.Time != "2026-11-13" || updated.Location != "Sports Centre" {
		t.Errorf("update not applied: %+v", updated)
	}

	if err := s.Delete(b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("list = %+v, want only %d", list, a.ID)
	}
}

func TestDeadlineExistsByTitleAndDate(t *testing.T) {
	s := NewDeadlineStore(setupTestDB(t))
	s.Create("Convocation", "2026-11-20", "", "")

	ok, err := s.ExistsByTitleAndDate("Convocation", "2026-11-20")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Error("expected entry to exist")
	}

	ok, _ = s.ExistsByTitleAndDate("Convocation", "2026-11-21")
	if ok {
		t.Error("different date should not exist")
	}
}
