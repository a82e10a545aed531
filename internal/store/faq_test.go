package store

import (
	"testing"

	"github.com/dukerupert/convocation/internal/model"
)

func TestFAQCRUD(t *testing.T) {
	s := NewFAQStore(setupTestDB(t))

	f, err := s.Create("When is convocation?", "20 November.", 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Create("Where do I collect my gown?", "Bookshop.", 0)

	list, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].SortOrder != 0 {
		t.Errorf("unexpected list order: %+v", list)
	}

	updated, err := s.Update(f.ID, f.Question, "Friday 20 November.", 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Answer != "Friday 20 November." {
		t.Errorf("answer = %q", updated.Answer)
	}

	if err := s.Delete(f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetByID(f.ID); got != nil {
		t.Error("expected faq to be deleted")
	}
}

func TestFeedbackReply(t *testing.T) {
	s := NewFeedbackStore(setupTestDB(t))

	first, err := s.Create("Ada", "ada@example.edu", "Can guests attend?")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Status != model.FeedbackNew || first.RepliedAt != nil {
		t.Errorf("new feedback = %+v", first)
	}
	second, _ := s.Create("Bola", "", "Is there parking?")

	replied, err := s.Reply(first.ID, "Two guests per graduand.")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if replied.Status != model.FeedbackReplied || replied.Reply != "Two guests per graduand." || replied.RepliedAt == nil {
		t.Errorf("reply not applied: %+v", replied)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("unanswered feedback should be listed first: %+v", list)
	}
}
