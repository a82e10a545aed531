package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/convocation/internal/model"
)

type FAQStore struct {
	db *sql.DB
}

func NewFAQStore(db *sql.DB) *FAQStore {
	return &FAQStore{db: db}
}

func scanFAQ(scanner interface{ Scan(...any) error }) (*model.FAQ, error) {
	var f model.FAQ
	err := scanner.Scan(&f.ID, &f.Question, &f.Answer, &f.SortOrder, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

const faqCols = `id, question, answer, sort_order, created_at, updated_at`

func (s *FAQStore) Create(question, answer string, sortOrder int) (*model.FAQ, error) {
	result, err := s.db.Exec(
		`INSERT INTO faqs (question, answer, sort_order) VALUES (?, ?, ?)`,
		question, answer, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert faq: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FAQStore) GetByID(id int64) (*model.FAQ, error) {
	row := s.db.QueryRow(`SELECT `+faqCols+` FROM faqs WHERE id = ?`, id)
	f, err := scanFAQ(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get faq: %w", err)
	}
	return f, nil
}

func (s *FAQStore) List() ([]model.FAQ, error) {
	rows, err := s.db.Query(`SELECT ` + faqCols + ` FROM faqs ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	defer rows.Close()

	var faqs []model.FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		faqs = append(faqs, *f)
	}
	return faqs, rows.Err()
}

func (s *FAQStore) Update(id int64, question, answer string, sortOrder int) (*model.FAQ, error) {
	_, err := s.db.Exec(
		`UPDATE faqs SET question = ?, answer = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		question, answer, sortOrder, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update faq: %w", err)
	}
	return s.GetByID(id)
}

func (s *FAQStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM faqs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	return nil
}

type FeedbackStore struct {
	db *sql.DB
}

func NewFeedbackStore(db *sql.DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

func scanFeedback(scanner interface{ Scan(...any) error }) (*model.Feedback, error) {
	var f model.Feedback
	var repliedAt sql.NullTime
	err := scanner.Scan(&f.ID, &f.Name, &f.Email, &f.Message, &f.Reply, &f.Status, &repliedAt, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	if repliedAt.Valid {
		f.RepliedAt = &repliedAt.Time
	}
	return &f, nil
}

const feedbackCols = `id, name, email, message, reply, status, replied_at, created_at`

// Create records feedback as submitted by the mobile app.
func (s *FeedbackStore) Create(name, email, message string) (*model.Feedback, error) {
	result, err := s.db.Exec(
		`INSERT INTO feedback (name, email, message) VALUES (?, ?, ?)`,
		name, email, message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FeedbackStore) GetByID(id int64) (*model.Feedback, error) {
	row := s.db.QueryRow(`SELECT `+feedbackCols+` FROM feedback WHERE id = ?`, id)
	f, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return f, nil
}

// List returns unanswered feedback first, then newest first.
func (s *FeedbackStore) List() ([]model.Feedback, error) {
	rows, err := s.db.Query(
		`SELECT ` + feedbackCols + ` FROM feedback
		 ORDER BY CASE status WHEN 'new' THEN 0 ELSE 1 END, created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var items []model.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

func (s *FeedbackStore) Reply(id int64, reply string) (*model.Feedback, error) {
	_, err := s.db.Exec(
		`UPDATE feedback SET reply = ?, status = ?, replied_at = ? WHERE id = ?`,
		reply, model.FeedbackReplied, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("reply feedback: %w", err)
	}
	return s.GetByID(id)
}

func (s *FeedbackStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM feedback WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	return nil
}
