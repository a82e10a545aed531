package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/convocation/internal/model"
)

type DeadlineStore struct {
	db *sql.DB
}

func NewDeadlineStore(db *sql.DB) *DeadlineStore {
	return &DeadlineStore{db: db}
}

func scanImportantDate(scanner interface{ Scan(...any) error }) (*model.ImportantDate, error) {
	var d model.ImportantDate
	err := scanner.Scan(&d.ID, &d.Title, &d.Date, &d.Time, &d.Location, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const importantDateCols = `id, title, date, time, location, created_at, updated_at`

func (s *DeadlineStore) Create(title, date, timeRange, location string) (*model.ImportantDate, error) {
	result, err := s.db.Exec(
		`INSERT INTO important_dates (title, date, time, location) VALUES (?, ?, ?, ?)`,
		title, date, timeRange, location,
	)
	if err != nil {
		return nil, fmt.Errorf("insert important date: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *DeadlineStore) GetByID(id int64) (*model.ImportantDate, error) {
	row := s.db.QueryRow(`SELECT `+importantDateCols+` FROM important_dates WHERE id = ?`, id)
	d, err := scanImportantDate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get important date: %w", err)
	}
	return d, nil
}

// List returns all important dates in insertion order. Ordering for display
// is the classifier's job since dates are stored as free text.
func (s *DeadlineStore) List() ([]model.ImportantDate, error) {
	rows, err := s.db.Query(`SELECT ` + importantDateCols + ` FROM important_dates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list important dates: %w", err)
	}
	defer rows.Close()

	var dates []model.ImportantDate
	for rows.Next() {
		d, err := scanImportantDate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan important date: %w", err)
		}
		dates = append(dates, *d)
	}
	return dates, rows.Err()
}

func (s *DeadlineStore) Update(id int64, title, date, timeRange, location string) (*model.ImportantDate, error) {
	_, err := s.db.Exec(
		`UPDATE important_dates SET title = ?, date = ?, time = ?, location = ?, updated_at = ? WHERE id = ?`,
		title, date, timeRange, location, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update important date: %w", err)
	}
	return s.GetByID(id)
}

func (s *DeadlineStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM important_dates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete important date: %w", err)
	}
	return nil
}

// ExistsByTitleAndDate reports whether an entry with the same title and date is stored.
func (s *DeadlineStore) ExistsByTitleAndDate(title, date string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM important_dates WHERE title = ? AND date = ?`, title, date,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check important date: %w", err)
	}
	return n > 0, nil
}
