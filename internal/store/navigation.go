package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/convocation/internal/model"
)

type NavigationStore struct {
	db *sql.DB
}

func NewNavigationStore(db *sql.DB) *NavigationStore {
	return &NavigationStore{db: db}
}

func scanNavigationPoint(scanner interface{ Scan(...any) error }) (*model.NavigationPoint, error) {
	var p model.NavigationPoint
	err := scanner.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.Latitude, &p.Longitude, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const navigationCols = `id, name, category, description, latitude, longitude, created_at, updated_at`

func (s *NavigationStore) Create(name, category, description string, lat, lng float64) (*model.NavigationPoint, error) {
	result, err := s.db.Exec(
		`INSERT INTO navigation_points (name, category, description, latitude, longitude) VALUES (?, ?, ?, ?, ?)`,
		name, category, description, lat, lng,
	)
	if err != nil {
		return nil, fmt.Errorf("insert navigation point: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NavigationStore) GetByID(id int64) (*model.NavigationPoint, error) {
	row := s.db.QueryRow(`SELECT `+navigationCols+` FROM navigation_points WHERE id = ?`, id)
	p, err := scanNavigationPoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get navigation point: %w", err)
	}
	return p, nil
}

// List returns navigation points grouped by category, then by name.
func (s *NavigationStore) List() ([]model.NavigationPoint, error) {
	rows, err := s.db.Query(`SELECT ` + navigationCols + ` FROM navigation_points ORDER BY category, name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list navigation points: %w", err)
	}
	defer rows.Close()

	var points []model.NavigationPoint
	for rows.Next() {
		p, err := scanNavigationPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan navigation point: %w", err)
		}
		points = append(points, *p)
	}
	return points, rows.Err()
}

func (s *NavigationStore) Update(id int64, name, category, description string, lat, lng float64) (*model.NavigationPoint, error) {
	_, err := s.db.Exec(
		`UPDATE navigation_points SET name = ?, category = ?, description = ?, latitude = ?, longitude = ?, updated_at = ?
		 WHERE id = ?`,
		name, category, description, lat, lng, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update navigation point: %w", err)
	}
	return s.GetByID(id)
}

func (s *NavigationStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM navigation_points WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete navigation point: %w", err)
	}
	return nil
}
