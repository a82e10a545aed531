package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/convocation/internal/model"
)

type NewsStore struct {
	db *sql.DB
}

func NewNewsStore(db *sql.DB) *NewsStore {
	return &NewsStore{db: db}
}

func scanNews(scanner interface{ Scan(...any) error }) (*model.News, error) {
	var n model.News
	err := scanner.Scan(&n.ID, &n.Title, &n.Body, &n.ImageURL, &n.ImagePath, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

const newsCols = `id, title, body, image_url, image_path, created_at, updated_at`

func (s *NewsStore) Create(title, body, imageURL, imagePath string) (*model.News, error) {
	result, err := s.db.Exec(
		`INSERT INTO news (title, body, image_url, image_path) VALUES (?, ?, ?, ?)`,
		title, body, imageURL, imagePath,
	)
	if err != nil {
		return nil, fmt.Errorf("insert news: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NewsStore) GetByID(id int64) (*model.News, error) {
	row := s.db.QueryRow(`SELECT `+newsCols+` FROM news WHERE id = ?`, id)
	n, err := scanNews(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get news: %w", err)
	}
	return n, nil
}

// List returns news posts newest first.
func (s *NewsStore) List() ([]model.News, error) {
	rows, err := s.db.Query(`SELECT ` + newsCols + ` FROM news ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	defer rows.Close()

	var items []model.News
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

func (s *NewsStore) Update(id int64, title, body, imageURL, imagePath string) (*model.News, error) {
	_, err := s.db.Exec(
		`UPDATE news SET title = ?, body = ?, image_url = ?, image_path = ?, updated_at = ? WHERE id = ?`,
		title, body, imageURL, imagePath, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update news: %w", err)
	}
	return s.GetByID(id)
}

func (s *NewsStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM news WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	return nil
}

type ServiceImageStore struct {
	db *sql.DB
}

func NewServiceImageStore(db *sql.DB) *ServiceImageStore {
	return &ServiceImageStore{db: db}
}

func scanServiceImage(scanner interface{ Scan(...any) error }) (*model.ServiceImage, error) {
	var img model.ServiceImage
	err := scanner.Scan(&img.ID, &img.Title, &img.ImageURL, &img.ImagePath, &img.SortOrder, &img.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

const serviceImageCols = `id, title, image_url, image_path, sort_order, created_at`

func (s *ServiceImageStore) Create(title, imageURL, imagePath string, sortOrder int) (*model.ServiceImage, error) {
	result, err := s.db.Exec(
		`INSERT INTO service_images (title, image_url, image_path, sort_order) VALUES (?, ?, ?, ?)`,
		title, imageURL, imagePath, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert service image: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ServiceImageStore) GetByID(id int64) (*model.ServiceImage, error) {
	row := s.db.QueryRow(`SELECT `+serviceImageCols+` FROM service_images WHERE id = ?`, id)
	img, err := scanServiceImage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service image: %w", err)
	}
	return img, nil
}

func (s *ServiceImageStore) List() ([]model.ServiceImage, error) {
	rows, err := s.db.Query(`SELECT ` + serviceImageCols + ` FROM service_images ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list service images: %w", err)
	}
	defer rows.Close()

	var images []model.ServiceImage
	for rows.Next() {
		img, err := scanServiceImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service image: %w", err)
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

func (s *ServiceImageStore) Update(id int64, title, imageURL, imagePath string, sortOrder int) (*model.ServiceImage, error) {
	_, err := s.db.Exec(
		`UPDATE service_images SET title = ?, image_url = ?, image_path = ?, sort_order = ? WHERE id = ?`,
		title, imageURL, imagePath, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update service image: %w", err)
	}
	return s.GetByID(id)
}

func (s *ServiceImageStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM service_images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete service image: %w", err)
	}
	return nil
}
