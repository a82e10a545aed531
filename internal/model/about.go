package model

import "time"

type KeyPerson struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	Bio       string    `json:"bio"`
	ImageURL  string    `json:"image_url"`
	ImagePath string    `json:"image_path"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

type RegaliaImage struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	ImagePath   string    `json:"image_path"`
	CreatedAt   time.Time `json:"created_at"`
}

type Contact struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

type CampusMap struct {
	ImageURL  string `json:"image_url"`
	ImagePath string `json:"image_path"`
}
