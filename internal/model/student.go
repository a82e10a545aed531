package model

import "time"

type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MatricNo  string    `json:"matric_no"`
	Faculty   string    `json:"faculty"`
	CreatedAt time.Time `json:"created_at"`
}
