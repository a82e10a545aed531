package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/convocation/internal/model"
)

// AboutStore holds the "About Us" collections: key people, regalia images and contacts.
type AboutStore struct {
	db *sql.DB
}

func NewAboutStore(db *sql.DB) *AboutStore {
	return &AboutStore{db: db}
}

const keyPersonCols = `id, name, position, bio, image_url, image_path, sort_order, created_at`

func scanKeyPerson(scanner interface{ Scan(...any) error }) (*model.KeyPerson, error) {
	var p model.KeyPerson
	err := scanner.Scan(&p.ID, &p.Name, &p.Position, &p.Bio, &p.ImageURL, &p.ImagePath, &p.SortOrder, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *AboutStore) CreatePerson(name, position, bio, imageURL, imagePath string, sortOrder int) (*model.KeyPerson, error) {
	result, err := s.db.Exec(
		`INSERT INTO key_people (name, position, bio, image_url, image_path, sort_order) VALUES (?, ?, ?, ?, ?, ?)`,
		name, position, bio, imageURL, imagePath, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert key person: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPerson(id)
}

func (s *AboutStore) GetPerson(id int64) (*model.KeyPerson, error) {
	row := s.db.QueryRow(`SELECT `+keyPersonCols+` FROM key_people WHERE id = ?`, id)
	p, err := scanKeyPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get key person: %w", err)
	}
	return p, nil
}

func (s *AboutStore) ListPeople() ([]model.KeyPerson, error) {
	rows, err := s.db.Query(`SELECT ` + keyPersonCols + ` FROM key_people ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list key people: %w", err)
	}
	defer rows.Close()

	var people []model.KeyPerson
	for rows.Next() {
		p, err := scanKeyPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan key person: %w", err)
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

func (s *AboutStore) UpdatePerson(id int64, name, position, bio, imageURL, imagePath string, sortOrder int) (*model.KeyPerson, error) {
	_, err := s.db.Exec(
		`UPDATE key_people SET name = ?, position = ?, bio = ?, image_url = ?, image_path = ?, sort_order = ? WHERE id = ?`,
		name, position, bio, imageURL, imagePath, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update key person: %w", err)
	}
	return s.GetPerson(id)
}

func (s *AboutStore) DeletePerson(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM key_people WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete key person: %w", err)
	}
	return nil
}

const regaliaCols = `id, title, description, image_url, image_path, created_at`

func scanRegalia(scanner interface{ Scan(...any) error }) (*model.RegaliaImage, error) {
	var r model.RegaliaImage
	err := scanner.Scan(&r.ID, &r.Title, &r.Description, &r.ImageURL, &r.ImagePath, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *AboutStore) CreateRegalia(title, description, imageURL, imagePath string) (*model.RegaliaImage, error) {
	result, err := s.db.Exec(
		`INSERT INTO regalia_images (title, description, image_url, image_path) VALUES (?, ?, ?, ?)`,
		title, description, imageURL, imagePath,
	)
	if err != nil {
		return nil, fmt.Errorf("insert regalia image: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRegalia(id)
}

func (s *AboutStore) GetRegalia(id int64) (*model.RegaliaImage, error) {
	row := s.db.QueryRow(`SELECT `+regaliaCols+` FROM regalia_images WHERE id = ?`, id)
	r, err := scanRegalia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get regalia image: %w", err)
	}
	return r, nil
}

func (s *AboutStore) ListRegalia() ([]model.RegaliaImage, error) {
	rows, err := s.db.Query(`SELECT ` + regaliaCols + ` FROM regalia_images ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list regalia images: %w", err)
	}
	defer rows.Close()

	var images []model.RegaliaImage
	for rows.Next() {
		r, err := scanRegalia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan regalia image: %w", err)
		}
		images = append(images, *r)
	}
	return images, rows.Err()
}

func (s *AboutStore) DeleteRegalia(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM regalia_images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete regalia image: %w", err)
	}
	return nil
}

const contactCols = `id, label, phone, email, address, sort_order, created_at`

func scanContact(scanner interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	err := scanner.Scan(&c.ID, &c.Label, &c.Phone, &c.Email, &c.Address, &c.SortOrder, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *AboutStore) CreateContact(label, phone, email, address string, sortOrder int) (*model.Contact, error) {
	result, err := s.db.Exec(
		`INSERT INTO contacts (label, phone, email, address, sort_order) VALUES (?, ?, ?, ?, ?)`,
		label, phone, email, address, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetContact(id)
}

func (s *AboutStore) GetContact(id int64) (*model.Contact, error) {
	row := s.db.QueryRow(`SELECT `+contactCols+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (s *AboutStore) ListContacts() ([]model.Contact, error) {
	rows, err := s.db.Query(`SELECT ` + contactCols + ` FROM contacts ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (s *AboutStore) UpdateContact(id int64, label, phone, email, address string, sortOrder int) (*model.Contact, error) {
	_, err := s.db.Exec(
		`UPDATE contacts SET label = ?, phone = ?, email = ?, address = ?, sort_order = ? WHERE id = ?`,
		label, phone, email, address, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return s.GetContact(id)
}

func (s *AboutStore) DeleteContact(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM contacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}
