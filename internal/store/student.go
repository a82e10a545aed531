package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/convocation/internal/model"
)

type StudentStore struct {
	db *sql.DB
}

func NewStudentStore(db *sql.DB) *StudentStore {
	return &StudentStore{db: db}
}

const studentCols = `id, name, matric_no, faculty, created_at`

func scanStudent(scanner interface{ Scan(...any) error }) (*model.Student, error) {
	var st model.Student
	if err := scanner.Scan(&st.ID, &st.Name, &st.MatricNo, &st.Faculty, &st.CreatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StudentStore) Create(name, matricNo, faculty string) (*model.Student, error) {
	result, err := s.db.Exec(
		`INSERT INTO students (name, matric_no, faculty) VALUES (?, ?, ?)`,
		name, matricNo, faculty,
	)
	if err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *StudentStore) GetByID(id int64) (*model.Student, error) {
	row := s.db.QueryRow(`SELECT `+studentCols+` FROM students WHERE id = ?`, id)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return st, nil
}

func (s *StudentStore) GetByMatricNo(matricNo string) (*model.Student, error) {
	row := s.db.QueryRow(`SELECT `+studentCols+` FROM students WHERE matric_no = ?`, matricNo)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student by matric no: %w", err)
	}
	return st, nil
}

// List returns students, optionally restricted to one faculty.
func (s *StudentStore) List(faculty string) ([]model.Student, error) {
	query := `SELECT ` + studentCols + ` FROM students`
	var args []any
	if faculty != "" {
		query += ` WHERE faculty = ?`
		args = append(args, faculty)
	}
	query += ` ORDER BY faculty, name COLLATE NOCASE`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *st)
	}
	return students, rows.Err()
}

func (s *StudentStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM students WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
