package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/convocation/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationCols = `id, type, title, body, metadata, target_faculties, audience_size, created_at`

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var metadata, targets string
	err := scanner.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &metadata, &targets, &n.AudienceSize, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(targets), &n.TargetFaculties); err != nil {
		return nil, fmt.Errorf("decode target faculties: %w", err)
	}
	return &n, nil
}

func (s *NotificationStore) Create(notifType, title, body string, metadata map[string]any, targets []string, audienceSize int) (*model.Notification, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	if targets == nil {
		targets = []string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return nil, fmt.Errorf("encode target faculties: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO notifications (type, title, body, metadata, target_faculties, audience_size) VALUES (?, ?, ?, ?, ?, ?)`,
		notifType, title, body, string(metaJSON), string(targetsJSON), audienceSize,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NotificationStore) GetByID(id int64) (*model.Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// List returns the most recent notifications, newest first. A limit <= 0 returns all.
func (s *NotificationStore) List(limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+notificationCols+` FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

func (s *NotificationStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM notifications WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// WasSent reports whether a scheduled notification with refID was already sent.
func (s *NotificationStore) WasSent(notifType, refID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notification_log WHERE type = ? AND ref_id = ?`, notifType, refID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check sent notification: %w", err)
	}
	return n > 0, nil
}

// RecordSent records that a scheduled notification was sent (for dedup).
func (s *NotificationStore) RecordSent(notifType, refID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO notification_log (type, ref_id) VALUES (?, ?)`, notifType, refID,
	)
	if err != nil {
		return fmt.Errorf("record sent notification: %w", err)
	}
	return nil
}
