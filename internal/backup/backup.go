package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/storage"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/robfig/cron/v3"
)

// Folder is the object storage prefix holding sealed snapshots.
const Folder = "backups"

// ErrInProgress is returned when a backup is requested while one runs.
var ErrInProgress = errors.New("backup already in progress")

// Uploader is the part of object storage a backup needs.
type Uploader interface {
	Upload(ctx context.Context, folder, filename string, body io.Reader, size int64, contentType string) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// Config holds backup manager configuration.
type Config struct {
	Passphrase    string
	Schedule      string
	RetentionDays int
	// Location is the zone Schedule is evaluated in. Nil means time.Local.
	Location *time.Location
}

// State represents the backup manager state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager snapshots the database, seals it, and ships it to object storage.
type Manager struct {
	cfg      Config
	db       *sql.DB
	backups  *store.BackupStore
	objects  Uploader
	callback StatusCallback
	logger   *slog.Logger
	now      func() time.Time

	running sync.Mutex

	mu     sync.RWMutex
	status Status
	cron   *cron.Cron
}

// NewManager validates the schedule and returns an idle manager.
func NewManager(cfg Config, db *sql.DB, backups *store.BackupStore, objects Uploader, callback StatusCallback, logger *slog.Logger) (*Manager, error) {
	if cfg.Passphrase == "" {
		return nil, errors.New("backup passphrase is required")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parse backup schedule: %w", err)
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Manager{
		cfg:      cfg,
		db:       db,
		backups:  backups,
		objects:  objects,
		callback: callback,
		logger:   logger.With("component", "backup"),
		now:      time.Now,
		status:   Status{State: StateIdle},
	}, nil
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// Start runs a backup followed by retention cleanup on the configured
// schedule until ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(m.cfg.Location))
	if _, err := c.AddFunc(m.cfg.Schedule, func() { m.scheduled(ctx) }); err != nil {
		return fmt.Errorf("schedule backup: %w", err)
	}

	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()

	c.Start()
	m.logger.Info("backup scheduler started", "schedule", m.cfg.Schedule, "timezone", m.cfg.Location.String(), "retention_days", m.cfg.RetentionDays)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

// Stop halts the scheduler and waits for a running backup to finish.
// It is safe to call more than once.
func (m *Manager) Stop() {
	m.mu.RLock()
	c := m.cron
	m.mu.RUnlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (m *Manager) scheduled(ctx context.Context) {
	if _, err := m.Run(ctx); err != nil && !errors.Is(err, ErrInProgress) {
		m.logger.Error("scheduled backup", "error", err)
	}
	if _, err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup", "error", err)
	}
}

// Run takes a consistent snapshot of the database, encrypts it, and uploads
// it. The returned record is completed on success and failed otherwise.
func (m *Manager) Run(ctx context.Context) (*model.Backup, error) {
	if !m.running.TryLock() {
		return nil, ErrInProgress
	}
	defer m.running.Unlock()

	started := m.now().UTC()
	filename := fmt.Sprintf("convocation-%s.db.enc", started.Format("20060102T150405Z"))
	record, err := m.backups.Create(filename, started)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}
	m.setStatus(Status{State: StateRunning, InProgress: true})

	obj, size, err := m.snapshot(ctx, filename)
	if err != nil {
		if markErr := m.backups.MarkFailed(record.ID, err.Error()); markErr != nil {
			m.logger.Error("record backup failure", "backup", record.ID, "error", markErr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		failed, _ := m.backups.GetByID(record.ID)
		return failed, err
	}

	done := m.now().UTC()
	if err := m.backups.MarkCompleted(record.ID, obj.Key, size, done); err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}
	m.setStatus(Status{State: StateIdle, LastBackup: &done})
	m.logger.Info("backup completed", "backup", record.ID, "key", obj.Key, "bytes", size)

	return m.backups.GetByID(record.ID)
}

func (m *Manager) snapshot(ctx context.Context, filename string) (storage.Object, int64, error) {
	dir, err := os.MkdirTemp("", "convocation-backup-")
	if err != nil {
		return storage.Object{}, 0, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return storage.Object{}, 0, fmt.Errorf("snapshot database: %w", err)
	}
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return storage.Object{}, 0, fmt.Errorf("read snapshot: %w", err)
	}

	sealed, err := Seal(plaintext, m.cfg.Passphrase)
	if err != nil {
		return storage.Object{}, 0, fmt.Errorf("encrypt: %w", err)
	}

	size := int64(len(sealed))
	obj, err := m.objects.Upload(ctx, Folder, filename, bytes.NewReader(sealed), size, "application/octet-stream")
	if err != nil {
		return storage.Object{}, 0, fmt.Errorf("upload: %w", err)
	}
	return obj, size, nil
}

// Cleanup deletes backups older than the retention period along with their
// objects. It returns the number of objects removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	before := m.now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.backups.DeleteOlderThan(before)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if err := m.objects.Delete(ctx, key); err != nil {
			m.logger.Warn("delete expired backup object", "key", key, "error", err)
			continue
		}
		removed++
	}
	if len(keys) > 0 {
		m.logger.Info("expired backups removed", "count", len(keys), "objects", removed)
	}
	return removed, nil
}
