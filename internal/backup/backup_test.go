package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/convocation/internal/database"
	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/storage"
	"github.com/dukerupert/convocation/internal/store"
)

// memObjects is an in-memory Uploader.
type memObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleteErr error
	n         int
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Upload(_ context.Context, folder, _ string, body io.Reader, _ int64, _ string) (storage.Object, error) {
	if m.uploadErr != nil {
		return storage.Object{}, m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	key := fmt.Sprintf("%s/%d.enc", folder, m.n)
	m.objects[key] = data
	return storage.Object{Key: key}, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) get(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key]
}

func setup(t *testing.T) (*sql.DB, *store.BackupStore, *memObjects) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, store.NewBackupStore(db), newMemObjects()
}

func newTestManager(t *testing.T, db *sql.DB, bs *store.BackupStore, objs Uploader, cb StatusCallback) *Manager {
	t.Helper()
	m, err := NewManager(Config{Passphrase: "correct horse", Schedule: "0 3 * * *", RetentionDays: 30}, db, bs, objs, cb, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerValidates(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	if _, err := NewManager(Config{Schedule: "0 3 * * *"}, nil, nil, nil, nil, logger); err == nil {
		t.Error("expected error without passphrase")
	}
	if _, err := NewManager(Config{Passphrase: "p", Schedule: "nightly"}, nil, nil, nil, nil, logger); err == nil {
		t.Error("expected error for bad schedule")
	}
	m, err := NewManager(Config{Passphrase: "p", Schedule: "0 3 * * *"}, nil, nil, nil, nil, logger)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.cfg.RetentionDays != 30 || m.cfg.Location != time.Local || m.Status().State != StateIdle {
		t.Errorf("defaults = %+v / %+v", m.cfg, m.Status())
	}
}

func TestRunSealsRestorableSnapshot(t *testing.T) {
	db, bs, objs := setup(t)
	if _, err := db.Exec(`INSERT INTO settings (key, value) VALUES ('countdown_target', '2026-11-20')`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var mu sync.Mutex
	var states []State
	m := newTestManager(t, db, bs, objs, func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	rec, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Status != model.BackupStatusCompleted || rec.ObjectKey == "" || rec.SizeBytes == 0 {
		t.Fatalf("record = %+v", rec)
	}
	if st := m.Status(); st.State != StateIdle || st.LastBackup == nil {
		t.Errorf("status = %+v", st)
	}
	mu.Lock()
	if len(states) != 2 || states[0] != StateRunning || states[1] != StateIdle {
		t.Errorf("states = %v", states)
	}
	mu.Unlock()

	sealed := objs.get(rec.ObjectKey)
	if int64(len(sealed)) != rec.SizeBytes {
		t.Fatalf("stored %d bytes, record says %d", len(sealed), rec.SizeBytes)
	}
	plaintext, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(plaintext[:16]) != "SQLite format 3\x00" {
		t.Errorf("snapshot header = %q", plaintext[:16])
	}
}

func TestRunUploadFailure(t *testing.T) {
	db, bs, objs := setup(t)
	objs.uploadErr = storage.ErrDisabled
	m := newTestManager(t, db, bs, objs, nil)

	rec, err := m.Run(context.Background())
	if !errors.Is(err, storage.ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
	if rec == nil || rec.Status != model.BackupStatusFailed || rec.Error == "" {
		t.Errorf("record = %+v", rec)
	}
	if st := m.Status(); st.State != StateError || st.Error == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestRunRejectsConcurrent(t *testing.T) {
	db, bs, objs := setup(t)
	m := newTestManager(t, db, bs, objs, nil)

	m.running.Lock()
	_, err := m.Run(context.Background())
	m.running.Unlock()
	if !errors.Is(err, ErrInProgress) {
		t.Errorf("err = %v, want ErrInProgress", err)
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	db, bs, objs := setup(t)
	m := newTestManager(t, db, bs, objs, nil)
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return now.AddDate(0, 0, -45) }
	old, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("old run: %v", err)
	}
	m.now = func() time.Time { return now }
	fresh, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("fresh run: %v", err)
	}

	removed, err := m.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if objs.get(old.ObjectKey) != nil {
		t.Error("expired object still stored")
	}
	if objs.get(fresh.ObjectKey) == nil {
		t.Error("fresh object deleted")
	}
	if got, _ := bs.GetByID(old.ID); got != nil {
		t.Error("expired record still present")
	}
}

func TestCleanupToleratesDeleteFailure(t *testing.T) {
	db, bs, objs := setup(t)
	m := newTestManager(t, db, bs, objs, nil)

	m.now = func() time.Time { return time.Now().AddDate(0, 0, -60) }
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	m.now = time.Now
	objs.deleteErr = errors.New("bucket unavailable")

	removed, err := m.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestStartStop(t *testing.T) {
	db, bs, objs := setup(t)
	m := newTestManager(t, db, bs, objs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	m.Stop()
	m.Stop()
}

func TestStartUsesConfiguredZone(t *testing.T) {
	db, bs, objs := setup(t)
	lagos := time.FixedZone("WAT", 3600)
	m, err := NewManager(Config{Passphrase: "p", Schedule: "0 3 * * *", Location: lagos}, db, bs, objs, nil, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	if got := m.cron.Location(); got != lagos {
		t.Errorf("cron location = %v, want WAT", got)
	}
	entries := m.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if next := entries[0].Next.In(lagos); next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("next run = %v, want 03:00 WAT", next)
	}
}
