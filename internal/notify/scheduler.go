package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/convocation/internal/deadline"
	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/robfig/cron/v3"
)

const maxListedReminders = 5

// Scheduler sends one reminder per day listing urgent deadlines.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	spec   string
	svc    *Service
	dates  *store.DeadlineStore
	sent   *store.NotificationStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewScheduler validates spec, a standard five-field cron expression
// evaluated in loc.
func NewScheduler(spec string, svc *Service, dates *store.DeadlineStore, sent *store.NotificationStore, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse reminder schedule: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	logger = logger.With("component", "reminders")
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger})),
		spec:   spec,
		svc:    svc,
		dates:  dates,
		sent:   sent,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Start registers the job and starts the cron runner. Jobs stop when ctx
// is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("deadline reminder", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	s.cron.Start()
	s.logger.Info("reminder scheduler started", "schedule", s.spec, "timezone", s.loc.String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce sends today's reminder if there are urgent deadlines and none was
// sent yet today.
func (s *Scheduler) RunOnce(ctx context.Context) (*model.Notification, error) {
	now := s.now().In(s.loc)
	refID := now.Format("2006-01-02")

	already, err := s.sent.WasSent(model.NotifTypeDeadlineReminder, refID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, nil
	}

	dates, err := s.dates.List()
	if err != nil {
		return nil, err
	}

	var urgent []deadline.Classified
	for _, c := range deadline.FilterActionable(model.Entries(dates), now) {
		if c.Color == deadline.ColorRed {
			urgent = append(urgent, c)
		}
	}
	if len(urgent) == 0 {
		s.logger.Debug("no urgent deadlines", "date", refID)
		return nil, nil
	}

	n, err := s.svc.Send(ctx, reminderRequest(urgent, refID))
	if err != nil {
		return nil, err
	}
	if err := s.sent.RecordSent(model.NotifTypeDeadlineReminder, refID); err != nil {
		return n, err
	}
	return n, nil
}

func reminderRequest(urgent []deadline.Classified, refID string) Request {
	title := "1 deadline needs attention"
	if len(urgent) > 1 {
		title = fmt.Sprintf("%d deadlines need attention", len(urgent))
	}

	ids := make([]int64, 0, len(urgent))
	lines := make([]string, 0, maxListedReminders+1)
	for i, c := range urgent {
		ids = append(ids, c.ID)
		if i < maxListedReminders {
			lines = append(lines, fmt.Sprintf("%s (%s, %s)", c.Title, c.DisplayDate, c.DisplayLocation()))
		}
	}
	if extra := len(urgent) - maxListedReminders; extra > 0 {
		lines = append(lines, fmt.Sprintf("and %d more", extra))
	}

	return Request{
		Type:     model.NotifTypeDeadlineReminder,
		Title:    title,
		Body:     strings.Join(lines, "\n"),
		Metadata: map[string]any{"date": refID, "deadline_ids": ids},
	}
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
