package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/convocation/internal/backup"
	"github.com/dukerupert/convocation/internal/config"
	"github.com/dukerupert/convocation/internal/email"
	"github.com/dukerupert/convocation/internal/handler"
	"github.com/dukerupert/convocation/internal/ics"
	"github.com/dukerupert/convocation/internal/middleware"
	"github.com/dukerupert/convocation/internal/notify"
	"github.com/dukerupert/convocation/internal/push"
	"github.com/dukerupert/convocation/internal/store"
	ws "github.com/dukerupert/convocation/internal/websocket"
)

const (
	notificationRateLimit  = 10
	notificationRateWindow = time.Minute
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	dashboardH    *handler.DashboardHandler
	deadlineH     *handler.DeadlineHandler
	newsH         *handler.NewsHandler
	serviceImageH *handler.ServiceImageHandler
	faqH          *handler.FAQHandler
	navigationH   *handler.NavigationHandler
	aboutH        *handler.AboutHandler
	countdownH    *handler.CountdownHandler
	notificationH *handler.NotificationHandler
	studentH      *handler.StudentHandler
	pushH         *handler.PushHandler
	objectH       *handler.ObjectHandler
	backupH       *handler.BackupHandler
	notifier      *notify.Service
	scheduler     *notify.Scheduler
	backups       *backup.Manager
	rateLimiter   *middleware.RateLimiter
	originPattern []string
	logger        *slog.Logger
}

// New wires stores, services and handlers. objects backs image uploads and
// backups, and pushSvc delivers notifications to devices when its keys are
// configured.
func New(db *sql.DB, cfg *config.Config, objects handler.ObjectStore, pushSvc *push.Service, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger)
	loc := cfg.Location()
	now := handler.ClockIn(loc)

	deadlineStore := store.NewDeadlineStore(db)
	newsStore := store.NewNewsStore(db)
	serviceImageStore := store.NewServiceImageStore(db)
	faqStore := store.NewFAQStore(db)
	feedbackStore := store.NewFeedbackStore(db)
	navigationStore := store.NewNavigationStore(db)
	aboutStore := store.NewAboutStore(db)
	settingsStore := store.NewSettingsStore(db)
	studentStore := store.NewStudentStore(db)
	notificationStore := store.NewNotificationStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	var sender notify.Sender
	if pushSvc != nil && pushSvc.Enabled() {
		sender = pushSvc
	}
	notifier := notify.NewService(notificationStore, studentStore, pushStore, sender, hub, logger)

	var scheduler *notify.Scheduler
	if cfg.RemindersEnabled() {
		var err error
		scheduler, err = notify.NewScheduler(cfg.ReminderCron, notifier, deadlineStore, notificationStore, loc, logger)
		if err != nil {
			return nil, fmt.Errorf("reminder scheduler: %w", err)
		}
	}

	var mailer handler.Mailer
	if mail := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From); mail.Configured() {
		mailer = mail
	}

	var backups *backup.Manager
	var runner handler.BackupRunner
	if cfg.Backup.Enabled() {
		var err error
		backups, err = backup.NewManager(backup.Config{
			Passphrase:    cfg.Backup.Passphrase,
			Schedule:      cfg.Backup.Cron,
			RetentionDays: cfg.Backup.RetentionDays,
			Location:      loc,
		}, db, backupStore, objects, func(st backup.Status) {
			hub.Broadcast(ws.NewMessage(ws.EntityBackup, ws.ActionUpdated, 0, map[string]any{"status": st}))
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("backup manager: %w", err)
		}
		runner = backups
	}

	importer := ics.NewImporter(deadlineStore, cfg.ImportHorizonDays, loc, logger)
	countdownH := handler.NewCountdownHandler(settingsStore, now, hub, logger.With("component", "countdown"))

	return &Server{
		db:            db,
		hub:           hub,
		dashboardH:    handler.NewDashboardHandler(deadlineStore, newsStore, feedbackStore, studentStore, countdownH, now, logger.With("component", "dashboard")),
		deadlineH:     handler.NewDeadlineHandler(deadlineStore, importer, now, hub, logger.With("component", "deadline")),
		newsH:         handler.NewNewsHandler(newsStore, notifier, objects, hub, logger.With("component", "news")),
		serviceImageH: handler.NewServiceImageHandler(serviceImageStore, objects, hub, logger.With("component", "service_image")),
		faqH:          handler.NewFAQHandler(faqStore, feedbackStore, mailer, hub, logger.With("component", "faq")),
		navigationH:   handler.NewNavigationHandler(navigationStore, hub, logger.With("component", "navigation")),
		aboutH:        handler.NewAboutHandler(aboutStore, settingsStore, objects, hub, logger.With("component", "about")),
		countdownH:    countdownH,
		notificationH: handler.NewNotificationHandler(notificationStore, notifier, hub, logger.With("component", "notification")),
		studentH:      handler.NewStudentHandler(studentStore, hub, logger.With("component", "student")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		objectH:       handler.NewObjectHandler(objects, logger.With("component", "objects")),
		backupH:       handler.NewBackupHandler(backupStore, runner, objects, logger.With("component", "backup_handler")),
		notifier:      notifier,
		scheduler:     scheduler,
		backups:       backups,
		rateLimiter:   middleware.NewRateLimiter(),
		originPattern: cfg.AllowedOrigins,
		logger:        logger,
	}, nil
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Notifier returns the notification service so shutdown can wait for
// in-flight push deliveries.
func (s *Server) Notifier() *notify.Service {
	return s.notifier
}

// Scheduler returns the deadline reminder scheduler, or nil when reminders
// are disabled.
func (s *Server) Scheduler() *notify.Scheduler {
	return s.scheduler
}

// Backups returns the backup manager, or nil when no passphrase is
// configured.
func (s *Server) Backups() *backup.Manager {
	return s.backups
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.originPattern))
	s.registerAPIRoutes(mux)

	httpLogger := s.logger.With("component", "http")
	var h http.Handler = mux
	h = middleware.RequestLogger(httpLogger)(h)
	h = middleware.Recoverer(httpLogger)(h)
	h = middleware.RequestID(h)
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, notificationRateLimit, notificationRateWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Get)

	// Important dates
	mux.HandleFunc("GET /api/deadlines", s.deadlineH.List)
	mux.HandleFunc("POST /api/deadlines", s.deadlineH.Create)
	mux.HandleFunc("GET /api/deadlines/actionable", s.deadlineH.Actionable)
	mux.HandleFunc("POST /api/deadlines/import", s.deadlineH.Import)
	mux.HandleFunc("PUT /api/deadlines/{id}", s.deadlineH.Update)
	mux.HandleFunc("DELETE /api/deadlines/{id}", s.deadlineH.Delete)

	// News and service images
	mux.HandleFunc("GET /api/news", s.newsH.List)
	mux.HandleFunc("POST /api/news", s.newsH.Create)
	mux.HandleFunc("PUT /api/news/{id}", s.newsH.Update)
	mux.HandleFunc("DELETE /api/news/{id}", s.newsH.Delete)
	mux.HandleFunc("GET /api/service-images", s.serviceImageH.List)
	mux.HandleFunc("POST /api/service-images", s.serviceImageH.Create)
	mux.HandleFunc("PUT /api/service-images/{id}", s.serviceImageH.Update)
	mux.HandleFunc("DELETE /api/service-images/{id}", s.serviceImageH.Delete)

	// FAQ and feedback
	mux.HandleFunc("GET /api/faqs", s.faqH.List)
	mux.HandleFunc("POST /api/faqs", s.faqH.Create)
	mux.HandleFunc("PUT /api/faqs/{id}", s.faqH.Update)
	mux.HandleFunc("DELETE /api/faqs/{id}", s.faqH.Delete)
	mux.HandleFunc("GET /api/feedback", s.faqH.ListFeedback)
	mux.HandleFunc("PUT /api/feedback/{id}/reply", s.faqH.ReplyFeedback)
	mux.HandleFunc("DELETE /api/feedback/{id}", s.faqH.DeleteFeedback)

	// Campus navigation
	mux.HandleFunc("GET /api/navigation", s.navigationH.List)
	mux.HandleFunc("POST /api/navigation", s.navigationH.Create)
	mux.HandleFunc("PUT /api/navigation/{id}", s.navigationH.Update)
	mux.HandleFunc("DELETE /api/navigation/{id}", s.navigationH.Delete)

	// About
	mux.HandleFunc("GET /api/about/people", s.aboutH.ListPeople)
	mux.HandleFunc("POST /api/about/people", s.aboutH.CreatePerson)
	mux.HandleFunc("PUT /api/about/people/{id}", s.aboutH.UpdatePerson)
	mux.HandleFunc("DELETE /api/about/people/{id}", s.aboutH.DeletePerson)
	mux.HandleFunc("GET /api/about/regalia", s.aboutH.ListRegalia)
	mux.HandleFunc("POST /api/about/regalia", s.aboutH.CreateRegalia)
	mux.HandleFunc("DELETE /api/about/regalia/{id}", s.aboutH.DeleteRegalia)
	mux.HandleFunc("GET /api/about/campus-map", s.aboutH.GetCampusMap)
	mux.HandleFunc("PUT /api/about/campus-map", s.aboutH.UpdateCampusMap)
	mux.HandleFunc("GET /api/about/contacts", s.aboutH.ListContacts)
	mux.HandleFunc("POST /api/about/contacts", s.aboutH.CreateContact)
	mux.HandleFunc("PUT /api/about/contacts/{id}", s.aboutH.UpdateContact)
	mux.HandleFunc("DELETE /api/about/contacts/{id}", s.aboutH.DeleteContact)

	mux.HandleFunc("GET /api/countdown", s.countdownH.Get)
	mux.HandleFunc("PUT /api/countdown", s.countdownH.Update)

	// Notifications and audience
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("POST /api/notifications", s.rateLimitedHandler(s.notificationH.Create))
	mux.HandleFunc("GET /api/notifications/audience", s.notificationH.Audience)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.notificationH.Delete)
	mux.HandleFunc("GET /api/faculties", s.notificationH.Faculties)
	mux.HandleFunc("GET /api/students", s.studentH.List)
	mux.HandleFunc("POST /api/students", s.studentH.Create)
	mux.HandleFunc("DELETE /api/students/{id}", s.studentH.Delete)

	// Push subscriptions
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Create)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	mux.HandleFunc("GET /api/objects/{key...}", s.objectH.Redirect)
}
