package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukerupert/convocation/internal/audience"
	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/push"
	"github.com/dukerupert/convocation/internal/store"
	"github.com/dukerupert/convocation/internal/websocket"
)

// ErrInvalid marks a request rejected before anything was stored.
var ErrInvalid = errors.New("invalid notification")

const (
	maxTitleLen = 200
	maxBodyLen  = 4000
)

var validTypes = map[string]bool{
	model.NotifTypeAnnouncement:     true,
	model.NotifTypeNews:             true,
	model.NotifTypeDeadlineReminder: true,
	model.NotifTypeCountdown:        true,
}

// Request describes a notification to fan out.
type Request struct {
	Type            string         `json:"type"`
	Title           string         `json:"title"`
	Body            string         `json:"body"`
	Metadata        map[string]any `json:"metadata"`
	TargetFaculties []string       `json:"target_faculties"`
}

// Validate trims r in place and reports the first problem as ErrInvalid.
func (r *Request) Validate() error {
	r.Type = strings.TrimSpace(r.Type)
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
	if r.Type == "" {
		r.Type = model.NotifTypeAnnouncement
	}
	switch {
	case !validTypes[r.Type]:
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, r.Type)
	case r.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case len(r.Title) > maxTitleLen:
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalid, maxTitleLen)
	case len(r.Body) > maxBodyLen:
		return fmt.Errorf("%w: body longer than %d characters", ErrInvalid, maxBodyLen)
	}
	return nil
}

// Sender delivers one push message. *push.Service satisfies it.
type Sender interface {
	Send(sub *model.PushSubscription, payload push.Payload) error
}

// Service records notifications for the mobile app and pushes them to
// registered devices.
type Service struct {
	notifications *store.NotificationStore
	students      *store.StudentStore
	subs          *store.PushStore
	sender        Sender
	hub           websocket.Broadcaster
	logger        *slog.Logger

	wg sync.WaitGroup
}

// NewService wires the notification fan-out. sender may be nil when push is
// not configured; records are still written and broadcast.
func NewService(ns *store.NotificationStore, ss *store.StudentStore, ps *store.PushStore, sender Sender, hub websocket.Broadcaster, logger *slog.Logger) *Service {
	return &Service{
		notifications: ns,
		students:      ss,
		subs:          ps,
		sender:        sender,
		hub:           hub,
		logger:        logger.With("component", "notify"),
	}
}

// Audience returns the per-faculty student tally.
func (s *Service) Audience() (audience.Counts, error) {
	students, err := s.students.List("")
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return audience.Tally(students), nil
}

// Send validates req, stores it, broadcasts the change and starts push
// delivery in the background. Delivery failures never fail the send.
func (s *Service) Send(ctx context.Context, req Request) (*model.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	counts, err := s.Audience()
	if err != nil {
		return nil, err
	}
	targets := audience.Normalize(req.TargetFaculties)

	n, err := s.notifications.Create(req.Type, req.Title, req.Body, req.Metadata, targets, counts.Size(targets))
	if err != nil {
		return nil, err
	}
	s.logger.Info("notification created", "id", n.ID, "type", n.Type, "audience", n.AudienceSize)

	if s.hub != nil {
		s.hub.Broadcast(websocket.NewMessage(websocket.EntityNotification, websocket.ActionCreated, n.ID,
			map[string]any{"type": n.Type}))
	}

	if s.sender != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.deliver(context.WithoutCancel(ctx), n)
		}()
	}
	return n, nil
}

// Wait blocks until in-flight push deliveries finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) deliver(ctx context.Context, n *model.Notification) {
	subs, err := s.subs.List()
	if err != nil {
		s.logger.Error("list push subscriptions", "error", err)
		return
	}

	payload := push.Payload{
		Title: n.Title,
		Body:  n.Body,
		Type:  n.Type,
		Tag:   fmt.Sprintf("%s-%d", n.Type, n.ID),
		Data:  map[string]any{"notification_id": n.ID, "target_faculties": n.TargetFaculties},
	}

	var sent, pruned, failed int
	for i := range subs {
		if ctx.Err() != nil {
			break
		}
		err := s.sender.Send(&subs[i], payload)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, push.ErrExpired):
			if err := s.subs.DeleteByEndpoint(subs[i].Endpoint); err != nil {
				s.logger.Error("prune expired subscription", "error", err)
			}
			pruned++
		default:
			s.logger.Warn("push delivery failed", "subscription", subs[i].ID, "error", err)
			failed++
		}
	}
	s.logger.Info("push delivery finished", "notification", n.ID, "sent", sent, "pruned", pruned, "failed", failed)
}
