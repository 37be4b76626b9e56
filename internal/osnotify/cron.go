package osnotify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

// Deliverer sends a fired notification to the owner's devices
type Deliverer interface {
	Deliver(ctx context.Context, ownerID string, content Content) error
}

// PermissionSource answers whether an owner can receive notifications
type PermissionSource interface {
	HasActiveSubscription(ctx context.Context, ownerID string) (bool, error)
}

// ErrInvalidTrigger is returned when a trigger sets neither or both fields
var ErrInvalidTrigger = errors.New("trigger must set exactly one of At or Daily")

type pendingNotification struct {
	ownerID string
	content Content
	entryID cron.EntryID
	oneShot bool
}

// CronScheduler is the in-process Scheduler implementation. Each pending
// notification is a cron entry; daily recurrences map to a minute/hour cron
// spec and one-shots to an absolute-time schedule that deregisters itself
// after firing.
type CronScheduler struct {
	cron  *cron.Cron
	del   Deliverer
	perms PermissionSource
	log   *logger.Logger

	mu      sync.Mutex
	pending map[string]*pendingNotification
}

// NewCronScheduler creates a scheduler delivering through del
func NewCronScheduler(del Deliverer, perms PermissionSource, log *logger.Logger) *CronScheduler {
	return &CronScheduler{
		cron:    cron.New(),
		del:     del,
		perms:   perms,
		log:     log,
		pending: make(map[string]*pendingNotification),
	}
}

// Start begins firing pending notifications
func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler; already-running deliveries finish
func (s *CronScheduler) Stop() {
	s.cron.Stop()
}

// RequestPermission reports whether the owner has anywhere to deliver to
func (s *CronScheduler) RequestPermission(ctx context.Context, ownerID string) (bool, error) {
	return s.perms.HasActiveSubscription(ctx, ownerID)
}

// Schedule registers a notification and returns its id
func (s *CronScheduler) Schedule(ctx context.Context, ownerID string, content Content, trigger Trigger) (string, error) {
	if (trigger.At == nil) == (trigger.Daily == nil) {
		return "", ErrInvalidTrigger
	}

	id := uuid.NewString()
	p := &pendingNotification{ownerID: ownerID, content: content, oneShot: trigger.At != nil}

	var entryID cron.EntryID
	if trigger.Daily != nil {
		spec := fmt.Sprintf("%d %d * * *", trigger.Daily.Minute, trigger.Daily.Hour)
		var err error
		entryID, err = s.cron.AddFunc(spec, func() { s.fire(id) })
		if err != nil {
			return "", fmt.Errorf("schedule daily notification: %w", err)
		}
	} else {
		if !trigger.At.After(time.Now()) {
			// Cron can never reach an instant already in the past; the
			// entry would sit in the map unreachable and unprunable.
			// Fire it immediately through the normal one-shot lifecycle.
			s.mu.Lock()
			s.pending[id] = p
			s.mu.Unlock()
			go s.fire(id)
			s.log.Debug("One-shot in the past, firing immediately", "id", id, "owner_id", ownerID)
			return id, nil
		}
		entryID = s.cron.Schedule(absoluteSchedule{at: *trigger.At}, cron.FuncJob(func() { s.fire(id) }))
	}

	p.entryID = entryID
	s.mu.Lock()
	s.pending[id] = p
	s.mu.Unlock()

	s.log.Debug("Scheduled notification", "id", id, "owner_id", ownerID, "one_shot", p.oneShot)
	return id, nil
}

// Cancel removes a pending notification; unknown ids are ignored
func (s *CronScheduler) Cancel(ctx context.Context, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[notificationID]
	if !ok {
		return nil
	}
	s.cron.Remove(p.entryID)
	delete(s.pending, notificationID)
	return nil
}

// ListScheduled returns the ids of every still-pending notification
func (s *CronScheduler) ListScheduled(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *CronScheduler) fire(id string) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if ok && p.oneShot {
		// One-shots fire once and vanish, exactly the drift the
		// reconciler exists to detect.
		s.cron.Remove(p.entryID)
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.del.Deliver(ctx, p.ownerID, p.content); err != nil {
		s.log.Error("Failed to deliver notification", "error", err, "id", id, "owner_id", p.ownerID)
	}
}

// absoluteSchedule fires once at a fixed instant
type absoluteSchedule struct {
	at time.Time
}

// Next implements cron.Schedule; the zero time after the instant passes
// means "never again".
func (a absoluteSchedule) Next(t time.Time) time.Time {
	if t.Before(a.at) {
		return a.at
	}
	return time.Time{}
}
