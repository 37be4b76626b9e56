package osnotify

import (
	"context"
	"time"

	"github.com/pawprint/go-reminder-service/internal/domain"
)

// Content is the user-visible payload of a notification
type Content struct {
	Title string
	Body  string
	Data  map[string]string
}

// Trigger describes when a notification fires: exactly one of At (one-shot)
// or Daily (recurring time of day) is set.
type Trigger struct {
	At    *time.Time
	Daily *domain.ReminderTime
}

// OneShot builds an absolute-date trigger
func OneShot(at time.Time) Trigger {
	return Trigger{At: &at}
}

// DailyAt builds a daily-recurrence trigger
func DailyAt(t domain.ReminderTime) Trigger {
	return Trigger{Daily: &t}
}

// Scheduler is the notification scheduling capability the reminder engine
// depends on. Its live state is authoritative: entries can disappear out
// from under the ledger (one-shots fire and vanish, restarts clear it), and
// the reconciler treats ListScheduled as ground truth.
type Scheduler interface {
	// RequestPermission reports whether notifications can be delivered to
	// the owner at all.
	RequestPermission(ctx context.Context, ownerID string) (bool, error)

	// Schedule registers a notification and returns the opaque id needed to
	// cancel it.
	Schedule(ctx context.Context, ownerID string, content Content, trigger Trigger) (string, error)

	// Cancel removes a pending notification. Cancelling an id the scheduler
	// no longer knows is not an error.
	Cancel(ctx context.Context, notificationID string) error

	// ListScheduled returns the ids of every notification still pending.
	ListScheduled(ctx context.Context) ([]string, error)
}

// CancelOutcome is the per-item result of a batch cancellation
type CancelOutcome struct {
	NotificationID string
	Err            error
}

// CancelAll cancels every id, collecting per-item outcomes instead of
// stopping at the first failure. Callers decide what a failure means; the
// sync paths log and move on.
func CancelAll(ctx context.Context, s Scheduler, ids []string) []CancelOutcome {
	outcomes := make([]CancelOutcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, CancelOutcome{
			NotificationID: id,
			Err:            s.Cancel(ctx, id),
		})
	}
	return outcomes
}

// FailedCancels counts the outcomes that carry an error
func FailedCancels(outcomes []CancelOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
