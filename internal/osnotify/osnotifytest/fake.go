// Package osnotifytest provides an in-memory Scheduler double for tests.
package osnotifytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pawprint/go-reminder-service/internal/osnotify"
)

// ScheduledCall records one successful Schedule invocation
type ScheduledCall struct {
	OwnerID string
	Content osnotify.Content
	Trigger osnotify.Trigger
}

// Fake is an in-memory osnotify.Scheduler that records calls and can be
// told to fail or to report a reduced live set.
type Fake struct {
	mu sync.Mutex

	PermissionGranted bool
	PermissionErr     error
	ScheduleErr       error
	CancelErr         error
	ListErr           error

	scheduled map[string]ScheduledCall
	nextID    int

	ScheduleCalls   int
	CancelCalls     int
	ListCalls       int
	PermissionCalls int
}

// NewFake returns a fake with permission granted
func NewFake() *Fake {
	return &Fake{PermissionGranted: true, scheduled: make(map[string]ScheduledCall)}
}

// RequestPermission implements osnotify.Scheduler
func (f *Fake) RequestPermission(ctx context.Context, ownerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PermissionCalls++
	return f.PermissionGranted, f.PermissionErr
}

// Schedule implements osnotify.Scheduler
func (f *Fake) Schedule(ctx context.Context, ownerID string, content osnotify.Content, trigger osnotify.Trigger) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ScheduleCalls++
	if f.ScheduleErr != nil {
		return "", f.ScheduleErr
	}
	f.nextID++
	id := fmt.Sprintf("fake-%d", f.nextID)
	f.scheduled[id] = ScheduledCall{OwnerID: ownerID, Content: content, Trigger: trigger}
	return id, nil
}

// Cancel implements osnotify.Scheduler
func (f *Fake) Cancel(ctx context.Context, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CancelCalls++
	if f.CancelErr != nil {
		return f.CancelErr
	}
	delete(f.scheduled, notificationID)
	return nil
}

// ListScheduled implements osnotify.Scheduler
func (f *Fake) ListScheduled(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	ids := make([]string, 0, len(f.scheduled))
	for id := range f.scheduled {
		ids = append(ids, id)
	}
	return ids, nil
}

// Drop silently forgets a pending notification, simulating the scheduler
// losing state (a fired one-shot, a platform limit, a restart).
func (f *Fake) Drop(notificationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, notificationID)
}

// Pending returns the recorded call for an id, if still pending
func (f *Fake) Pending(notificationID string) (ScheduledCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.scheduled[notificationID]
	return c, ok
}

// PendingCount returns the number of still-pending notifications
func (f *Fake) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scheduled)
}
