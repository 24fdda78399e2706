package alerts

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryGateway is an in-process Gateway used by tests. It records every
// scheduled alert per reminder and lets tests drive the authorization state
// and inject per-instant failures.
type MemoryGateway struct {
	mu        sync.Mutex
	state     AuthorizationState
	grantOnOK bool
	nextID    int
	scheduled map[uuid.UUID][]ScheduleRequest
	failAt    map[int64]error
}

// NewMemoryGateway creates an authorized in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		state:     AuthorizationAuthorized,
		grantOnOK: true,
		scheduled: make(map[uuid.UUID][]ScheduleRequest),
		failAt:    make(map[int64]error),
	}
}

// SetAuthorizationState overrides the permission state.
func (g *MemoryGateway) SetAuthorizationState(state AuthorizationState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
}

// SetGrantOnRequest controls whether RequestAuthorization succeeds.
func (g *MemoryGateway) SetGrantOnRequest(grant bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grantOnOK = grant
}

// FailAt makes ScheduleAt return err for any alert at the given unix second.
func (g *MemoryGateway) FailAt(unixSec int64, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failAt[unixSec] = err
}

// Scheduled returns a copy of the alerts currently scheduled for a reminder.
func (g *MemoryGateway) Scheduled(reminderID uuid.UUID) []ScheduleRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ScheduleRequest, len(g.scheduled[reminderID]))
	copy(out, g.scheduled[reminderID])
	return out
}

// CancelAll removes every alert for the reminder; unknown IDs are a no-op.
func (g *MemoryGateway) CancelAll(_ context.Context, reminderID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.scheduled, reminderID)
	return nil
}

// ScheduleAt records one alert and returns a synthetic ID.
func (g *MemoryGateway) ScheduleAt(_ context.Context, req ScheduleRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == AuthorizationDenied {
		return "", ErrAuthorizationDenied
	}
	if err, ok := g.failAt[req.At.Unix()]; ok {
		return "", err
	}
	g.nextID++
	g.scheduled[req.ReminderID] = append(g.scheduled[req.ReminderID], req)
	return fmt.Sprintf("alert-%d", g.nextID), nil
}

// AuthorizationState reports the configured permission state.
func (g *MemoryGateway) AuthorizationState(_ context.Context) (AuthorizationState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, nil
}

// RequestAuthorization grants or refuses per SetGrantOnRequest.
func (g *MemoryGateway) RequestAuthorization(_ context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grantOnOK {
		g.state = AuthorizationAuthorized
		return true, nil
	}
	g.state = AuthorizationDenied
	return false, nil
}

var _ Gateway = (*MemoryGateway)(nil)
