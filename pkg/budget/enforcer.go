package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusdesk/campusdesk/pkg/models"
	"github.com/campusdesk/campusdesk/pkg/tracker"
)

// ErrBudgetExceeded is returned when an upstream call would exceed a budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Counter is the subset of tracker.Tracker the enforcer needs.
type Counter interface {
	CountSince(ctx context.Context, kind models.CallKind, provider string, since time.Time) (int64, error)
}

var _ Counter = (tracker.Tracker)(nil)

// Enforcer checks upstream call counts against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	counter  Counter
	now      func() time.Time
}

// New creates an Enforcer with the given policies and call counter.
func New(policies []models.BudgetPolicy, c Counter) *Enforcer {
	return &Enforcer{policies: policies, counter: c, now: time.Now}
}

// Check returns ErrBudgetExceeded if a call of kind to provider would exceed
// any applicable policy. A nil Enforcer allows every call.
func (e *Enforcer) Check(ctx context.Context, kind models.CallKind, provider string) error {
	if e == nil {
		return nil
	}
	for _, p := range e.applicablePolicies(kind, provider) {
		used, err := e.counter.CountSince(ctx, p.Kind, p.Provider, periodStart(e.now(), p.Period))
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxCalls {
			return ErrBudgetExceeded
		}
	}
	return nil
}

// Status returns usage against every configured policy.
func (e *Enforcer) Status(ctx context.Context) ([]models.BudgetStatus, error) {
	if e == nil {
		return nil, nil
	}
	statuses := make([]models.BudgetStatus, 0, len(e.policies))

	for _, p := range e.policies {
		used, err := e.counter.CountSince(ctx, p.Kind, p.Provider, periodStart(e.now(), p.Period))
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxCalls - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

func (e *Enforcer) applicablePolicies(kind models.CallKind, provider string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Kind == kind && (p.Provider == "" || p.Provider == provider) {
			result = append(result, p)
		}
	}
	return result
}

func periodStart(now time.Time, period models.BudgetPeriod) time.Time {
	now = now.UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
