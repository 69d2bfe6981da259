// Package scheduler owns the lifecycle of deferred and recurring notifications:
//
//	pending -> processing -> sent
//	                      -> pending (recurring, next occurrence)
//	                      -> failed
//	pending -> cancelled
//
// Every transition is a conditional store update keyed on the expected status,
// so concurrent ProcessDue calls never dispatch the same entry twice.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/school-notify/internal/application/dispatch"
	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/pkg/id"
)

type Service interface {
	Schedule(ctx context.Context, req domain.CreateScheduledRequest, createdBy string) (*domain.ScheduledNotification, error)
	Get(ctx context.Context, id string) (*domain.ScheduledNotification, error)
	List(ctx context.Context, status domain.ScheduledStatus, limit int) ([]domain.ScheduledNotification, error)
	ProcessDue(ctx context.Context, limit int) (*Report, error)
	Cancel(ctx context.Context, id, byUser string) (bool, error)
}

// Store persists scheduled notifications. Transition must apply the change
// only while the stored status equals from, and return
// domain.ErrClaimConflict otherwise.
type Store interface {
	Put(ctx context.Context, n *domain.ScheduledNotification) error
	Get(ctx context.Context, id string) (*domain.ScheduledNotification, error)
	List(ctx context.Context, status domain.ScheduledStatus, limit int) ([]domain.ScheduledNotification, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledNotification, error)
	Transition(ctx context.Context, id string, from domain.ScheduledStatus, change domain.StatusChange) error
}

type Dispatcher interface {
	Send(ctx context.Context, req dispatch.Request) (*domain.DispatchResult, error)
}

// Report summarizes one ProcessDue batch. Errors is keyed by entry id.
type Report struct {
	Processed int               `json:"processed"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (r *Report) fail(id, reason string) {
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[id] = reason
}

// FinishTimeout bounds the status update that closes a claimed entry.
const FinishTimeout = 10 * time.Second

type Deps struct {
	Store      Store
	Dispatcher Dispatcher
	Registry   domain.TypeRegistry
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Engine struct {
	store      Store
	dispatcher Dispatcher
	registry   domain.TypeRegistry
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	onSchedule func()
}

func NewEngine(deps Deps) *Engine {
	e := &Engine{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		registry:   deps.Registry,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// SetOnSchedule registers a callback run after every successful Schedule.
func (e *Engine) SetOnSchedule(fn func()) {
	e.mu.Lock()
	e.onSchedule = fn
	e.mu.Unlock()
}

// Schedule validates and stores a new pending entry. An unknown type, a
// malformed schedule or a one-time datetime that is not in the future fails
// and nothing is stored.
func (e *Engine) Schedule(ctx context.Context, req domain.CreateScheduledRequest, createdBy string) (*domain.ScheduledNotification, error) {
	def, ok := e.registry.Lookup(req.Type)
	if !ok {
		return nil, fmt.Errorf("%q: %w", req.Type, domain.ErrUnknownType)
	}
	channels, err := domain.ParseChannels(req.Channels)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		channels = def.Channels
	}
	now := e.now().UTC()
	scheduledAt, err := req.Schedule.FirstRun(now)
	if err != nil {
		return nil, err
	}

	n := &domain.ScheduledNotification{
		ID:          id.New(),
		Name:        req.Name,
		Type:        req.Type,
		Channels:    channels,
		Recipients:  req.Recipients,
		Data:        req.Data,
		Schedule:    req.Schedule,
		ScheduledAt: scheduledAt,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if createdBy != "" {
		n.CreatedBy = &createdBy
	}
	if err := e.store.Put(ctx, n); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "notification scheduled", "scheduled_id", n.ID, "type", n.Type, "scheduled_at", n.ScheduledAt)

	e.mu.Lock()
	fn := e.onSchedule
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return n, nil
}

func (e *Engine) Get(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	return e.store.Get(ctx, id)
}

func (e *Engine) List(ctx context.Context, status domain.ScheduledStatus, limit int) ([]domain.ScheduledNotification, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, domain.ErrBadRequest)
	}
	return e.store.List(ctx, status, limit)
}

// NextDue returns the earliest pending scheduled time, if any.
func (e *Engine) NextDue(ctx context.Context) (time.Time, bool, error) {
	pending, err := e.store.List(ctx, domain.StatusPending, 1)
	if err != nil || len(pending) == 0 {
		return time.Time{}, false, err
	}
	return pending[0].ScheduledAt, true, nil
}

// ProcessDue claims and dispatches up to limit due entries. One entry's
// failure never stops the batch; entries claimed by a concurrent run are
// counted as skipped.
func (e *Engine) ProcessDue(ctx context.Context, limit int) (*Report, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", domain.ErrBadRequest)
	}
	due, err := e.store.ListDue(ctx, e.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}

	report := &Report{}
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		e.processOne(ctx, &due[i], report)
	}
	if report.Processed > 0 || report.Skipped > 0 {
		e.logger.InfoContext(ctx, "scheduled notifications processed",
			"processed", report.Processed,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"skipped", report.Skipped,
		)
	}
	return report, nil
}

func (e *Engine) processOne(ctx context.Context, n *domain.ScheduledNotification, report *Report) {
	err := e.store.Transition(ctx, n.ID, domain.StatusPending, domain.StatusChange{
		Status:    domain.StatusProcessing,
		UpdatedAt: e.now().UTC(),
	})
	if errors.Is(err, domain.ErrClaimConflict) {
		report.Skipped++
		return
	}
	if err != nil {
		report.fail(n.ID, fmt.Sprintf("claim: %v", err))
		e.logger.ErrorContext(ctx, "claim scheduled notification", "scheduled_id", n.ID, "err", err)
		return
	}
	report.Processed++

	// A claimed entry must leave processing even when the caller goes away
	// mid-dispatch, otherwise ListDue never sees it again.
	work := context.WithoutCancel(ctx)

	runCount := n.RunCount + 1
	result, dispatchErr := e.dispatch(work, n, runCount)
	finished := e.now().UTC()
	change := domain.StatusChange{
		LastRunAt: &finished,
		RunCount:  &runCount,
		UpdatedAt: finished,
	}

	if reason := failureReason(result, dispatchErr); reason != "" {
		change.Status = domain.StatusFailed
		change.FailureReason = &reason
		report.Failed++
		report.fail(n.ID, reason)
		e.logger.WarnContext(ctx, "scheduled notification failed", "scheduled_id", n.ID, "reason", reason)
	} else {
		report.Succeeded++
		change.Status = domain.StatusSent
		if n.Schedule.Recurring() {
			// The next occurrence is computed from the processing time, not
			// from the previous scheduled_at.
			next, err := n.Schedule.Next(finished)
			if err == nil {
				change.Status = domain.StatusPending
				change.ScheduledAt = &next
			}
		}
	}

	finishCtx, cancel := context.WithTimeout(work, FinishTimeout)
	defer cancel()
	if err := e.store.Transition(finishCtx, n.ID, domain.StatusProcessing, change); err != nil {
		report.fail(n.ID, fmt.Sprintf("finish: %v", err))
		e.logger.ErrorContext(ctx, "finish scheduled notification", "scheduled_id", n.ID, "status", change.Status, "err", err)
	}
}

// dispatch runs one occurrence. A panic in the dispatcher is returned as an error.
func (e *Engine) dispatch(ctx context.Context, n *domain.ScheduledNotification, run int) (res *domain.DispatchResult, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("dispatch panic: %v", v)
		}
	}()
	return e.dispatcher.Send(ctx, dispatch.Request{
		Type:       n.Type,
		Recipients: n.Recipients,
		Channels:   n.Channels,
		Data:       n.Data,
		OriginID:   fmt.Sprintf("%s:%d", n.ID, run),
	})
}

// failureReason is empty when the occurrence counts as delivered: no error
// and at least one pair succeeded (or nothing was attempted).
func failureReason(res *domain.DispatchResult, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case res == nil:
		return "dispatcher returned no result"
	case res.Attempted > 0 && res.Succeeded == 0:
		reason := fmt.Sprintf("all %d deliveries failed", res.Attempted)
		if len(res.Results) > 0 && res.Results[0].Error != "" {
			reason += ": " + res.Results[0].Error
		}
		return reason
	}
	return ""
}

// Cancel moves a pending entry to cancelled. When byUser is set, only entries
// created by that user are visible. It reports false when the entry is no
// longer pending.
func (e *Engine) Cancel(ctx context.Context, id, byUser string) (bool, error) {
	n, err := e.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if byUser != "" && (n.CreatedBy == nil || *n.CreatedBy != byUser) {
		return false, fmt.Errorf("scheduled notification not found: %w", domain.ErrNotFound)
	}
	if n.Status != domain.StatusPending {
		return false, nil
	}
	err = e.store.Transition(ctx, id, domain.StatusPending, domain.StatusChange{
		Status:    domain.StatusCancelled,
		UpdatedAt: e.now().UTC(),
	})
	if errors.Is(err, domain.ErrClaimConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	e.logger.InfoContext(ctx, "scheduled notification cancelled", "scheduled_id", id)
	return true, nil
}
