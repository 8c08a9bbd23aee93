package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wms-platform/outbound-service/internal/domain"
	apperrors "github.com/wms-platform/outbound-service/pkg/errors"
	"github.com/wms-platform/outbound-service/pkg/logging"
	"github.com/wms-platform/outbound-service/pkg/metrics"
)

// ErrSessionNotFound is returned by SessionStore implementations when no
// session exists for the given id
var ErrSessionNotFound = errors.New("session not found")

// SessionStore holds live dispatch sessions. Update runs the mutation under
// the store's lock for that session. Get and Update return snapshots; the
// live session must never escape the store's lock.
type SessionStore interface {
	Create(ctx context.Context, session *domain.DispatchSession) error
	Get(ctx context.Context, sessionID string) (*domain.DispatchSession, error)
	Update(ctx context.Context, sessionID string, fn func(*domain.DispatchSession) error) (*domain.DispatchSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// DispatchOutcome classifies a dispatch batch result
type DispatchOutcome string

const (
	DispatchAllSucceeded   DispatchOutcome = "ALL_SUCCEEDED"
	DispatchPartialFailure DispatchOutcome = "PARTIAL_FAILURE"
	DispatchRejected       DispatchOutcome = "REJECTED"
)

// PickingService drives the picking overview and the dispatch workflow
type PickingService struct {
	tasks    domain.TaskBackend
	sessions SessionStore
	events   domain.EventPublisher
	metrics  *metrics.Metrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewPickingService creates the picking service
func NewPickingService(
	tasks domain.TaskBackend,
	sessions SessionStore,
	events domain.EventPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *PickingService {
	return &PickingService{
		tasks:    tasks,
		sessions: sessions,
		events:   events,
		metrics:  m,
		logger:   logger.WithComponent("picking-service"),
		now:      time.Now,
	}
}

// GetOverview assembles the worker's picking overview. The three backend
// reads are independent and run concurrently; any failure fails the whole
// overview.
func (s *PickingService) GetOverview(ctx context.Context, query GetOverviewQuery) (*OverviewDTO, error) {
	if query.UserID <= 0 {
		return nil, apperrors.ErrValidation("userId must be a positive integer")
	}

	var (
		pickingTasks    []domain.Task
		dispatchedTasks []domain.Task
		stats           domain.PickingStatistics
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pickingTasks, err = s.tasks.ListPickingTasks(gctx, query.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		dispatchedTasks, err = s.tasks.ListDispatchedTasks(gctx, query.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.tasks.GetPickingStatistics(gctx, query.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load picking overview", "userId", query.UserID, "error", err)
		return nil, err
	}

	now := s.now()
	return &OverviewDTO{
		PickLists:       toPickListDTOs(domain.GroupTasksByShipment(pickingTasks), now),
		DispatchedTasks: toTaskDTOs(dispatchedTasks),
		Statistics:      stats,
	}, nil
}

// OpenSession starts a dispatch session for one shipment's pick list
func (s *PickingService) OpenSession(ctx context.Context, cmd OpenSessionCommand) (*SessionDTO, error) {
	if cmd.UserID <= 0 {
		return nil, apperrors.ErrValidation("userId must be a positive integer")
	}

	pickList, err := s.loadPickList(ctx, cmd.UserID, cmd.ShipmentID)
	if err != nil {
		return nil, err
	}
	if pickList == nil {
		return nil, apperrors.ErrNotFoundWithID("pick list", domain.FormatPickListID(cmd.ShipmentID, 0))
	}

	session := domain.NewDispatchSession(uuid.NewString(), cmd.UserID, *pickList)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("dispatch session opened",
		"sessionId", session.ID, "userId", cmd.UserID, "shipmentId", cmd.ShipmentID)

	dto := toSessionDTO(session, s.now())
	return &dto, nil
}

// GetSession returns the current session view
func (s *PickingService) GetSession(ctx context.Context, query GetSessionQuery) (*SessionDTO, error) {
	session, err := s.sessions.Get(ctx, query.SessionID)
	if err != nil {
		return nil, s.mapStoreError(err, query.SessionID)
	}
	dto := toSessionDTO(session, s.now())
	return &dto, nil
}

// SetSelection replaces the session's selection set, or selects every open
// task when SelectAll is set
func (s *PickingService) SetSelection(ctx context.Context, cmd SetSelectionCommand) (*SessionDTO, error) {
	session, err := s.sessions.Update(ctx, cmd.SessionID, func(ds *domain.DispatchSession) error {
		if cmd.SelectAll {
			return ds.SelectAll()
		}
		return ds.SetSelection(cmd.TaskIDs)
	})
	if err != nil {
		return nil, s.mapStoreError(err, cmd.SessionID)
	}
	dto := toSessionDTO(session, s.now())
	return &dto, nil
}

// Dispatch runs the dispatch batch for the session's current selection.
//
// The batch is all-or-nothing only at validation time: once it starts, each
// task is completed independently and one failure never aborts the rest. The
// authoritative task list is re-fetched after every batch, success or not,
// and the session reconciles against it. Rejections are reported as a
// REJECTED outcome, not an error, so the caller always gets the structured
// result.
func (s *PickingService) Dispatch(ctx context.Context, cmd DispatchCommand) (*DispatchResultDTO, error) {
	start := s.now()

	var (
		batch    []int64
		userID   int64
		shipment int64
		snapshot domain.PickList
	)
	_, err := s.sessions.Update(ctx, cmd.SessionID, func(ds *domain.DispatchSession) error {
		ids, beginErr := ds.BeginDispatch()
		if beginErr != nil {
			return beginErr
		}
		batch = ids
		userID = ds.UserID
		shipment = ds.ShipmentID
		snapshot = ds.PickList
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, s.mapStoreError(err, cmd.SessionID)
		}
		s.metrics.RecordDispatchBatch("rejected", s.now().Sub(start))
		s.logger.Warn("dispatch batch rejected", "sessionId", cmd.SessionID, "reason", err.Error())
		return &DispatchResultDTO{Outcome: DispatchRejected, Reason: err.Error()}, nil
	}

	s.logger.Info("dispatch batch started",
		"sessionId", cmd.SessionID, "userId", userID, "shipmentId", shipment, "taskCount", len(batch))

	var failed []FailedTaskDTO
	failedIDs := make([]int64, 0)
	for _, taskID := range batch {
		task, _ := snapshot.FindTask(taskID)
		if err := s.tasks.CompleteTask(ctx, taskID, userID); err != nil {
			s.metrics.RecordTaskDispatch(false)
			s.logger.Error("task dispatch failed",
				"sessionId", cmd.SessionID, "taskId", taskID, "error", err)
			failed = append(failed, FailedTaskDTO{
				TaskID:   taskID,
				TaskName: task.DisplayName(),
				Error:    dispatchErrorMessage(err),
			})
			failedIDs = append(failedIDs, taskID)
			continue
		}
		s.metrics.RecordTaskDispatch(true)
		s.publishTaskDispatched(ctx, task, shipment, userID)
	}

	result := &DispatchResultDTO{Failed: failed}
	if len(failed) == 0 {
		result.Outcome = DispatchAllSucceeded
	} else {
		result.Outcome = DispatchPartialFailure
	}

	// Refresh runs regardless of batch outcome so the session never keeps a
	// view the backend has moved past.
	session, refreshErr := s.reconcileAfterBatch(ctx, cmd.SessionID, userID, shipment, failedIDs)
	if refreshErr != nil {
		result.RefreshError = refreshErr.Error()
	}
	if session != nil {
		dto := toSessionDTO(session, s.now())
		result.Session = &dto
	}

	s.metrics.RecordDispatchBatch(outcomeLabel(result.Outcome), s.now().Sub(start))
	s.logger.Info("dispatch batch finished",
		"sessionId", cmd.SessionID, "outcome", string(result.Outcome),
		"dispatched", len(batch)-len(failed), "failed", len(failed))

	return result, nil
}

// RefreshSession re-fetches the authoritative task list and reconciles the
// session against it, clearing a stale flag left by a failed post-batch
// refresh
func (s *PickingService) RefreshSession(ctx context.Context, cmd RefreshSessionCommand) (*SessionDTO, error) {
	session, err := s.sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		return nil, s.mapStoreError(err, cmd.SessionID)
	}

	pickList, err := s.loadPickList(ctx, session.UserID, session.ShipmentID)
	if err != nil {
		return nil, err
	}

	session, err = s.sessions.Update(ctx, cmd.SessionID, func(ds *domain.DispatchSession) error {
		return ds.ApplyRefresh(pickList)
	})
	if err != nil {
		return nil, s.mapStoreError(err, cmd.SessionID)
	}

	dto := toSessionDTO(session, s.now())
	return &dto, nil
}

// CloseSession ends and removes a session. Closing an already-removed
// session is not an error.
func (s *PickingService) CloseSession(ctx context.Context, cmd CloseSessionCommand) error {
	_, err := s.sessions.Update(ctx, cmd.SessionID, func(ds *domain.DispatchSession) error {
		ds.Close()
		return nil
	})
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	if err := s.sessions.Delete(ctx, cmd.SessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	s.logger.Info("dispatch session closed", "sessionId", cmd.SessionID)
	return nil
}

func (s *PickingService) loadPickList(ctx context.Context, userID, shipmentID int64) (*domain.PickList, error) {
	tasks, err := s.tasks.ListPickingTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.FindPickList(domain.GroupTasksByShipment(tasks), shipmentID), nil
}

func (s *PickingService) reconcileAfterBatch(ctx context.Context, sessionID string, userID, shipmentID int64, failedIDs []int64) (*domain.DispatchSession, error) {
	pickList, refreshErr := s.loadPickList(ctx, userID, shipmentID)
	if refreshErr != nil {
		s.logger.Error("post-batch refresh failed",
			"sessionId", sessionID, "error", refreshErr)
		session, err := s.sessions.Update(ctx, sessionID, func(ds *domain.DispatchSession) error {
			return ds.FinishDispatchStale(failedIDs)
		})
		if err != nil {
			return nil, refreshErr
		}
		return session, refreshErr
	}

	session, err := s.sessions.Update(ctx, sessionID, func(ds *domain.DispatchSession) error {
		return ds.FinishDispatch(pickList, failedIDs)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *PickingService) publishTaskDispatched(ctx context.Context, task domain.Task, shipmentID, userID int64) {
	if s.events == nil {
		return
	}
	event := domain.TaskDispatchedEvent{
		TaskID:       task.ID,
		ShipmentID:   shipmentID,
		UserID:       userID,
		SKUCode:      task.SKUCode,
		Quantity:     task.Quantity,
		DispatchedAt: s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish task dispatched event",
			"taskId", task.ID, "error", err)
	}
}

func (s *PickingService) mapStoreError(err error, sessionID string) error {
	if errors.Is(err, ErrSessionNotFound) {
		return apperrors.ErrNotFoundWithID("dispatch session", sessionID)
	}
	return err
}

// dispatchErrorMessage extracts a human-readable message for a per-task
// failure, falling back to "unknown error" rather than an empty string
func dispatchErrorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unknown error"
}

func outcomeLabel(outcome DispatchOutcome) string {
	switch outcome {
	case DispatchAllSucceeded:
		return "all_succeeded"
	case DispatchPartialFailure:
		return "partial_failure"
	default:
		return "rejected"
	}
}
