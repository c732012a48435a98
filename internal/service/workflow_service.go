package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/lock"
)

const requestedDateLayout = "2006-01-02"

type trainingRequestStore interface {
	Create(ctx context.Context, req *models.TrainingRequest) error
	GetByID(ctx context.Context, id string) (*models.TrainingRequest, error)
	UpdateTransition(ctx context.Context, params models.TransitionUpdate) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// NotificationSink accepts routed notification tasks. Dispatch must not block on delivery.
type NotificationSink interface {
	Dispatch(ctx context.Context, task workflow.NotificationTask) error
}

// TransitionCommand is a caller-requested status change.
type TransitionCommand struct {
	Action    workflow.Action
	TrainerID string
	Reason    string
}

// WorkflowService is the only mutation path for training request status.
type WorkflowService struct {
	store      trainingRequestStore
	audit      auditLogger
	users      userLookup
	graph      *workflow.StatusGraph
	authority  *workflow.Authority
	router     *workflow.Router
	sink       NotificationSink
	locker     lock.Locker
	lockWait   time.Duration
	maxRetries int
	cache      cacheInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// WorkflowServiceOption configures the service.
type WorkflowServiceOption func(*WorkflowService)

// WithWorkflowSink sets the notification sink.
func WithWorkflowSink(sink NotificationSink) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.sink = sink
	}
}

// WithWorkflowLocker overrides the per-request locker and how long to wait for it.
func WithWorkflowLocker(locker lock.Locker, wait time.Duration) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if locker != nil {
			s.locker = locker
		}
		if wait > 0 {
			s.lockWait = wait
		}
	}
}

// WithWorkflowMaxConflictRetries bounds reloads after a version conflict.
func WithWorkflowMaxConflictRetries(n int) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithWorkflowUsers enables trainer verification for administrative assignments.
func WithWorkflowUsers(users userLookup) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.users = users
	}
}

// WithWorkflowCache invalidates cached dashboards after each transition.
func WithWorkflowCache(cache cacheInvalidator) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.cache = cache
	}
}

// WithWorkflowMetrics records transition metrics.
func WithWorkflowMetrics(metrics *MetricsService) WorkflowServiceOption {
	return func(s *WorkflowService) {
		s.metrics = metrics
	}
}

// WithWorkflowClock overrides the clock used to stamp transitions.
func WithWorkflowClock(now func() time.Time) WorkflowServiceOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewWorkflowService constructs the engine around the given store.
func NewWorkflowService(store trainingRequestStore, audit auditLogger, authority *workflow.Authority, validate *validator.Validate, logger *zap.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if authority == nil {
		authority = workflow.NewAuthority(nil)
	}
	svc := &WorkflowService{
		store:      store,
		audit:      audit,
		graph:      authority.Graph(),
		authority:  authority,
		router:     workflow.NewRouter(authority),
		locker:     lock.NewLocalLocker(),
		lockWait:   3 * time.Second,
		maxRetries: 3,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit creates a request; the requester's role fixes the approval path and initial status.
func (s *WorkflowService) Submit(ctx context.Context, req dto.SubmitTrainingRequest, actor workflow.Actor) (*models.TrainingRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training request payload")
	}
	if !actor.Role.Valid() || actor.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not permitted for your role")
	}
	requestedDate, err := time.Parse(requestedDateLayout, req.RequestedDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "requestedDate must use YYYY-MM-DD")
	}

	path := workflow.PathForRole(actor.Role)
	status, ok := s.graph.InitialStatus(path)
	if !ok {
		return nil, s.mapError(fmt.Errorf("%w: no initial status for %s", workflow.ErrInvalidTransition, path))
	}

	now := s.now()
	record := &models.TrainingRequest{
		Title:           "Training request - " + strings.TrimSpace(req.Specialization),
		Description:     optionalString(req.Description),
		RequesterID:     actor.UserID,
		RequesterRole:   actor.Role,
		ApprovalPath:    path,
		Status:          status,
		Specialization:  strings.TrimSpace(req.Specialization),
		Province:        strings.TrimSpace(req.Province),
		Center:          optionalString(req.Center),
		RequestedDate:   requestedDate,
		DurationHours:   req.DurationHours,
		MaxParticipants: req.MaxParticipants,
		Notes:           optionalString(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create training request")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRequestSubmit,
		Resource:   models.AuditResourceTrainingRequest,
		ResourceID: &record.ID,
		NewValues:  marshalAuditValues(record),
	})
	s.publish(ctx, workflow.NewTransitionEvent(record, "", workflow.ActionSubmit, actor))
	return record, nil
}

// Advance moves the request one step along its path.
func (s *WorkflowService) Advance(ctx context.Context, requestID string, actor workflow.Actor) (*models.TrainingRequest, error) {
	return s.ApplyTransition(ctx, requestID, TransitionCommand{Action: workflow.ActionAdvance}, actor)
}

// Reject terminates the request.
func (s *WorkflowService) Reject(ctx context.Context, requestID, reason string, actor workflow.Actor) (*models.TrainingRequest, error) {
	return s.ApplyTransition(ctx, requestID, TransitionCommand{Action: workflow.ActionReject, Reason: reason}, actor)
}

// AssignTrainer sets the trainer and moves the request to tr_assigned in one write.
func (s *WorkflowService) AssignTrainer(ctx context.Context, requestID, trainerID string, actor workflow.Actor) (*models.TrainingRequest, error) {
	return s.ApplyTransition(ctx, requestID, TransitionCommand{Action: workflow.ActionAssignTrainer, TrainerID: trainerID}, actor)
}

// ApplyTransition validates and persists one transition while holding the request lock.
// A version conflict reloads the request and re-runs every check before retrying.
func (s *WorkflowService) ApplyTransition(ctx context.Context, requestID string, cmd TransitionCommand, actor workflow.Actor) (*models.TrainingRequest, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request id is required")
	}
	if !actor.Role.Valid() {
		return nil, s.mapError(fmt.Errorf("%w: unknown role %q", workflow.ErrUnauthorized, actor.Role))
	}

	release, err := s.acquire(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer release()

	for attempt := 0; ; attempt++ {
		current, err := s.store.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "training request not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
		}

		update, action, err := s.plan(current, cmd, actor)
		if err != nil {
			return nil, s.mapError(err)
		}
		if action == workflow.ActionAssignTrainer {
			if err := s.verifyTrainer(ctx, *update.AssignedTrainerID, actor); err != nil {
				return nil, err
			}
		}

		err = s.store.UpdateTransition(ctx, update)
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordConflict()
			if attempt >= s.maxRetries {
				return nil, appErrors.Clone(appErrors.ErrConflict, "training request was modified concurrently, retry")
			}
			s.logger.Debug("transition version conflict, reloading",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist transition")
		}

		updated := applyUpdate(current, update)
		s.afterCommit(ctx, current, updated, action, actor)
		return updated, nil
	}
}

// plan computes the single write for cmd against req. It performs no I/O.
func (s *WorkflowService) plan(req *models.TrainingRequest, cmd TransitionCommand, actor workflow.Actor) (models.TransitionUpdate, workflow.Action, error) {
	update := models.TransitionUpdate{
		ID:              req.ID,
		ExpectedVersion: req.Version,
		UpdatedAt:       s.now(),
	}
	if s.graph.IsTerminal(req.Status) {
		return update, cmd.Action, fmt.Errorf("%w: request %s is %s", workflow.ErrInvalidState, req.ID, req.Status)
	}
	if !s.graph.IsValidStatus(req.ApprovalPath, req.Status) {
		return update, cmd.Action, fmt.Errorf("%w: status %s is not on path %s", workflow.ErrInvalidTransition, req.Status, req.ApprovalPath)
	}

	action := cmd.Action
	trainerID := strings.TrimSpace(cmd.TrainerID)
	switch action {
	case workflow.ActionReject:
		if !s.authority.Permits(actor, action, req, "") {
			return update, action, fmt.Errorf("%w: %s may not reject at %s", workflow.ErrUnauthorized, actor.Role, req.Status)
		}
		update.Status = models.StatusRejected
		update.RejectionReason = optionalString(cmd.Reason)
		return update, action, nil

	case workflow.ActionAdvance:
		if !s.authority.Permits(actor, action, req, "") {
			return update, action, fmt.Errorf("%w: %s may not advance %s/%s", workflow.ErrUnauthorized, actor.Role, req.ApprovalPath, req.Status)
		}
		if req.Status == models.StatusPMApproved {
			// Leaving pm_approved needs a trainer; a trainer advancing claims the request.
			if actor.Role != models.RoleTrainer {
				return update, action, fmt.Errorf("%w: pm_approved advances only through trainer assignment", workflow.ErrInvalidTransition)
			}
			action = workflow.ActionAssignTrainer
			trainerID = actor.UserID
			break
		}
		next, ok := s.graph.NextStatus(req.ApprovalPath, req.Status)
		if !ok {
			return update, action, fmt.Errorf("%w: no successor for %s/%s", workflow.ErrInvalidTransition, req.ApprovalPath, req.Status)
		}
		update.Status = next
		return update, action, nil

	case workflow.ActionAssignTrainer:
		if req.Status != models.StatusPMApproved {
			return update, action, fmt.Errorf("%w: trainer assignment requires pm_approved, got %s", workflow.ErrInvalidTransition, req.Status)
		}
		if trainerID == "" && actor.Role == models.RoleTrainer {
			trainerID = actor.UserID
		}

	default:
		return update, action, fmt.Errorf("%w: unknown action %q", workflow.ErrInvalidTransition, action)
	}

	if !s.authority.Permits(actor, workflow.ActionAssignTrainer, req, trainerID) {
		return update, action, fmt.Errorf("%w: %s may not assign trainer %q", workflow.ErrUnauthorized, actor.Role, trainerID)
	}
	next, ok := s.graph.NextStatus(req.ApprovalPath, req.Status)
	if !ok || next != models.StatusTrainerAssigned {
		return update, action, fmt.Errorf("%w: no trainer step after %s/%s", workflow.ErrInvalidTransition, req.ApprovalPath, req.Status)
	}
	update.Status = next
	update.AssignedTrainerID = &trainerID
	return update, action, nil
}

func (s *WorkflowService) verifyTrainer(ctx context.Context, trainerID string, actor workflow.Actor) error {
	// A trainer can only claim for themselves; Authority already pinned trainerID to the caller.
	if s.users == nil || actor.Role == models.RoleTrainer {
		return nil
	}
	user, err := s.users.FindByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "trainer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer")
	}
	if user.Role != models.RoleTrainer || !user.Active {
		return appErrors.Clone(appErrors.ErrValidation, "assignee must be an active trainer")
	}
	return nil
}

func (s *WorkflowService) acquire(ctx context.Context, requestID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	start := time.Now()
	release, err := s.locker.Acquire(lockCtx, "training_request:"+requestID)
	s.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) || errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "training request is busy, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock training request")
	}
	return release, nil
}

func (s *WorkflowService) afterCommit(ctx context.Context, before, after *models.TrainingRequest, action workflow.Action, actor workflow.Actor) {
	s.metrics.RecordTransition(after.ApprovalPath, before.Status, after.Status, string(action))
	s.logger.Info("training request transitioned",
		zap.String("request_id", after.ID),
		zap.String("path", string(after.ApprovalPath)),
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)),
		zap.String("action", string(action)),
		zap.String("role", string(actor.Role)))

	actorID := actor.UserID
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionRequestTransition,
		Resource:   models.AuditResourceTrainingRequest,
		ResourceID: &after.ID,
		OldValues:  marshalAuditValues(map[string]interface{}{"status": before.Status, "version": before.Version}),
		NewValues: marshalAuditValues(map[string]interface{}{
			"status":              after.Status,
			"version":             after.Version,
			"action":              action,
			"assigned_trainer_id": after.AssignedTrainerID,
		}),
	})
	s.publish(ctx, workflow.NewTransitionEvent(after, before.Status, action, actor))
}

// publish routes the event and hands it to the sink. Failures never reach the caller.
func (s *WorkflowService) publish(ctx context.Context, event workflow.TransitionEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cacheKeyDashboard+event.RequesterID); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.String("user_id", event.RequesterID), zap.Error(err))
		}
	}
	if s.sink == nil {
		return
	}
	task, err := s.router.Route(event)
	if err != nil {
		s.metrics.RecordNotification(NotificationOutcomeUnrouted)
		s.logger.Error("notification route missing", zap.String("request_id", event.RequestID), zap.Error(err))
		return
	}
	if err := s.sink.Dispatch(ctx, *task); err != nil {
		s.metrics.RecordNotification(NotificationOutcomeDropped)
		s.logger.Warn("notification dispatch failed",
			zap.String("request_id", event.RequestID),
			zap.String("to_status", string(event.ToStatus)),
			zap.Error(err))
	}
}

func (s *WorkflowService) mapError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrInvalidState):
		return appErrors.Wrap(err, appErrors.ErrInvalidState.Code, appErrors.ErrInvalidState.Status, "already finalized")
	case errors.Is(err, workflow.ErrUnauthorized):
		return appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "not permitted for your role")
	case errors.Is(err, workflow.ErrInvalidTransition):
		s.logger.Error("invalid workflow transition", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status, "unexpected workflow error")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unexpected workflow error")
	}
}

func (s *WorkflowService) emitAudit(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil || entry == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func applyUpdate(req *models.TrainingRequest, update models.TransitionUpdate) *models.TrainingRequest {
	out := *req
	out.Status = update.Status
	if update.AssignedTrainerID != nil {
		trainer := *update.AssignedTrainerID
		out.AssignedTrainerID = &trainer
	}
	if update.RejectionReason != nil {
		reason := *update.RejectionReason
		out.RejectionReason = &reason
	}
	out.Version = update.ExpectedVersion + 1
	out.UpdatedAt = update.UpdatedAt
	return &out
}

func marshalAuditValues(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
