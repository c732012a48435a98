package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/jobs"
)

// Notification outcomes reported to metrics.
const (
	NotificationOutcomeDelivered = "delivered"
	NotificationOutcomeFailed    = "failed"
	NotificationOutcomeDropped   = "dropped"
	NotificationOutcomeUnrouted  = "unrouted"
)

const notificationJobType = "notification.fanout"

type notificationStore interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type roleDirectory interface {
	ListActiveIDsByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

type notificationQueue interface {
	TryEnqueue(job jobs.Job) error
}

type valueCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// NotificationService fans routed tasks out to per-user inbox rows and serves the inbox.
type NotificationService struct {
	store       notificationStore
	directory   roleDirectory
	cache       valueCache
	audienceTTL time.Duration
	queue       notificationQueue
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NotificationServiceOption configures the service.
type NotificationServiceOption func(*NotificationService)

// WithAudienceCache caches role membership lookups for ttl.
func WithAudienceCache(cache valueCache, ttl time.Duration) NotificationServiceOption {
	return func(s *NotificationService) {
		s.cache = cache
		if ttl > 0 {
			s.audienceTTL = ttl
		}
	}
}

// WithNotificationMetrics records delivery outcomes.
func WithNotificationMetrics(metrics *MetricsService) NotificationServiceOption {
	return func(s *NotificationService) {
		s.metrics = metrics
	}
}

// NewNotificationService constructs the sink and inbox service.
func NewNotificationService(store notificationStore, directory roleDirectory, logger *zap.Logger, opts ...NotificationServiceOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		store:       store,
		directory:   directory,
		audienceTTL: 5 * time.Minute,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// AttachQueue sets the queue Dispatch enqueues onto. The queue's handler should be Handle.
func (s *NotificationService) AttachQueue(queue notificationQueue) {
	s.queue = queue
}

// Dispatch enqueues task without waiting for delivery.
func (s *NotificationService) Dispatch(_ context.Context, task workflow.NotificationTask) error {
	if s.queue == nil {
		return jobs.ErrQueueStopped
	}
	return s.queue.TryEnqueue(jobs.Job{
		ID:       uuid.NewString(),
		Type:     notificationJobType,
		Payload:  task,
		Enqueued: s.now(),
	})
}

// Handle is the queue handler delivering one task.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(workflow.NotificationTask)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return s.Deliver(ctx, task)
}

// OnDrop records a task that exhausted its retries.
func (s *NotificationService) OnDrop(job jobs.Job, err error) {
	s.metrics.RecordNotification(NotificationOutcomeFailed)
	task, _ := job.Payload.(workflow.NotificationTask)
	s.logger.Error("notification delivery failed",
		zap.String("job_id", job.ID),
		zap.String("request_id", task.RelatedRequestID),
		zap.Int("attempts", job.Attempt),
		zap.Error(err))
}

// Deliver resolves the task audience and writes one inbox row per recipient.
func (s *NotificationService) Deliver(ctx context.Context, task workflow.NotificationTask) error {
	userIDs, err := s.audience(ctx, task)
	if err != nil {
		return err
	}
	if len(userIDs) == 0 {
		s.logger.Warn("notification has no recipients",
			zap.String("request_id", task.RelatedRequestID),
			zap.String("audience_role", string(task.AudienceRole)))
		return nil
	}

	data := []byte("{}")
	if len(task.Payload) > 0 {
		raw, err := json.Marshal(task.Payload)
		if err != nil {
			return fmt.Errorf("marshal notification payload: %w", err)
		}
		data = raw
	}

	now := s.now()
	rows := make([]models.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     task.Title,
			Body:      task.Body,
			Type:      task.Type,
			Data:      data,
			CreatedAt: now,
		})
	}
	if err := s.store.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("persist notifications: %w", err)
	}
	s.metrics.RecordNotification(NotificationOutcomeDelivered)
	s.logger.Debug("notifications delivered",
		zap.String("request_id", task.RelatedRequestID),
		zap.Int("recipients", len(rows)))
	return nil
}

func (s *NotificationService) audience(ctx context.Context, task workflow.NotificationTask) ([]string, error) {
	ids := append([]string(nil), task.RecipientIDs...)
	if task.AudienceRole != "" {
		members, err := s.roleMembers(ctx, task.AudienceRole)
		if err != nil {
			return nil, err
		}
		ids = append(ids, members...)
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (s *NotificationService) roleMembers(ctx context.Context, role models.UserRole) ([]string, error) {
	key := cacheKeyAudience + string(role)
	if s.cache != nil {
		var cached []string
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	if s.directory == nil {
		return nil, nil
	}
	members, err := s.directory.ListActiveIDsByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("resolve role %s: %w", role, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, members, s.audienceTTL); err != nil {
			s.logger.Warn("failed to cache notification audience", zap.String("role", string(role)), zap.Error(err))
		}
	}
	return members, nil
}

// List returns the caller's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	items, total, err := s.store.List(ctx, models.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UnreadCount returns the number of unread rows for userID.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks one of the caller's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.store.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return updated, nil
}
