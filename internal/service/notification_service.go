package service

import (
	"context"
	"strings"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/RoyceAzure/lab/retail/internal/pkg/tracing"
	"github.com/rs/zerolog/log"
)

type NotificationPublisher interface {
	PublishNotification(ctx context.Context, notification *model.Notification) error
}

// NotificationService 寫入通知後推送到 kafka，推送失敗不影響寫入結果
type NotificationService struct {
	store     db.Store
	publisher NotificationPublisher
	options
}

func NewNotificationService(store db.Store, publisher NotificationPublisher, opts ...Option) *NotificationService {
	return &NotificationService{
		store:     store,
		publisher: publisher,
		options:   buildOptions(opts),
	}
}

func (s *NotificationService) Create(ctx context.Context, title, message, notificationType string) (id int64, err error) {
	ctx, span := tracing.Start(ctx, "NotificationService.Create")
	defer tracing.End(span, &err)

	if strings.TrimSpace(title) == "" {
		return 0, apperr.New(apperr.ErrValidation, "notification title must not be blank")
	}
	if strings.TrimSpace(notificationType) == "" {
		return 0, apperr.New(apperr.ErrValidation, "notification type must not be blank")
	}

	now := s.utcNow()
	n := &model.Notification{
		Code:      s.codes.NotificationCode(now),
		Title:     title,
		Message:   message,
		Type:      notificationType,
		CreatedAt: now,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return 0, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, n); err != nil {
			s.metrics.SideEffectFailed("notification_publish")
			log.Warn().Err(err).Int64("notification_id", n.ID).Str("code", n.Code).Msg("publish notification failed")
		}
	}
	return n.ID, nil
}

var _ Notifier = (*NotificationService)(nil)
