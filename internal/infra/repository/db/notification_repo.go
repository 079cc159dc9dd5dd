package db

import (
	"context"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/pkg/errors"
)

type NotificationRepo struct {
	db *DbDao
}

func NewNotificationRepo(db *DbDao) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) CreateNotification(ctx context.Context, notification *model.Notification) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(notification).Error, "create notification")
}
