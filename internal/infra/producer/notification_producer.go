package producer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/kafka/producer"
)

const (
	headerEventType = "event_type"
	headerTimestamp = "timestamp"
)

// NotificationProducer 將通知推送到通知 topic
type NotificationProducer struct {
	producer producer.Producer
}

func NewNotificationProducer(producer producer.Producer) *NotificationProducer {
	return &NotificationProducer{producer: producer}
}

func (p *NotificationProducer) PublishNotification(ctx context.Context, notification *model.Notification) error {
	value, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	msg := producer.Message{
		Key:   []byte(notification.Code),
		Value: value,
		Headers: []producer.Header{
			{Key: headerEventType, Value: []byte("notification." + notification.Type)},
			{Key: headerTimestamp, Value: []byte(strconv.FormatInt(notification.CreatedAt.UnixMilli(), 10))},
		},
		Time: notification.CreatedAt,
	}
	return p.producer.Produce(ctx, []producer.Message{msg})
}
