package producer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/kafka/producer"
)

// OrderEventProducer 訂單事件以訂單編號為 key，同一張訂單的事件落在同一分區
type OrderEventProducer struct {
	producer producer.Producer
}

func NewOrderEventProducer(producer producer.Producer) *OrderEventProducer {
	return &OrderEventProducer{producer: producer}
}

func (p *OrderEventProducer) PublishOrderEvent(ctx context.Context, event *model.OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := producer.Message{
		Key:   []byte(event.OrderNumber),
		Value: value,
		Headers: []producer.Header{
			{Key: headerEventType, Value: []byte(event.Type)},
			{Key: headerTimestamp, Value: []byte(strconv.FormatInt(event.OccurredAt.UnixMilli(), 10))},
		},
		Time: event.OccurredAt,
	}
	return p.producer.Produce(ctx, []producer.Message{msg})
}
