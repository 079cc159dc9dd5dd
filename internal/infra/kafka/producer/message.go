package producer

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// Header 代表 Kafka 消息的標頭
type Header struct {
	Key   string
	Value []byte
}

// Message 代表一個 Kafka 消息
// 相同的 Key 會被分配到相同的分區，用來保證同一實體的事件順序
type Message struct {
	Key     []byte
	Value   []byte
	Headers []Header
	Time    time.Time
}

// ToKafkaMessage converts our Message to kafka-go Message
func (m *Message) ToKafkaMessage() kafka.Message {
	headers := make([]kafka.Header, len(m.Headers))
	for i, h := range m.Headers {
		headers[i] = kafka.Header{
			Key:   h.Key,
			Value: h.Value,
		}
	}

	return kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
		Time:    m.Time,
	}
}

// HeaderValue 取得指定 key 的標頭
func (m *Message) HeaderValue(key string) (string, bool) {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
