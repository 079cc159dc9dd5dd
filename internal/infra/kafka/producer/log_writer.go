package producer

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"
)

const (
	logWriterBuffer    = 1024
	logWriterBatchSize = 100
	logWriterFlush     = time.Second
)

// LogWriter 將 zerolog 的每一行輸出送到 kafka
// Write 不會阻塞，buffer 滿時直接丟棄並累計 Dropped
type LogWriter struct {
	producer Producer
	lines    chan []byte
	seq      atomic.Uint64
	dropped  atomic.Uint64
	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
}

func NewLogWriter(p Producer) *LogWriter {
	w := &LogWriter{
		producer: p,
		lines:    make(chan []byte, logWriterBuffer),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// Write zerolog 會重用 p，必須複製
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return len(p), nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	select {
	case w.lines <- line:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

func (w *LogWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Close 送出剩餘的 log 後返回，不關閉底層 producer
func (w *LogWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.mu.Unlock()
	<-w.done
	return nil
}

func (w *LogWriter) loop() {
	defer close(w.done)

	ticker := time.NewTicker(logWriterFlush)
	defer ticker.Stop()

	batch := make([]Message, 0, logWriterBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// 發送失敗不能再寫 log，否則會回到自己
		_ = w.producer.Produce(ctx, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				flush()
				return
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, w.seq.Add(1))
			batch = append(batch, Message{Key: key, Value: line, Time: time.Now()})
			if len(batch) >= logWriterBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
