package service

import (
	"time"

	"github.com/RoyceAzure/lab/retail/internal/metrics"
)

// StatusCatalog 狀態 id 由設定檔提供，服務只依賴這幾個值
type StatusCatalog struct {
	Active              int
	Inactive            int
	PaymentSuccess      int
	PendingConfirmation int
	Confirmed           int
	Cancelled           int
}

type Settings struct {
	WarehouseStoreID int
	Status           StatusCatalog
}

func DefaultSettings() Settings {
	return Settings{
		WarehouseStoreID: 1,
		Status: StatusCatalog{
			Active:              1,
			Inactive:            2,
			PaymentSuccess:      3,
			PendingConfirmation: 4,
			Confirmed:           5,
			Cancelled:           6,
		},
	}
}

type options struct {
	metrics *metrics.Metrics
	now     func() time.Time
	codes   *CodeGenerator
}

type Option func(*options)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock 測試時固定時間
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithCodeGenerator(g *CodeGenerator) Option {
	return func(o *options) {
		o.codes = g
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codes == nil {
		o.codes = NewCodeGenerator()
	}
	return o
}

func (o options) utcNow() time.Time {
	return o.now().UTC()
}
