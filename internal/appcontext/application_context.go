package appcontext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/config"
	"github.com/RoyceAzure/lab/retail/internal/infra/kafka/producer"
	"github.com/RoyceAzure/lab/retail/internal/infra/lock"
	eventproducer "github.com/RoyceAzure/lab/retail/internal/infra/producer"
	"github.com/RoyceAzure/lab/retail/internal/infra/redis_client"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/memory"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/retail/internal/metrics"
	"github.com/RoyceAzure/lab/retail/internal/pkg/logger"
	"github.com/RoyceAzure/lab/retail/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DriverMemory = "memory"

	// ShutdownTimeout cmd 等待資源關閉的上限
	ShutdownTimeout = 30 * time.Second
)

type ApplicationContext struct {
	Cf       *config.Config
	Settings service.Settings
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	DbConn      *gorm.DB
	Store       db.Store
	RedisClient *redis.Client
	CartRepo    redis_repo.ICartRepository
	Locker      lock.Locker

	NotificationKafka producer.Producer
	OrderEventKafka   producer.Producer
	LogKafka          producer.Producer
	LogWriter         *producer.LogWriter

	InventoryService    *service.InventoryService
	CartService         *service.CartService
	OrderService        *service.OrderService
	PromotionService    *service.PromotionService
	NotificationService *service.NotificationService
	PromotionSweeper    *service.PromotionSweeper
}

func NewApplicationContext(ctx context.Context, cf *config.Config) (*ApplicationContext, error) {
	app := ApplicationContext{
		Cf:       cf,
		Settings: SettingsFrom(cf),
	}
	log.Info().
		Str("service", cf.ServiceName).
		Str("db_driver", cf.DbDriver).
		Str("redis_addr", cf.RedisAddr).
		Strs("kafka_brokers", cf.KafkaBrokerList()).
		Int("warehouse_store_id", cf.WarehouseStoreID).
		Msg("application config")

	if err := app.Init(ctx); err != nil {
		_ = app.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	return &app, nil
}

// SettingsFrom 狀態 id 與倉庫門市由設定檔決定
func SettingsFrom(cf *config.Config) service.Settings {
	return service.Settings{
		WarehouseStoreID: cf.WarehouseStoreID,
		Status: service.StatusCatalog{
			Active:              cf.StatusActive,
			Inactive:            cf.StatusInactive,
			PaymentSuccess:      cf.StatusPaymentSuccess,
			PendingConfirmation: cf.StatusPendingConfirmation,
			Confirmed:           cf.StatusConfirmed,
			Cancelled:           cf.StatusCancelled,
		},
	}
}

func (app *ApplicationContext) Init(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"metrics", app.setUpMetrics},
		{"database", app.setUpStore},
		{"seed data", app.setUpSeed},
		{"redis", app.setUpRedis},
		{"kafka producers", app.setUpKafka},
		{"services", app.setUpServices},
	}
	for _, step := range steps {
		log.Info().Msgf("Start setup %s", step.name)
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("setup %s: %w", step.name, err)
		}
		log.Info().Msgf("Finish setup %s", step.name)
	}
	return nil
}

func (app *ApplicationContext) setUpMetrics(ctx context.Context) error {
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.New(app.Registry)
	return nil
}

func (app *ApplicationContext) setUpStore(ctx context.Context) error {
	cf := app.Cf
	var conn db.ConnConfig
	switch cf.DbDriver {
	case DriverMemory:
		app.Store = memory.NewStore()
		return nil
	case db.DriverPostgres:
		conn = db.ConnConfig{Driver: db.DriverPostgres, Host: cf.DbHost, Port: cf.DbPort, User: cf.DbUser, Password: cf.DbPas, DBName: cf.DbName}
	case db.DriverMySQL:
		conn = db.ConnConfig{Driver: db.DriverMySQL, Host: cf.MysqlHost, Port: cf.MysqlPort, User: cf.MysqlUser, Password: cf.MysqlPas, DBName: cf.MysqlName}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cf.DbDriver)
	}
	conn.MaxOpenConns = cf.DbMaxOpenConn
	conn.MaxIdleConns = cf.DbMaxIdleConn

	gormDB, err := db.GetDbConn(conn)
	if err != nil {
		return err
	}
	app.DbConn = gormDB
	app.Store = db.NewUnifiedDB(gormDB)
	return app.Store.InitMigrate()
}

func (app *ApplicationContext) setUpSeed(ctx context.Context) error {
	seed, err := config.LoadSeed(app.Cf.SeedFile)
	if err != nil {
		return err
	}
	if seed == nil {
		return nil
	}
	return app.Store.Seed(ctx, seed)
}

// setUpRedis 沒有設定 REDIS_ADDR 時購物車與鎖都使用記憶體版本
func (app *ApplicationContext) setUpRedis(ctx context.Context) error {
	if app.Cf.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, using in-memory carts and local lock")
		app.CartRepo = memory.NewCartRepo()
		app.Locker = lock.NewLocalLocker()
		return nil
	}

	client, err := redis_client.GetRedisClient(app.Cf.RedisAddr,
		redis_client.WithPassword(app.Cf.RedisPassword),
		redis_client.WithDB(app.Cf.RedisDB),
	)
	if err != nil {
		return err
	}
	app.RedisClient = client
	app.CartRepo = redis_repo.NewCartRepo(client)
	app.Locker = lock.NewRedisLocker(client)
	return nil
}

func (app *ApplicationContext) newProducer(topic string) (producer.Producer, error) {
	cfg := producer.DefaultConfig()
	cfg.Brokers = app.Cf.KafkaBrokerList()
	cfg.Topic = topic
	return producer.New(cfg)
}

// setUpKafka 沒有設定 KAFKA_BROKERS 時不送出事件
func (app *ApplicationContext) setUpKafka(ctx context.Context) error {
	if len(app.Cf.KafkaBrokerList()) == 0 {
		log.Warn().Msg("KAFKA_BROKERS not set, notifications and order events are not published")
		return nil
	}
	var err error
	if app.NotificationKafka, err = app.newProducer(app.Cf.KafkaNotificationTopic); err != nil {
		return err
	}
	if app.OrderEventKafka, err = app.newProducer(app.Cf.KafkaOrderEventTopic); err != nil {
		return err
	}
	if app.Cf.LogKafkaTopic != "" {
		if app.LogKafka, err = app.newProducer(app.Cf.LogKafkaTopic); err != nil {
			return err
		}
		app.LogWriter = producer.NewLogWriter(app.LogKafka)
		logger.Setup(app.Cf.LogLevel, app.Cf.LogPretty, app.LogWriter)
		log.Info().Str("topic", app.Cf.LogKafkaTopic).Msg("shipping logs to kafka")
	}
	return nil
}

func (app *ApplicationContext) setUpServices(ctx context.Context) error {
	opts := []service.Option{service.WithMetrics(app.Metrics)}
	ledger := service.NewStockLedger()

	var notifications service.NotificationPublisher
	if app.NotificationKafka != nil {
		notifications = eventproducer.NewNotificationProducer(app.NotificationKafka)
	}
	var orderEvents service.OrderEventPublisher
	if app.OrderEventKafka != nil {
		orderEvents = eventproducer.NewOrderEventProducer(app.OrderEventKafka)
	}

	app.NotificationService = service.NewNotificationService(app.Store, notifications, opts...)
	app.InventoryService = service.NewInventoryService(app.Store, ledger, app.Settings, opts...)
	app.CartService = service.NewCartService(app.Store, app.CartRepo, ledger, app.Settings, opts...)
	app.OrderService = service.NewOrderService(app.Store, ledger, app.Settings, orderEvents, opts...)
	app.PromotionService = service.NewPromotionService(app.Store, ledger, app.Settings, app.NotificationService, opts...)
	app.PromotionSweeper = service.NewPromotionSweeper(app.PromotionService, app.Locker, app.Cf.PromotionRefreshInterval)
	return nil
}

// Ping 健康檢查
func (app *ApplicationContext) Ping(ctx context.Context) error {
	if err := app.Store.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if app.RedisClient != nil {
		if err := redis_client.Ping(ctx, app.RedisClient); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (app *ApplicationContext) Shutdown(ctx context.Context) error {
	log.Info().Msg("Start application shutdown")

	done := make(chan error, 1)
	go func() {
		var errs []error
		if app.LogWriter != nil {
			logger.Setup(app.Cf.LogLevel, app.Cf.LogPretty)
			_ = app.LogWriter.Close()
		}
		for _, p := range []producer.Producer{app.NotificationKafka, app.OrderEventKafka, app.LogKafka} {
			if p == nil {
				continue
			}
			if err := p.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
			}
		}
		if app.RedisClient != nil {
			if err := app.RedisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		if app.DbConn != nil {
			if sqlDB, err := app.DbConn.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close database: %w", err))
				}
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Msg("application shutdown finished with errors")
			return err
		}
		log.Info().Msg("Finish application shutdown")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("application shutdown: %w", ctx.Err())
	}
}
