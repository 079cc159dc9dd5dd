package db

import (
	"context"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DbDao struct {
	*gorm.DB
}

func NewDbDao(conn *gorm.DB) *DbDao {
	return &DbDao{
		DB: conn,
	}
}

// 初始化db schema
// 冪等性
func (d *DbDao) InitMigrate() error {
	return d.AutoMigrate(
		&model.Status{},
		&model.Store{},
		&model.User{},
		&model.Product{},
		&model.StoreProduct{},
		&model.Order{},
		&model.OrderDetail{},
		&model.Promotion{},
		&model.PromotionProduct{},
		&model.PromotionStore{},
		&model.Notification{},
	)
}

// Seed 寫入初始資料，已存在的主鍵略過
func (d *DbDao) Seed(ctx context.Context, seed *model.Seed) error {
	if seed == nil {
		return nil
	}
	return d.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ignore := tx.Clauses(clause.OnConflict{DoNothing: true})
		if len(seed.Statuses) > 0 {
			if err := ignore.Create(&seed.Statuses).Error; err != nil {
				return errors.Wrap(err, "seed statuses")
			}
		}
		if len(seed.Stores) > 0 {
			if err := ignore.Create(&seed.Stores).Error; err != nil {
				return errors.Wrap(err, "seed stores")
			}
		}
		if len(seed.Users) > 0 {
			if err := ignore.Create(&seed.Users).Error; err != nil {
				return errors.Wrap(err, "seed users")
			}
		}
		if len(seed.Products) > 0 {
			if err := ignore.Create(&seed.Products).Error; err != nil {
				return errors.Wrap(err, "seed products")
			}
		}
		if len(seed.StockEntries) > 0 {
			if err := ignore.Create(&seed.StockEntries).Error; err != nil {
				return errors.Wrap(err, "seed stock entries")
			}
		}
		return nil
	})
}

func (d *DbDao) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
