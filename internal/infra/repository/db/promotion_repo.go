package db

import (
	"context"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PromotionRepo struct {
	db *DbDao
}

func NewPromotionRepo(db *DbDao) *PromotionRepo {
	return &PromotionRepo{db: db}
}

func (r *PromotionRepo) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Products", func(tx *gorm.DB) *gorm.DB { return tx.Order("product_id") }).
		Preload("Stores", func(tx *gorm.DB) *gorm.DB { return tx.Order("store_id") })
}

func (r *PromotionRepo) CreatePromotion(ctx context.Context, promotion *model.Promotion) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(promotion).Error, "create promotion")
}

func (r *PromotionRepo) GetPromotionByID(ctx context.Context, id int) (*model.Promotion, error) {
	var promotion model.Promotion
	if err := r.withAssociations(ctx).First(&promotion, id).Error; err != nil {
		return nil, notFoundOr(err, "get promotion %d", id)
	}
	return &promotion, nil
}

func (r *PromotionRepo) GetPromotionForUpdate(ctx context.Context, id int) (*model.Promotion, error) {
	var promotion model.Promotion
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&promotion, id).Error
	if err != nil {
		return nil, notFoundOr(err, "lock promotion %d", id)
	}
	return r.GetPromotionByID(ctx, id)
}

func (r *PromotionRepo) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	var promotions []model.Promotion
	err := r.withAssociations(ctx).Order("id").Find(&promotions).Error
	return promotions, errors.Wrap(err, "list promotions")
}

func (r *PromotionRepo) PromotionNameExists(ctx context.Context, name string, excludeID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Promotion{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check promotion name")
	}
	return count > 0, nil
}

func (r *PromotionRepo) ListActivePromotions(ctx context.Context, storeIDs []int, excludeID, activeStatusID int, now time.Time) ([]model.Promotion, error) {
	if len(storeIDs) == 0 {
		return nil, nil
	}
	var ids []int
	err := r.db.WithContext(ctx).Model(&model.PromotionStore{}).
		Joins("JOIN promotions ON promotions.id = promotion_stores.promotion_id").
		Where("promotion_stores.store_id IN ?", storeIDs).
		Where("promotions.id <> ? AND promotions.status_id = ?", excludeID, activeStatusID).
		Where("promotions.start_date <= ? AND promotions.end_date >= ?", now, now).
		Distinct().
		Pluck("promotion_stores.promotion_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "find active promotions")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var promotions []model.Promotion
	err = r.withAssociations(ctx).Where("id IN ?", ids).Order("id").Find(&promotions).Error
	return promotions, errors.Wrap(err, "load active promotions")
}

// UpdatePromotion 更新主檔並整批替換商品與門市關聯
func (r *PromotionRepo) UpdatePromotion(ctx context.Context, promotion *model.Promotion) error {
	tx := r.db.WithContext(ctx)
	err := tx.Model(&model.Promotion{}).
		Where("id = ?", promotion.ID).
		UpdateColumns(map[string]any{
			"name":       promotion.Name,
			"start_date": promotion.StartDate,
			"end_date":   promotion.EndDate,
			"status_id":  promotion.StatusID,
			"updated_at": promotion.UpdatedAt,
		}).Error
	if err != nil {
		return errors.Wrapf(err, "update promotion %d", promotion.ID)
	}
	if err := r.deleteAssociations(ctx, promotion.ID); err != nil {
		return err
	}

	for i := range promotion.Products {
		promotion.Products[i].PromotionID = promotion.ID
	}
	for i := range promotion.Stores {
		promotion.Stores[i].PromotionID = promotion.ID
	}
	if len(promotion.Products) > 0 {
		if err := tx.Create(&promotion.Products).Error; err != nil {
			return errors.Wrapf(err, "replace products of promotion %d", promotion.ID)
		}
	}
	if len(promotion.Stores) > 0 {
		if err := tx.Create(&promotion.Stores).Error; err != nil {
			return errors.Wrapf(err, "replace stores of promotion %d", promotion.ID)
		}
	}
	return nil
}

func (r *PromotionRepo) UpdatePromotionStatus(ctx context.Context, id, statusID int, updatedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Promotion{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"status_id": statusID, "updated_at": updatedAt}).Error
	return errors.Wrapf(err, "update status of promotion %d", id)
}

func (r *PromotionRepo) deleteAssociations(ctx context.Context, id int) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("promotion_id = ?", id).Delete(&model.PromotionProduct{}).Error; err != nil {
		return errors.Wrapf(err, "delete products of promotion %d", id)
	}
	if err := tx.Where("promotion_id = ?", id).Delete(&model.PromotionStore{}).Error; err != nil {
		return errors.Wrapf(err, "delete stores of promotion %d", id)
	}
	return nil
}

func (r *PromotionRepo) DeletePromotion(ctx context.Context, id int) error {
	if err := r.deleteAssociations(ctx, id); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&model.Promotion{}, id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete promotion %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
