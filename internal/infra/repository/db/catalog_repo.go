package db

import (
	"context"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

type CatalogRepo struct {
	db *DbDao
}

func NewCatalogRepo(db *DbDao) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) exists(ctx context.Context, m any, id any) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(m).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "check %T exists", m)
	}
	return count > 0, nil
}

func (r *CatalogRepo) UserExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, &model.User{}, id)
}

func (r *CatalogRepo) StoreExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, &model.Store{}, id)
}

func (r *CatalogRepo) StatusExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, &model.Status{}, id)
}

func (r *CatalogRepo) GetProductByID(ctx context.Context, id int) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, notFoundOr(err, "get product %d", id)
	}
	return &product, nil
}

func (r *CatalogRepo) GetProductsByIDs(ctx context.Context, ids []int) (map[int]model.Product, error) {
	result := make(map[int]model.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (r *CatalogRepo) GetExistingStoreIDs(ctx context.Context, ids []int) ([]int, error) {
	var found []int
	if len(ids) == 0 {
		return found, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Store{}).Where("id IN ?", ids).Order("id").Pluck("id", &found).Error; err != nil {
		return nil, errors.Wrap(err, "get store ids")
	}
	return found, nil
}

func (r *CatalogRepo) LockStores(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	// 依 id 排序上鎖，避免交叉等待
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&stores).Error
	return errors.Wrap(err, "lock stores")
}
