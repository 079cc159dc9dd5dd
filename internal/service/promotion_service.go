package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/RoyceAzure/lab/retail/internal/pkg/tracing"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Notifier 通知服務，促銷提交後才呼叫
type Notifier interface {
	Create(ctx context.Context, title, message, notificationType string) (int64, error)
}

type PromotionRequest struct {
	Name      string                    `json:"name" validate:"required,max=255"`
	StartDate time.Time                 `json:"start_date" validate:"required"`
	EndDate   time.Time                 `json:"end_date" validate:"required,gtefield=StartDate"`
	Products  []PromotionProductRequest `json:"products" validate:"required,min=1,dive"`
	StoreIDs  []int                     `json:"store_ids" validate:"required,min=1,dive,gt=0"`
}

type PromotionProductRequest struct {
	ProductID       int             `json:"product_id" validate:"required,gt=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// RefreshResult 一次掃描中狀態被改變的促銷
type RefreshResult struct {
	Activated []int
	Expired   []int
}

type promotionOutcome string

const (
	outcomeStarted     promotionOutcome = "started"
	outcomeScheduled   promotionOutcome = "scheduled"
	outcomeRescheduled promotionOutcome = "rescheduled"
	outcomeEnded       promotionOutcome = "ended"
)

var hundred = decimal.NewFromInt(100)

type PromotionService struct {
	store    db.Store
	ledger   *StockLedger
	settings Settings
	notifier Notifier
	options
}

func NewPromotionService(store db.Store, ledger *StockLedger, settings Settings, notifier Notifier, opts ...Option) *PromotionService {
	return &PromotionService{
		store:    store,
		ledger:   ledger,
		settings: settings,
		notifier: notifier,
		options:  buildOptions(opts),
	}
}

func (s *PromotionService) writer() priceWriter {
	return priceWriter{ledger: s.ledger, statusID: s.settings.Status.Active}
}

func (s *PromotionService) statusFor(p *model.Promotion, now time.Time) int {
	if p.InWindow(now) {
		return s.settings.Status.Active
	}
	return s.settings.Status.Inactive
}

func (s *PromotionService) Get(ctx context.Context, id int) (promotion *model.Promotion, err error) {
	ctx, span := tracing.Start(ctx, "PromotionService.Get")
	defer tracing.End(span, &err)

	promotion, err = s.store.GetPromotionByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "promotion %d does not exist", id)
	}
	return promotion, err
}

func (s *PromotionService) List(ctx context.Context) (promotions []model.Promotion, err error) {
	ctx, span := tracing.Start(ctx, "PromotionService.List")
	defer tracing.End(span, &err)

	return s.store.ListPromotions(ctx)
}

func validatePromotionRequest(req PromotionRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperr.New(apperr.ErrValidation, "promotion name must not be blank")
	}
	products := make(map[int]struct{}, len(req.Products))
	for _, p := range req.Products {
		if _, dup := products[p.ProductID]; dup {
			return apperr.New(apperr.ErrValidation, "product %d listed more than once", p.ProductID)
		}
		products[p.ProductID] = struct{}{}
		if !p.DiscountPercent.IsPositive() || p.DiscountPercent.GreaterThan(hundred) {
			return apperr.New(apperr.ErrValidation, "discount percent of product %d must be in (0, 100]", p.ProductID)
		}
	}
	stores := make(map[int]struct{}, len(req.StoreIDs))
	for _, id := range req.StoreIDs {
		if _, dup := stores[id]; dup {
			return apperr.New(apperr.ErrValidation, "store %d listed more than once", id)
		}
		stores[id] = struct{}{}
	}
	return nil
}

// checkReferences 確認名稱未被使用且商品與門市都存在
func (s *PromotionService) checkReferences(ctx context.Context, q db.Querier, req PromotionRequest, excludeID int) (map[int]model.Product, error) {
	exists, err := q.PromotionNameExists(ctx, req.Name, excludeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.New(apperr.ErrDuplicateName, "promotion name %q is already used", req.Name)
	}

	found, err := q.GetExistingStoreIDs(ctx, req.StoreIDs)
	if err != nil {
		return nil, err
	}
	if len(found) != len(req.StoreIDs) {
		known := make(map[int]struct{}, len(found))
		for _, id := range found {
			known[id] = struct{}{}
		}
		for _, id := range req.StoreIDs {
			if _, ok := known[id]; !ok {
				return nil, apperr.New(apperr.ErrNotFound, "store %d does not exist", id)
			}
		}
	}

	ids := make([]int, 0, len(req.Products))
	for _, p := range req.Products {
		ids = append(ids, p.ProductID)
	}
	products, err := q.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, apperr.New(apperr.ErrProductNotFound, "product %d does not exist", id)
		}
	}
	return products, nil
}

// checkOverlap 鎖定門市後確認沒有其他生效中的促銷
func (s *PromotionService) checkOverlap(ctx context.Context, q db.Querier, storeIDs []int, excludeID int, now time.Time) error {
	if err := q.LockStores(ctx, storeIDs); err != nil {
		return err
	}
	others, err := q.ListActivePromotions(ctx, storeIDs, excludeID, s.settings.Status.Active, now)
	if err != nil {
		return err
	}
	if len(others) == 0 {
		return nil
	}
	wanted := make(map[int]struct{}, len(storeIDs))
	for _, id := range storeIDs {
		wanted[id] = struct{}{}
	}
	for _, sid := range others[0].StoreIDs() {
		if _, ok := wanted[sid]; ok {
			return apperr.New(apperr.ErrStoreAlreadyPromoted, "store %d already has active promotion %s", sid, others[0].Code)
		}
	}
	return apperr.New(apperr.ErrStoreAlreadyPromoted, "promotion %s is already active on the requested stores", others[0].Code)
}

func applyRequest(p *model.Promotion, req PromotionRequest) {
	p.Name = strings.TrimSpace(req.Name)
	p.StartDate = req.StartDate.UTC()
	p.EndDate = req.EndDate.UTC()
	p.Products = make([]model.PromotionProduct, 0, len(req.Products))
	for _, pp := range req.Products {
		p.Products = append(p.Products, model.PromotionProduct{
			PromotionID:     p.ID,
			ProductID:       pp.ProductID,
			DiscountPercent: pp.DiscountPercent,
		})
	}
	p.Stores = make([]model.PromotionStore, 0, len(req.StoreIDs))
	for _, id := range req.StoreIDs {
		p.Stores = append(p.Stores, model.PromotionStore{PromotionID: p.ID, StoreID: id})
	}
}

// Create 建立促銷，目前時間在區間內時立即套用折扣
func (s *PromotionService) Create(ctx context.Context, req PromotionRequest) (promotion *model.Promotion, err error) {
	ctx, span := tracing.Start(ctx, "PromotionService.Create")
	defer tracing.End(span, &err)

	if err := validatePromotionRequest(req); err != nil {
		return nil, err
	}

	now := s.utcNow()
	promotion = &model.Promotion{
		Code:      s.codes.PromotionCode(now),
		BaseModel: model.BaseModel{CreatedAt: now},
	}
	applyRequest(promotion, req)
	promotion.StatusID = s.statusFor(promotion, now)
	active := promotion.StatusID == s.settings.Status.Active

	var products map[int]model.Product
	written := 0
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		var err error
		products, err = s.checkReferences(ctx, q, req, 0)
		if err != nil {
			return err
		}
		if active {
			if err := s.checkOverlap(ctx, q, promotion.StoreIDs(), 0, now); err != nil {
				return err
			}
		}
		if err := q.CreatePromotion(ctx, promotion); err != nil {
			return err
		}
		if active {
			written, err = s.writer().apply(ctx, q, promotion, products)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PriceWritten("apply", written)
	log.Info().Int("promotion_id", promotion.ID).Str("code", promotion.Code).Bool("active", active).Int("prices_written", written).Msg("promotion created")

	outcome := outcomeScheduled
	if active {
		outcome = outcomeStarted
	} else if now.After(promotion.EndDate) {
		outcome = outcomeEnded
	}
	s.notify(ctx, promotion, products, outcome)
	return promotion, nil
}

// Update 依新的時間區間重算狀態並調整受影響的售價
// 還原一律使用舊的門市與商品組合，套用使用新的組合
func (s *PromotionService) Update(ctx context.Context, id int, req PromotionRequest) (promotion *model.Promotion, err error) {
	ctx, span := tracing.Start(ctx, "PromotionService.Update")
	defer tracing.End(span, &err)

	if err := validatePromotionRequest(req); err != nil {
		return nil, err
	}

	now := s.utcNow()
	var products map[int]model.Product
	applied, restored := 0, 0
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		prev, err := q.GetPromotionForUpdate(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return apperr.New(apperr.ErrNotFound, "promotion %d does not exist", id)
		}
		if err != nil {
			return err
		}
		products, err = s.checkReferences(ctx, q, req, id)
		if err != nil {
			return err
		}

		next := prev.Clone()
		applyRequest(next, req)
		next.StatusID = s.statusFor(next, now)
		next.UpdatedAt = &now
		wasActive := prev.StatusID == s.settings.Status.Active
		isActive := next.StatusID == s.settings.Status.Active

		if isActive {
			if err := s.checkOverlap(ctx, q, next.StoreIDs(), id, now); err != nil {
				return err
			}
		}
		if err := q.UpdatePromotion(ctx, next); err != nil {
			return err
		}

		w := s.writer()
		switch {
		case wasActive && isActive:
			if restored, err = w.restore(ctx, q, subtractPairs(pairsOf(prev), pairsOf(next)), id, now); err != nil {
				return err
			}
			applied, err = w.apply(ctx, q, next, products)
		case wasActive:
			restored, err = w.restore(ctx, q, pairsOf(prev), id, now)
		case isActive:
			applied, err = w.apply(ctx, q, next, products)
		}
		if err != nil {
			return err
		}
		promotion = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PriceWritten("apply", applied)
	s.metrics.PriceWritten("restore", restored)
	log.Info().Int("promotion_id", id).Int("status_id", promotion.StatusID).Int("applied", applied).Int("restored", restored).Msg("promotion updated")

	outcome := outcomeRescheduled
	switch {
	case promotion.StatusID == s.settings.Status.Active:
		outcome = outcomeStarted
	case now.After(promotion.EndDate):
		outcome = outcomeEnded
	}
	s.notify(ctx, promotion, products, outcome)
	return promotion, nil
}

// Delete 刪除促銷；仍在生效中的促銷會先還原售價
func (s *PromotionService) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.Start(ctx, "PromotionService.Delete")
	defer tracing.End(span, &err)

	now := s.utcNow()
	restored := 0
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		prev, err := q.GetPromotionForUpdate(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return apperr.New(apperr.ErrNotFound, "promotion %d does not exist", id)
		}
		if err != nil {
			return err
		}
		if err := q.DeletePromotion(ctx, id); err != nil {
			return err
		}
		if prev.StatusID == s.settings.Status.Active {
			restored, err = s.writer().restore(ctx, q, pairsOf(prev), id, now)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.PriceWritten("restore", restored)
	log.Info().Int("promotion_id", id).Int("restored", restored).Msg("promotion deleted")
	return nil
}

// Refresh 依目前時間重新判斷每個促銷的狀態，進入或離開區間的促銷會套用或還原售價
// 每個促銷各自一個交易，單一促銷失敗不影響其他促銷
func (s *PromotionService) Refresh(ctx context.Context) (result RefreshResult, err error) {
	ctx, span := tracing.Start(ctx, "PromotionService.Refresh")
	defer tracing.End(span, &err)

	promotions, err := s.store.ListPromotions(ctx)
	if err != nil {
		return result, err
	}

	now := s.utcNow()
	var errs []error
	for i := range promotions {
		p := &promotions[i]
		if s.statusFor(p, now) == p.StatusID {
			continue
		}
		changed, products, err := s.refreshOne(ctx, p.ID, now)
		if err != nil {
			if errors.Is(err, apperr.ErrStoreAlreadyPromoted) {
				log.Warn().Err(err).Int("promotion_id", p.ID).Msg("promotion window entered but stores are taken, left inactive")
				continue
			}
			log.Error().Err(err).Int("promotion_id", p.ID).Msg("refresh promotion failed")
			errs = append(errs, err)
			continue
		}
		if changed == nil {
			continue
		}
		if changed.StatusID == s.settings.Status.Active {
			result.Activated = append(result.Activated, changed.ID)
			s.notify(ctx, changed, products, outcomeStarted)
		} else {
			result.Expired = append(result.Expired, changed.ID)
			s.notify(ctx, changed, products, outcomeEnded)
		}
	}
	return result, errors.Join(errs...)
}

func (s *PromotionService) refreshOne(ctx context.Context, id int, now time.Time) (*model.Promotion, map[int]model.Product, error) {
	var changed *model.Promotion
	var products map[int]model.Product
	applied, restored := 0, 0
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		p, err := q.GetPromotionForUpdate(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		target := s.statusFor(p, now)
		if target == p.StatusID {
			return nil
		}

		ids := make([]int, 0, len(p.Products))
		for _, pp := range p.Products {
			ids = append(ids, pp.ProductID)
		}
		if products, err = q.GetProductsByIDs(ctx, ids); err != nil {
			return err
		}

		w := s.writer()
		if target == s.settings.Status.Active {
			if err := s.checkOverlap(ctx, q, p.StoreIDs(), id, now); err != nil {
				return err
			}
			if applied, err = w.apply(ctx, q, p, products); err != nil {
				return err
			}
		} else if p.StatusID == s.settings.Status.Active {
			if restored, err = w.restore(ctx, q, pairsOf(p), id, now); err != nil {
				return err
			}
		}

		if err := q.UpdatePromotionStatus(ctx, id, target, now); err != nil {
			return err
		}
		p.StatusID = target
		p.UpdatedAt = &now
		changed = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.PriceWritten("apply", applied)
	s.metrics.PriceWritten("restore", restored)
	return changed, products, nil
}

// notify 提交後送出通知，失敗只記錄
func (s *PromotionService) notify(ctx context.Context, p *model.Promotion, products map[int]model.Product, outcome promotionOutcome) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	title, message := promotionMessage(p, products, outcome)
	if _, err := s.notifier.Create(ctx, title, message, model.NotificationTypePromotion); err != nil {
		s.metrics.SideEffectFailed("notification")
		log.Warn().Err(err).Int("promotion_id", p.ID).Str("outcome", string(outcome)).Msg("send promotion notification failed")
	}
}

func promotionMessage(p *model.Promotion, products map[int]model.Product, outcome promotionOutcome) (string, string) {
	const layout = "2006-01-02 15:04"
	var title, lead string
	switch outcome {
	case outcomeStarted:
		title = fmt.Sprintf("Promotion %s has started", p.Name)
		lead = fmt.Sprintf("%s runs until %s.", p.Name, p.EndDate.Format(layout))
	case outcomeEnded:
		title = fmt.Sprintf("Promotion %s has ended", p.Name)
		lead = fmt.Sprintf("%s ended on %s.", p.Name, p.EndDate.Format(layout))
	case outcomeRescheduled:
		title = fmt.Sprintf("Promotion %s has been rescheduled", p.Name)
		lead = fmt.Sprintf("%s now runs from %s to %s.", p.Name, p.StartDate.Format(layout), p.EndDate.Format(layout))
	default:
		title = fmt.Sprintf("Upcoming promotion %s", p.Name)
		lead = fmt.Sprintf("%s runs from %s to %s.", p.Name, p.StartDate.Format(layout), p.EndDate.Format(layout))
	}

	var b strings.Builder
	b.WriteString(lead)
	for _, pp := range p.Products {
		name := fmt.Sprintf("product %d", pp.ProductID)
		if product, ok := products[pp.ProductID]; ok {
			name = product.Name
		}
		fmt.Fprintf(&b, "\n- %s: %s%% off", name, pp.DiscountPercent.String())
	}
	return title, b.String()
}
