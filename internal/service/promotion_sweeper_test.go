package service

import (
	"context"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/infra/lock"
	"github.com/stretchr/testify/suite"
)

type PromotionSweeperTestSuite struct {
	serviceSuite
	promotions *PromotionService
	locker     *lock.LocalLocker
	sweeper    *PromotionSweeper
}

func TestPromotionSweeperTestSuite(t *testing.T) {
	suite.Run(t, new(PromotionSweeperTestSuite))
}

func (s *PromotionSweeperTestSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.promotions = NewPromotionService(s.store, s.ledger, s.settings, s.notifier, s.opts...)
	s.locker = lock.NewLocalLocker()
	s.sweeper = NewPromotionSweeper(s.promotions, s.locker, time.Minute)
}

func (s *PromotionSweeperTestSuite) TestSweepActivatesDuePromotion() {
	_, err := s.promotions.Create(s.ctx, promotionRequest("Weekend", day(time.June, 7), day(time.June, 8), []int{storeTaipei}, discount{productRunner, "25"}))
	s.Require().NoError(err)

	s.clock.Set(day(time.June, 7).Add(time.Hour))
	s.True(s.sweeper.Sweep(s.ctx))
	s.Equal("75.00", s.salePrice(storeTaipei, productRunner))
}

func (s *PromotionSweeperTestSuite) TestSweepSkipsWhenLockHeld() {
	_, err := s.promotions.Create(s.ctx, promotionRequest("Weekend", day(time.June, 7), day(time.June, 8), []int{storeTaipei}, discount{productRunner, "25"}))
	s.Require().NoError(err)

	held, err := s.locker.TryObtain(s.ctx, promotionRefreshLockKey, time.Minute)
	s.Require().NoError(err)

	s.clock.Set(day(time.June, 7).Add(time.Hour))
	s.False(s.sweeper.Sweep(s.ctx))
	s.Equal("100.00", s.salePrice(storeTaipei, productRunner))

	s.Require().NoError(held.Release(s.ctx))
	s.True(s.sweeper.Sweep(s.ctx))
	s.Equal("75.00", s.salePrice(storeTaipei, productRunner))
}

func (s *PromotionSweeperTestSuite) TestRunStopsWithContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.sweeper.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("sweeper did not stop")
	}
}
