// Package cron runs the periodic open-order status sweep. Panels are the
// source of truth; the local rows are a cache that this job keeps warm so
// a status command answers from fresh data even when the panel is down.
package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"smmbridge/internal/models"
	"smmbridge/internal/panelapi"
	"smmbridge/internal/repository"
)

const (
	defaultRefreshSpec = "0 */10 * * * *" // every 10 minutes
	sweepBatchSize     = 200
	sweepTimeout       = 5 * time.Minute
)

// CronRepos bundles the repositories the sweep reads and writes.
type CronRepos struct {
	User  *repository.UserRepository
	Order *repository.OrderRepository
	Panel *repository.PanelRepository
}

// Scheduler manages the refresh job.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	repos  *CronRepos
	api    *panelapi.Client
	logger *zap.Logger
}

func New(spec string, repos *CronRepos, api *panelapi.Client, logger *zap.Logger) *Scheduler {
	if spec == "" {
		spec = defaultRefreshSpec
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		spec:   spec,
		repos:  repos,
		api:    api,
		logger: logger,
	}
}

// Start registers and starts the refresh job.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.RefreshOpenOrders(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("order refresh scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RefreshOpenOrders re-reads every non-terminal order from its panel.
func (s *Scheduler) RefreshOpenOrders(ctx context.Context) {
	users, err := s.repos.User.FindActive()
	if err != nil {
		s.logger.Error("refresh sweep: user list failed", zap.Error(err))
		return
	}

	var checked, updated int
	for _, user := range users {
		orders, err := s.repos.Order.FindOpenByUser(user.ID, sweepBatchSize)
		if err != nil {
			s.logger.Error("refresh sweep: order list failed",
				zap.Error(err), zap.Uint("user_id", user.ID))
			continue
		}
		for i := range orders {
			if ctx.Err() != nil {
				s.logger.Warn("refresh sweep aborted", zap.Error(ctx.Err()))
				return
			}
			checked++
			if s.refreshOne(ctx, &orders[i]) {
				updated++
			}
		}
	}
	s.logger.Info("refresh sweep finished", zap.Int("checked", checked), zap.Int("updated", updated))
}

func (s *Scheduler) refreshOne(ctx context.Context, order *models.Order) bool {
	panel, err := s.repos.Panel.FindByID(order.PanelID)
	if err != nil || panel == nil {
		s.logger.Warn("refresh sweep: panel missing",
			zap.Uint("order_id", order.ID), zap.Uint("panel_id", order.PanelID))
		return false
	}

	res := s.api.OrderStatus(ctx, panel, order.ExternalID)
	if !res.Success {
		s.logger.Debug("refresh sweep: status read failed",
			zap.String("order", order.ExternalID), zap.String("kind", string(res.Kind)))
		return false
	}
	info := panelapi.ExtractOrderInfo(res)
	if info == nil || info.Status == "" || info.Status == order.Status {
		return false
	}

	if err := s.repos.Order.UpdateStatus(order, info.Status); err != nil {
		s.logger.Error("refresh sweep: status write failed",
			zap.Error(err), zap.Uint("order_id", order.ID))
		return false
	}
	if info.Remains != order.Remains {
		_ = s.repos.Order.Update(order.ID, map[string]interface{}{"remains": info.Remains})
	}
	return true
}
