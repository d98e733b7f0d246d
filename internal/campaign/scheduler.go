package campaign

import (
	"fmt"
	"time"

	"whatsapp-console/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler polls for campaigns whose scheduled_at has passed and fires
// their fan-out.
type Scheduler struct {
	service *Service
	cron    *cron.Cron
}

func NewScheduler(service *Service) *Scheduler {
	return &Scheduler{service: service, cron: cron.New()}
}

// Start registers the poll job at the given interval and starts the cron
// runner in its own goroutine.
func (s *Scheduler) Start(intervalSeconds int) error {
	if intervalSeconds <= 0 {
		intervalSeconds = 30
	}
	spec := fmt.Sprintf("@every %ds", intervalSeconds)
	if _, err := s.cron.AddFunc(spec, s.runDue); err != nil {
		return err
	}
	s.cron.Start()
	zap.L().Info("campaign scheduler started", zap.Int("interval_seconds", intervalSeconds))
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// runDue launches every scheduled campaign whose time has come. Send flips
// the campaign to in_progress immediately, so a slow fan-out is not picked
// up again by the next tick.
func (s *Scheduler) runDue() {
	var due []models.Campaign
	err := s.service.db.
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", "scheduled", time.Now()).
		Find(&due).Error
	if err != nil {
		zap.L().Error("campaign scheduler query failed", zap.Error(err))
		return
	}

	for _, campaign := range due {
		zap.L().Info("launching scheduled campaign",
			zap.Uint("campaign_id", campaign.ID), zap.String("name", campaign.Name))
		if _, err := s.service.Send(campaign.ID); err != nil {
			zap.L().Error("scheduled campaign send failed",
				zap.Uint("campaign_id", campaign.ID), zap.Error(err))
		}
	}
}
