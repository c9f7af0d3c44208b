package task

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sh4d0wy/fox-backend/internal/config"
	"github.com/sh4d0wy/fox-backend/internal/logger"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"gorm.io/gorm"
)

// CampaignStatusJob 活动窗口扫描任务。窗口开启时把 initialized 推进到
// active，窗口关闭时按是否有参与记录推进到 success 或 failed。
// 时间驱动的状态推进不对应链上事件，不登记流水。
type CampaignStatusJob struct {
	db     *gorm.DB
	config *config.Config
}

// NewCampaignStatusJob 创建活动窗口扫描任务
func NewCampaignStatusJob(db *gorm.DB, cfg *config.Config) *CampaignStatusJob {
	return &CampaignStatusJob{
		db:     db,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *CampaignStatusJob) GetName() string {
	return "campaign_status_sweeper"
}

// GetSchedule 获取调度配置
func (j *CampaignStatusJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *CampaignStatusJob) Execute() {
	logger.Debug("Starting campaign status sweep")

	now := time.Now()
	updated := j.sweepRaffles(now) + j.sweepAuctions(now) + j.sweepGumballs(now)

	if updated > 0 {
		logger.Info("Campaign status sweep completed, updated %d campaigns", updated)
	}
}

// sweepRaffles 扫描抽奖活动
func (j *CampaignStatusJob) sweepRaffles(now time.Time) int {
	var raffles []model.Raffle
	err := j.db.Where("status IN ?", []model.CampaignStatus{
		model.CampaignStatusInitialized,
		model.CampaignStatusActive,
	}).Find(&raffles).Error
	if err != nil {
		logger.Error("Failed to fetch raffles: %v", err)
		return 0
	}

	updated := 0
	for _, raffle := range raffles {
		switch raffle.Status {
		case model.CampaignStatusInitialized:
			if !now.After(raffle.StartTime) {
				continue
			}
			// 奖品不足门槛的活动不自动激活，等创建者补奖品后手动激活
			var prizeCount int64
			if err := j.db.Model(&model.Prize{}).
				Where("campaign_type = ? AND campaign_id = ?", model.CampaignKindRaffle, raffle.Id).
				Count(&prizeCount).Error; err != nil {
				logger.Error("Failed to count prizes for raffle %d: %v", raffle.Id, err)
				continue
			}
			if prizeCount < int64(raffle.MinPrizes) {
				continue
			}
			if j.advance(&model.Raffle{}, raffle.Id, raffle.Status, model.CampaignStatusActive) {
				updated++
			}

		case model.CampaignStatusActive:
			if !now.After(raffle.EndTime) {
				continue
			}
			final := model.CampaignStatusFailed
			if raffle.TicketsSold > 0 {
				final = model.CampaignStatusSuccess
			}
			if j.advance(&model.Raffle{}, raffle.Id, raffle.Status, final) {
				updated++
			}
		}
	}
	return updated
}

// sweepAuctions 扫描拍卖活动
func (j *CampaignStatusJob) sweepAuctions(now time.Time) int {
	var auctions []model.Auction
	err := j.db.Where("status IN ?", []model.CampaignStatus{
		model.CampaignStatusInitialized,
		model.CampaignStatusActive,
	}).Find(&auctions).Error
	if err != nil {
		logger.Error("Failed to fetch auctions: %v", err)
		return 0
	}

	updated := 0
	for _, auction := range auctions {
		switch auction.Status {
		case model.CampaignStatusInitialized:
			if now.After(auction.StartTime) && j.advance(&model.Auction{}, auction.Id, auction.Status, model.CampaignStatusActive) {
				updated++
			}

		case model.CampaignStatusActive:
			// 出价会顺延结束时间（soft close），必须以当前 end_time 判断
			if !now.After(auction.EndTime) {
				continue
			}
			final := model.CampaignStatusFailed
			if auction.BidCount > 0 {
				final = model.CampaignStatusSuccess
			}
			if j.advance(&model.Auction{}, auction.Id, auction.Status, final) {
				updated++
			}
		}
	}
	return updated
}

// sweepGumballs 扫描扭蛋机活动
func (j *CampaignStatusJob) sweepGumballs(now time.Time) int {
	var gumballs []model.Gumball
	err := j.db.Where("status IN ?", []model.CampaignStatus{
		model.CampaignStatusInitialized,
		model.CampaignStatusActive,
	}).Find(&gumballs).Error
	if err != nil {
		logger.Error("Failed to fetch gumballs: %v", err)
		return 0
	}

	updated := 0
	for _, gumball := range gumballs {
		switch gumball.Status {
		case model.CampaignStatusInitialized:
			if now.After(gumball.StartTime) && j.advance(&model.Gumball{}, gumball.Id, gumball.Status, model.CampaignStatusActive) {
				updated++
			}

		case model.CampaignStatusActive:
			if !now.After(gumball.EndTime) {
				continue
			}
			final := model.CampaignStatusFailed
			if gumball.SpinsSold > 0 {
				final = model.CampaignStatusSuccess
			}
			if j.advance(&model.Gumball{}, gumball.Id, gumball.Status, final) {
				updated++
			}
		}
	}
	return updated
}

// advance 带状态条件的推进，并发改动过的行不会被覆盖
func (j *CampaignStatusJob) advance(modelRef interface{}, id int64, from, to model.CampaignStatus) bool {
	updates := map[string]interface{}{"status": to}
	if to == model.CampaignStatusActive {
		updates["activated_at"] = time.Now()
	}
	res := j.db.Model(modelRef).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		logger.Error("Failed to advance campaign %d from %s to %s: %v", id, from, to, res.Error)
		return false
	}
	if res.RowsAffected > 0 {
		logger.Info("Campaign %d advanced from %s to %s", id, from, to)
		return true
	}
	return false
}
