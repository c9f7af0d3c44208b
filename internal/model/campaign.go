package model

import "time"

// CampaignKind 活动类型
type CampaignKind string

const (
	CampaignKindRaffle  CampaignKind = "raffle"  // 抽奖
	CampaignKindAuction CampaignKind = "auction" // 拍卖
	CampaignKindGumball CampaignKind = "gumball" // 扭蛋机
)

// CampaignStatus 活动状态
type CampaignStatus string

const (
	CampaignStatusInitialized CampaignStatus = "initialized" // 已创建未激活
	CampaignStatusActive      CampaignStatus = "active"      // 进行中
	CampaignStatusSuccess     CampaignStatus = "success"     // 成功结束
	CampaignStatusFailed      CampaignStatus = "failed"      // 失败结束
	CampaignStatusCancelled   CampaignStatus = "cancelled"   // 已取消
)

// IsTerminal 是否为终态
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignStatusSuccess, CampaignStatusFailed, CampaignStatusCancelled:
		return true
	}
	return false
}

// campaignTransitions 允许的状态迁移表，状态只能向前走，终态不可再迁出
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusInitialized: {CampaignStatusActive, CampaignStatusCancelled},
	CampaignStatusActive:      {CampaignStatusSuccess, CampaignStatusFailed, CampaignStatusCancelled},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to CampaignStatus) bool {
	for _, next := range campaignTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Campaign 三类活动在守卫引擎下的公共能力
type Campaign interface {
	Kind() CampaignKind
	CurrentStatus() CampaignStatus
	CreatorAddr() string
	Window() (start, end time.Time)
	HasParticipation() bool
}
