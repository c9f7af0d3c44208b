package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEventType 链上事件类型。封闭集合，只增不改：历史流水必须永远可解释，
// 新功能只能新增标签，不得复用已有标签。
type LedgerEventType string

const (
	LedgerEventCampaignCreated   LedgerEventType = "campaign_created"   // 创建活动
	LedgerEventCampaignActivated LedgerEventType = "campaign_activated" // 激活活动
	LedgerEventTicketPurchase    LedgerEventType = "ticket_purchase"    // 购票
	LedgerEventBidPlaced         LedgerEventType = "bid_placed"         // 出价
	LedgerEventSpinPurchase      LedgerEventType = "spin_purchase"      // 扭蛋
	LedgerEventPrizeClaim        LedgerEventType = "prize_claim"        // 领奖
	LedgerEventProceedsClaim     LedgerEventType = "proceeds_claim"     // 创建者领取货款
	LedgerEventCampaignCancelled LedgerEventType = "campaign_cancelled" // 取消活动
	LedgerEventBuyBack           LedgerEventType = "buy_back"           // 创建者回购剩余槽位
	LedgerEventWinnersDrawn      LedgerEventType = "winners_drawn"      // 链下开奖名单上链
	LedgerEventRandomnessReveal  LedgerEventType = "randomness_reveal"  // 随机数揭示
)

// LedgerTransaction 链上交易流水，外部事件已被消费的唯一事实来源。
// TxHash 上的唯一索引是整个去重机制：同一笔交易只允许落一行，
// 并发竞争时由索引裁决，先提交者生效。
type LedgerTransaction struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	TxHash      string          `json:"tx_hash" gorm:"uniqueIndex;not null"`
	EventType   LedgerEventType `json:"event_type" gorm:"not null"`
	BlockNumber uint64          `json:"block_number" gorm:"index"`

	// 资金流向
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	MintAddress string          `json:"mint_address"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(38,0);default:0"`

	// 弱关联，回指被该事件触及的实体
	CampaignType    string `json:"campaign_type"`
	CampaignId      int64  `json:"campaign_id" gorm:"index"`
	PrizeId         *int64 `json:"prize_id"`
	ParticipationId *int64 `json:"participation_id"`

	// 自由元数据
	Metadata string `json:"metadata" gorm:"type:text"`
}

func (LedgerTransaction) TableName() string { return "ledger_transaction" }
