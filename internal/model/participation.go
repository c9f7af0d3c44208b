package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry 抽奖购票记录
type Entry struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RaffleId    int64           `json:"raffle_id" gorm:"not null;index"`
	Address     string          `json:"address" gorm:"not null;index"`
	TicketCount uint            `json:"ticket_count" gorm:"not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(38,0);not null"`
	TxHash      string          `json:"tx_hash" gorm:"uniqueIndex;not null"`

	// 开奖后由链下进程回写
	IsWinner    bool   `json:"is_winner" gorm:"default:false"`
	PrizeId     *int64 `json:"prize_id"`
	Claimed     bool   `json:"claimed" gorm:"default:false"`
	ClaimTxHash string `json:"claim_tx_hash"`
}

func (Entry) TableName() string { return "entry" }

// Bid 拍卖出价记录
type Bid struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AuctionId int64           `json:"auction_id" gorm:"not null;index"`
	Address   string          `json:"address" gorm:"not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(38,0);not null"`
	TxHash    string          `json:"tx_hash" gorm:"uniqueIndex;not null"`
}

func (Bid) TableName() string { return "bid" }

// SpinStatus 扭蛋记录状态
type SpinStatus string

const (
	SpinStatusPending  SpinStatus = "pending"  // 已购买待开奖
	SpinStatusResolved SpinStatus = "resolved" // 已解析出奖品
)

// Spin 扭蛋记录。创建时不知道奖品，claim 时一次性从 pending 迁移到
// resolved，该迁移不可逆，必须防止并发重复领取。
type Spin struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GumballId int64           `json:"gumball_id" gorm:"not null;index"`
	Address   string          `json:"address" gorm:"not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(38,0);not null"`
	TxHash    string          `json:"tx_hash" gorm:"uniqueIndex;not null"`

	Status      SpinStatus `json:"status" gorm:"default:'pending'"`
	PrizeId     *int64     `json:"prize_id"`
	TargetIndex *uint64    `json:"target_index"` // 随机数取模后的槽位下标
	ClaimTxHash string     `json:"claim_tx_hash"`
}

func (Spin) TableName() string { return "spin" }
