package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auction 拍卖活动模型
type Auction struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	RefCode     string `json:"ref_code" gorm:"uniqueIndex;not null"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url"`

	// 出价信息
	ReservePrice    decimal.Decimal `json:"reserve_price" gorm:"type:numeric(38,0);not null"` // 保留价
	MinIncrementPct uint            `json:"min_increment_pct" gorm:"default:5"`               // 最小加价百分比
	BidMint         string          `json:"bid_mint"`                                         // 出价所用代币
	CurrentBid      decimal.Decimal `json:"current_bid" gorm:"type:numeric(38,0);default:0"`
	CurrentBidder   string          `json:"current_bidder"`

	// 聚合信息
	BidCount         uint `json:"bid_count" gorm:"default:0"`
	ParticipantCount uint `json:"participant_count" gorm:"default:0"`

	// 时间信息
	StartTime        time.Time  `json:"start_time" gorm:"not null"`
	EndTime          time.Time  `json:"end_time" gorm:"not null"`
	ActivatedAt      *time.Time `json:"activated_at"`
	ExtensionSeconds int64      `json:"extension_seconds" gorm:"default:120"` // soft close 延长窗口（秒）

	// 领取标记
	PrizeClaimed    bool `json:"prize_claimed" gorm:"default:false"`    // 拍品已被得标者领取
	ProceedsClaimed bool `json:"proceeds_claimed" gorm:"default:false"` // 货款已被创建者领取

	// 状态
	Status CampaignStatus `json:"status" gorm:"default:'initialized'"`

	// 创建者信息
	CreatorAddress string `json:"creator_address" gorm:"not null"`

	// 区块链信息
	EscrowAddress   string `json:"escrow_address"`
	TransactionHash string `json:"transaction_hash"`

	// 关联
	Prizes []Prize `json:"prizes,omitempty" gorm:"polymorphic:Campaign;polymorphicValue:auction"`
	Bids   []Bid   `json:"bids,omitempty" gorm:"foreignKey:AuctionId"`
}

func (Auction) TableName() string { return "auction" }

func (a *Auction) Kind() CampaignKind            { return CampaignKindAuction }
func (a *Auction) CurrentStatus() CampaignStatus { return a.Status }
func (a *Auction) CreatorAddr() string           { return a.CreatorAddress }

func (a *Auction) Window() (time.Time, time.Time) { return a.StartTime, a.EndTime }

// HasParticipation 是否已有人出价
func (a *Auction) HasParticipation() bool { return a.BidCount > 0 }

// MinNextBid 下一口合法出价的最低金额
func (a *Auction) MinNextBid() decimal.Decimal {
	if a.BidCount == 0 {
		return a.ReservePrice
	}
	increment := a.CurrentBid.Mul(decimal.NewFromInt(int64(a.MinIncrementPct))).Div(decimal.NewFromInt(100))
	return a.CurrentBid.Add(increment)
}
