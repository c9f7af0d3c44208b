package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Raffle 抽奖活动模型
type Raffle struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	RefCode     string `json:"ref_code" gorm:"uniqueIndex;not null"` // 对外引用码（uuid）
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url"`

	// 票务信息
	TicketPrice  decimal.Decimal `json:"ticket_price" gorm:"type:numeric(38,0);not null"`
	TicketMint   string          `json:"ticket_mint"` // 购票所用代币
	TicketSupply uint            `json:"ticket_supply" gorm:"not null"`
	TicketsSold  uint            `json:"tickets_sold" gorm:"default:0"`
	MaxPerUser   uint            `json:"max_per_user" gorm:"default:0"` // 0 表示不限

	// 聚合信息
	Proceeds         decimal.Decimal `json:"proceeds" gorm:"type:numeric(38,0);default:0"`
	MaxProceeds      decimal.Decimal `json:"max_proceeds" gorm:"type:numeric(38,0);default:0"` // 票价×票量
	ParticipantCount uint            `json:"participant_count" gorm:"default:0"`
	PrizeValue       decimal.Decimal `json:"prize_value" gorm:"type:numeric(38,0);default:0"`

	// 时间信息
	StartTime   time.Time  `json:"start_time" gorm:"not null"`
	EndTime     time.Time  `json:"end_time" gorm:"not null"`
	ActivatedAt *time.Time `json:"activated_at"`

	// 开奖信息
	WinnerPicked bool `json:"winner_picked" gorm:"default:false"` // 链下开奖进程已回写中奖名单
	MinPrizes    uint `json:"min_prizes" gorm:"default:1"`        // 激活所需最少奖品数

	// 状态
	Status CampaignStatus `json:"status" gorm:"default:'initialized'"`

	// 创建者信息
	CreatorAddress string `json:"creator_address" gorm:"not null"`

	// 区块链信息
	EscrowAddress   string `json:"escrow_address"` // 链上托管账户
	TransactionHash string `json:"transaction_hash"`

	// 关联
	Prizes  []Prize `json:"prizes,omitempty" gorm:"polymorphic:Campaign;polymorphicValue:raffle"`
	Entries []Entry `json:"entries,omitempty" gorm:"foreignKey:RaffleId"`
}

func (Raffle) TableName() string { return "raffle" }

func (r *Raffle) Kind() CampaignKind            { return CampaignKindRaffle }
func (r *Raffle) CurrentStatus() CampaignStatus { return r.Status }
func (r *Raffle) CreatorAddr() string           { return r.CreatorAddress }

func (r *Raffle) Window() (time.Time, time.Time) { return r.StartTime, r.EndTime }

// HasParticipation 是否已有人购票
func (r *Raffle) HasParticipation() bool { return r.TicketsSold > 0 }

// TicketsRemaining 剩余票量
func (r *Raffle) TicketsRemaining() uint {
	if r.TicketsSold >= r.TicketSupply {
		return 0
	}
	return r.TicketSupply - r.TicketsSold
}
