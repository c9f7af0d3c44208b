package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gumball 扭蛋机活动模型
type Gumball struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	RefCode     string `json:"ref_code" gorm:"uniqueIndex;not null"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url"`

	// 扭蛋信息
	SpinPrice decimal.Decimal `json:"spin_price" gorm:"type:numeric(38,0);not null"`
	SpinMint  string          `json:"spin_mint"`
	// TotalSlots 为所有奖品数量之和，SlotsRemaining 在每次 spin 时扣减
	TotalSlots     uint `json:"total_slots" gorm:"not null"`
	SlotsRemaining uint `json:"slots_remaining" gorm:"not null"`
	SpinsSold      uint `json:"spins_sold" gorm:"default:0"`

	// 聚合信息
	Proceeds         decimal.Decimal `json:"proceeds" gorm:"type:numeric(38,0);default:0"`
	ParticipantCount uint            `json:"participant_count" gorm:"default:0"`
	PrizeValue       decimal.Decimal `json:"prize_value" gorm:"type:numeric(38,0);default:0"`

	// 时间信息
	StartTime   time.Time  `json:"start_time" gorm:"not null"`
	EndTime     time.Time  `json:"end_time" gorm:"not null"`
	ActivatedAt *time.Time `json:"activated_at"`

	// 状态
	Status CampaignStatus `json:"status" gorm:"default:'initialized'"`

	// 创建者信息
	CreatorAddress string `json:"creator_address" gorm:"not null"`

	// 区块链信息
	EscrowAddress    string `json:"escrow_address"`
	RandomnessHandle string `json:"randomness_handle"` // commit-reveal 随机数账户
	TransactionHash  string `json:"transaction_hash"`

	// 关联
	Prizes []Prize `json:"prizes,omitempty" gorm:"polymorphic:Campaign;polymorphicValue:gumball"`
	Spins  []Spin  `json:"spins,omitempty" gorm:"foreignKey:GumballId"`
}

func (Gumball) TableName() string { return "gumball" }

func (g *Gumball) Kind() CampaignKind            { return CampaignKindGumball }
func (g *Gumball) CurrentStatus() CampaignStatus { return g.Status }
func (g *Gumball) CreatorAddr() string           { return g.CreatorAddress }

func (g *Gumball) Window() (time.Time, time.Time) { return g.StartTime, g.EndTime }

// HasParticipation 是否已有人扭蛋
func (g *Gumball) HasParticipation() bool { return g.SpinsSold > 0 }
