package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prize 奖品模型，归属于唯一一个活动
type Prize struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 归属活动。字段名必须是 CampaignID，gorm 的 polymorphic 关联按
	// 这个拼写定位外键字段
	CampaignType string `json:"campaign_type" gorm:"not null;index:idx_prize_campaign"`
	CampaignID   int64  `json:"campaign_id" gorm:"column:campaign_id;not null;index:idx_prize_campaign"`

	// 资产信息
	MintAddress   string          `json:"mint_address" gorm:"not null"` // 代币 mint 或 NFT 地址
	IsNFT         bool            `json:"is_nft" gorm:"default:false"`
	AmountPerUnit decimal.Decimal `json:"amount_per_unit" gorm:"type:numeric(38,0);default:1"` // 每份可领取数量

	// 份数，QuantityClaimed 不得超过 Quantity
	Quantity        uint `json:"quantity" gorm:"not null"`
	QuantityClaimed uint `json:"quantity_claimed" gorm:"default:0"`
}

func (Prize) TableName() string { return "prize" }

// Exhausted 奖品是否已全部领完
func (p *Prize) Exhausted() bool { return p.QuantityClaimed >= p.Quantity }
