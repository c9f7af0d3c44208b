package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// PrizeRequest 奖品参数
type PrizeRequest struct {
	MintAddress   string          `json:"mint_address" binding:"required"`
	IsNFT         bool            `json:"is_nft"`
	AmountPerUnit decimal.Decimal `json:"amount_per_unit"`
	Quantity      uint            `json:"quantity" binding:"required,min=1"`
}

// CreateRaffleRequest 创建抽奖请求
type CreateRaffleRequest struct {
	Title          string          `json:"title" binding:"required"`
	Description    string          `json:"description"`
	ImageURL       string          `json:"image_url"`
	CreatorAddress string          `json:"creator_address" binding:"required"`
	EscrowAddress  string          `json:"escrow_address"`
	TicketPrice    decimal.Decimal `json:"ticket_price" binding:"required"`
	TicketMint     string          `json:"ticket_mint"`
	TicketSupply   uint            `json:"ticket_supply" binding:"required,min=1"`
	MaxPerUser     uint            `json:"max_per_user"`
	MinPrizes      uint            `json:"min_prizes"`
	StartTime      time.Time       `json:"start_time" binding:"required"`
	EndTime        time.Time       `json:"end_time" binding:"required"`
	TxHash         string          `json:"tx_hash" binding:"required"`
	Prizes         []PrizeRequest  `json:"prizes"`
}

// EnterRaffleRequest 购票请求
type EnterRaffleRequest struct {
	Address  string `json:"address" binding:"required"`
	Quantity uint   `json:"quantity" binding:"required,min=1"`
	TxHash   string `json:"tx_hash" binding:"required"`
}

// CreateAuctionRequest 创建拍卖请求
type CreateAuctionRequest struct {
	Title            string          `json:"title" binding:"required"`
	Description      string          `json:"description"`
	ImageURL         string          `json:"image_url"`
	CreatorAddress   string          `json:"creator_address" binding:"required"`
	EscrowAddress    string          `json:"escrow_address"`
	ReservePrice     decimal.Decimal `json:"reserve_price" binding:"required"`
	MinIncrementPct  uint            `json:"min_increment_pct"`
	BidMint          string          `json:"bid_mint"`
	StartTime        time.Time       `json:"start_time" binding:"required"`
	EndTime          time.Time       `json:"end_time" binding:"required"`
	ExtensionSeconds int64           `json:"extension_seconds"`
	TxHash           string          `json:"tx_hash" binding:"required"`
	Prize            PrizeRequest    `json:"prize" binding:"required"`
}

// PlaceBidRequest 出价请求
type PlaceBidRequest struct {
	Address string          `json:"address" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	TxHash  string          `json:"tx_hash" binding:"required"`
}

// CreateGumballRequest 创建扭蛋机请求
type CreateGumballRequest struct {
	Title            string          `json:"title" binding:"required"`
	Description      string          `json:"description"`
	ImageURL         string          `json:"image_url"`
	CreatorAddress   string          `json:"creator_address" binding:"required"`
	EscrowAddress    string          `json:"escrow_address"`
	RandomnessHandle string          `json:"randomness_handle" binding:"required"`
	SpinPrice        decimal.Decimal `json:"spin_price" binding:"required"`
	SpinMint         string          `json:"spin_mint"`
	StartTime        time.Time       `json:"start_time" binding:"required"`
	EndTime          time.Time       `json:"end_time" binding:"required"`
	TxHash           string          `json:"tx_hash" binding:"required"`
	Prizes           []PrizeRequest  `json:"prizes" binding:"required,min=1"`
}

// SpinRequest 扭蛋请求
type SpinRequest struct {
	Address string `json:"address" binding:"required"`
	TxHash  string `json:"tx_hash" binding:"required"`
}

// ClaimSpinRequest 扭蛋开奖领取请求
type ClaimSpinRequest struct {
	SpinId  int64  `json:"spin_id" binding:"required"`
	Address string `json:"address" binding:"required"`
	TxHash  string `json:"tx_hash" binding:"required"`
}

// ClaimRequest 领取请求（领奖/领货款）
type ClaimRequest struct {
	Address string `json:"address" binding:"required"`
	TxHash  string `json:"tx_hash" binding:"required"`
}

// ActionRequest 创建者操作请求（激活/取消/回购）
type ActionRequest struct {
	Caller string `json:"caller" binding:"required"`
	TxHash string `json:"tx_hash" binding:"required"`
}
