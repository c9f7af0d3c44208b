package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sh4d0wy/fox-backend/internal/config"
	"github.com/sh4d0wy/fox-backend/internal/journal"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuctionLogic 拍卖业务逻辑
type AuctionLogic struct {
	db       *gorm.DB
	checker  FinalityChecker
	defaults config.AuctionConfig
}

// NewAuctionLogic 创建拍卖业务逻辑。defaults 提供创建参数缺省时的
// soft close 窗口与最小加价百分比。
func NewAuctionLogic(db *gorm.DB, checker FinalityChecker, defaults config.AuctionConfig) *AuctionLogic {
	if defaults.MinIncrementPct == 0 {
		defaults.MinIncrementPct = 5
	}
	if defaults.ExtensionSeconds == 0 {
		defaults.ExtensionSeconds = 120
	}
	return &AuctionLogic{db: db, checker: checker, defaults: defaults}
}

// CreateAuctionParams 创建拍卖参数
type CreateAuctionParams struct {
	Title            string
	Description      string
	ImageURL         string
	CreatorAddress   string
	EscrowAddress    string
	ReservePrice     decimal.Decimal
	MinIncrementPct  uint
	BidMint          string
	StartTime        time.Time
	EndTime          time.Time
	ExtensionSeconds int64
	TxHash           string
	Prize            PrizeParams
}

// CreateAuction 创建拍卖活动
func (a *AuctionLogic) CreateAuction(ctx context.Context, params CreateAuctionParams) (*model.Auction, error) {
	if err := a.validateCreate(params); err != nil {
		return nil, err
	}
	if err := ensureFinalized(ctx, a.checker, params.TxHash); err != nil {
		return nil, err
	}

	now := time.Now()
	status, activatedAt := initialStatus(params.StartTime, now)

	auction := &model.Auction{
		RefCode:          uuid.NewString(),
		Title:            params.Title,
		Description:      params.Description,
		ImageURL:         params.ImageURL,
		ReservePrice:     params.ReservePrice,
		MinIncrementPct:  params.MinIncrementPct,
		BidMint:          params.BidMint,
		StartTime:        params.StartTime,
		EndTime:          params.EndTime,
		ActivatedAt:      activatedAt,
		ExtensionSeconds: params.ExtensionSeconds,
		Status:           status,
		CreatorAddress:   params.CreatorAddress,
		EscrowAddress:    params.EscrowAddress,
	}
	if auction.MinIncrementPct == 0 {
		auction.MinIncrementPct = a.defaults.MinIncrementPct
	}
	if auction.ExtensionSeconds == 0 {
		auction.ExtensionSeconds = a.defaults.ExtensionSeconds
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(a.db, params.TxHash, model.LedgerEventCampaignCreated, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			auction.TransactionHash = params.TxHash
			if err := tx.Create(auction).Error; err != nil {
				return err
			}

			prize := model.Prize{
				CampaignType:  string(model.CampaignKindAuction),
				CampaignID:    auction.Id,
				MintAddress:   params.Prize.MintAddress,
				IsNFT:         params.Prize.IsNFT,
				AmountPerUnit: params.Prize.AmountPerUnit,
				Quantity:      1, // 拍卖只有一件拍品
			}
			if err := tx.Create(&prize).Error; err != nil {
				return err
			}

			entry.FromAddress = params.CreatorAddress
			entry.ToAddress = params.EscrowAddress
			entry.CampaignType = string(model.CampaignKindAuction)
			entry.CampaignId = auction.Id
			entry.PrizeId = &prize.Id
			return nil
		})
	})
	if err != nil {
		return nil, wrapApply(err)
	}
	return auction, nil
}

// PlaceBid 出价。出价必须不低于保留价且超过当前最高价加最小加价
// 幅度；临近结束的有效出价触发 soft close，把结束时间顺延一个窗口，
// 防止狙击。聚合字段用带 bid_count 条件的更新落实，读到的快照被并
// 发改掉时从头重试。
func (a *AuctionLogic) PlaceBid(ctx context.Context, auctionId int64, address string, amount decimal.Decimal, txHash string) (*model.Bid, error) {
	if address == "" {
		return nil, invariantf("出价者地址不能为空")
	}
	if !amount.IsPositive() {
		return nil, invariantf("出价金额必须大于0")
	}
	if err := ensureFinalized(ctx, a.checker, txHash); err != nil {
		return nil, err
	}

	var bidRecord *model.Bid
	err := withConflictRetry(func() error {
		return journal.ApplyOnce(a.db, txHash, model.LedgerEventBidPlaced, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			auction, err := loadAuction(tx, auctionId)
			if err != nil {
				return err
			}
			now := time.Now()
			if err := ensureOpenWindow(auction, now); err != nil {
				return err
			}

			minBid := auction.MinNextBid()
			if amount.LessThan(minBid) {
				return invariantf("出价过低，当前最低有效出价为 %s", minBid.String())
			}

			// soft close：剩余时间不足一个延长窗口时顺延，否则保持不变
			extension := time.Duration(auction.ExtensionSeconds) * time.Second
			newEndTime := auction.EndTime
			if auction.EndTime.Sub(now) < extension {
				newEndTime = now.Add(extension)
			}

			var priorBids int64
			if err := tx.Model(&model.Bid{}).
				Where("auction_id = ? AND address = ?", auctionId, address).
				Count(&priorBids).Error; err != nil {
				return err
			}

			updates := map[string]interface{}{
				"current_bid":    amount,
				"current_bidder": address,
				"bid_count":      gorm.Expr("bid_count + 1"),
				"end_time":       newEndTime,
			}
			if priorBids == 0 {
				updates["participant_count"] = gorm.Expr("participant_count + 1")
			}
			res := tx.Model(&model.Auction{}).
				Where("id = ? AND status = ? AND bid_count = ?", auctionId, model.CampaignStatusActive, auction.BidCount).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			record := &model.Bid{
				AuctionId: auctionId,
				Address:   address,
				Amount:    amount,
				TxHash:    txHash,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
			bidRecord = record

			entry.FromAddress = address
			entry.ToAddress = auction.EscrowAddress
			entry.MintAddress = auction.BidMint
			entry.Amount = amount
			entry.CampaignType = string(model.CampaignKindAuction)
			entry.CampaignId = auctionId
			entry.ParticipationId = &record.Id
			return nil
		})
	})
	if err != nil {
		return nil, wrapApply(err)
	}
	return bidRecord, nil
}

// ClaimPrize 得标者领取拍品，只允许一次
func (a *AuctionLogic) ClaimPrize(ctx context.Context, auctionId int64, address, txHash string) error {
	if err := ensureFinalized(ctx, a.checker, txHash); err != nil {
		return err
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(a.db, txHash, model.LedgerEventPrizeClaim, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			auction, err := loadAuction(tx, auctionId)
			if err != nil {
				return err
			}
			if err := ensureSuccessEnded(auction); err != nil {
				return err
			}
			if !equalAddr(auction.CurrentBidder, address) {
				return invariantf("只有得标者可以领取拍品")
			}
			if auction.PrizeClaimed {
				return invariantf("拍品已领取，不能重复领取")
			}

			res := tx.Model(&model.Auction{}).
				Where("id = ? AND prize_claimed = false", auctionId).
				Update("prize_claimed", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			var prize model.Prize
			if err := tx.Where("campaign_type = ? AND campaign_id = ?", model.CampaignKindAuction, auctionId).
				First(&prize).Error; err == nil {
				if err := tx.Model(&prize).
					Where("quantity_claimed < quantity").
					Update("quantity_claimed", gorm.Expr("quantity_claimed + 1")).Error; err != nil {
					return err
				}
				entry.PrizeId = &prize.Id
			}

			entry.FromAddress = address
			entry.CampaignType = string(model.CampaignKindAuction)
			entry.CampaignId = auctionId
			return nil
		})
	})
	return wrapApply(err)
}

// ClaimProceeds 创建者领取货款，只允许一次
func (a *AuctionLogic) ClaimProceeds(ctx context.Context, auctionId int64, caller, txHash string) error {
	if err := ensureFinalized(ctx, a.checker, txHash); err != nil {
		return err
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(a.db, txHash, model.LedgerEventProceedsClaim, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			auction, err := loadAuction(tx, auctionId)
			if err != nil {
				return err
			}
			if err := ensureSuccessEnded(auction); err != nil {
				return err
			}
			if err := ensureCreator(auction, caller); err != nil {
				return err
			}
			if auction.ProceedsClaimed {
				return invariantf("货款已领取，不能重复领取")
			}
			// 流水做二次防线
			claimed, err := journal.Exists(tx, string(model.CampaignKindAuction), auctionId, caller, model.LedgerEventProceedsClaim)
			if err != nil {
				return err
			}
			if claimed {
				return invariantf("货款已领取，不能重复领取")
			}

			res := tx.Model(&model.Auction{}).
				Where("id = ? AND proceeds_claimed = false", auctionId).
				Update("proceeds_claimed", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			entry.FromAddress = caller
			entry.Amount = auction.CurrentBid
			entry.MintAddress = auction.BidMint
			entry.CampaignType = string(model.CampaignKindAuction)
			entry.CampaignId = auctionId
			return nil
		})
	})
	return wrapApply(err)
}

// CancelAuction 取消拍卖。仅限尚无出价时，且不可逆。
func (a *AuctionLogic) CancelAuction(ctx context.Context, auctionId int64, caller, txHash string) error {
	if err := ensureFinalized(ctx, a.checker, txHash); err != nil {
		return err
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(a.db, txHash, model.LedgerEventCampaignCancelled, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			auction, err := loadAuction(tx, auctionId)
			if err != nil {
				return err
			}
			if err := ensureCreator(auction, caller); err != nil {
				return err
			}
			if err := ensureCancellable(auction); err != nil {
				return err
			}

			res := tx.Model(&model.Auction{}).
				Where("id = ? AND bid_count = 0 AND status IN ?", auctionId,
					[]model.CampaignStatus{model.CampaignStatusInitialized, model.CampaignStatusActive}).
				Update("status", model.CampaignStatusCancelled)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			entry.FromAddress = caller
			entry.CampaignType = string(model.CampaignKindAuction)
			entry.CampaignId = auctionId
			return nil
		})
	})
	return wrapApply(err)
}

// GetAuctions 获取拍卖列表
func (a *AuctionLogic) GetAuctions(page, pageSize int) ([]model.Auction, int64, error) {
	var auctions []model.Auction
	var total int64

	if err := a.db.Model(&model.Auction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := a.db.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&auctions).Error; err != nil {
		return nil, 0, err
	}
	return auctions, total, nil
}

// GetAuction 获取拍卖详情
func (a *AuctionLogic) GetAuction(id int64) (*model.Auction, error) {
	var auction model.Auction
	if err := a.db.Preload("Prizes").First(&auction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invariantf("活动不存在")
		}
		return nil, fmt.Errorf("获取拍卖详情失败: %w", err)
	}
	return &auction, nil
}

// GetAuctionBids 获取拍卖出价记录
func (a *AuctionLogic) GetAuctionBids(auctionId int64, page, pageSize int) ([]model.Bid, int64, error) {
	var bids []model.Bid
	var total int64

	if err := a.db.Model(&model.Bid{}).Where("auction_id = ?", auctionId).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := a.db.Where("auction_id = ?", auctionId).
		Offset(offset).Limit(pageSize).Order("amount DESC").
		Find(&bids).Error; err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}

// validateCreate 创建参数校验
func (a *AuctionLogic) validateCreate(params CreateAuctionParams) error {
	if params.Title == "" {
		return invariantf("活动标题不能为空")
	}
	if params.CreatorAddress == "" {
		return invariantf("创建者地址不能为空")
	}
	if !params.ReservePrice.IsPositive() {
		return invariantf("保留价必须大于0")
	}
	if params.Prize.MintAddress == "" {
		return invariantf("拍品资产地址不能为空")
	}
	return validateWindow(params.StartTime, params.EndTime)
}

// loadAuction 事务内加载拍卖活动
func loadAuction(tx *gorm.DB, id int64) (*model.Auction, error) {
	var auction model.Auction
	if err := tx.First(&auction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invariantf("活动不存在")
		}
		return nil, err
	}
	return &auction, nil
}
