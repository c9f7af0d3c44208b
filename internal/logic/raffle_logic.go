package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sh4d0wy/fox-backend/internal/journal"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RaffleLogic 抽奖业务逻辑
type RaffleLogic struct {
	db      *gorm.DB
	checker FinalityChecker
}

// NewRaffleLogic 创建抽奖业务逻辑
func NewRaffleLogic(db *gorm.DB, checker FinalityChecker) *RaffleLogic {
	return &RaffleLogic{db: db, checker: checker}
}

// PrizeParams 创建活动时的奖品参数
type PrizeParams struct {
	MintAddress   string          `json:"mint_address"`
	IsNFT         bool            `json:"is_nft"`
	AmountPerUnit decimal.Decimal `json:"amount_per_unit"`
	Quantity      uint            `json:"quantity"`
}

// CreateRaffleParams 创建抽奖参数
type CreateRaffleParams struct {
	Title          string
	Description    string
	ImageURL       string
	CreatorAddress string
	EscrowAddress  string
	TicketPrice    decimal.Decimal
	TicketMint     string
	TicketSupply   uint
	MaxPerUser     uint
	MinPrizes      uint
	StartTime      time.Time
	EndTime        time.Time
	TxHash         string
	Prizes         []PrizeParams
}

// CreateRaffle 创建抽奖活动。创建交易已由客户端广播，这里先校验
// 终局性，再在一个事务内落库并登记流水。
func (r *RaffleLogic) CreateRaffle(ctx context.Context, params CreateRaffleParams) (*model.Raffle, error) {
	if err := r.validateCreate(params); err != nil {
		return nil, err
	}
	if err := ensureFinalized(ctx, r.checker, params.TxHash); err != nil {
		return nil, err
	}

	now := time.Now()
	status, activatedAt := initialStatus(params.StartTime, now)

	raffle := &model.Raffle{
		RefCode:        uuid.NewString(),
		Title:          params.Title,
		Description:    params.Description,
		ImageURL:       params.ImageURL,
		TicketPrice:    params.TicketPrice,
		TicketMint:     params.TicketMint,
		TicketSupply:   params.TicketSupply,
		MaxPerUser:     params.MaxPerUser,
		MinPrizes:      params.MinPrizes,
		MaxProceeds:    params.TicketPrice.Mul(decimal.NewFromInt(int64(params.TicketSupply))),
		StartTime:      params.StartTime,
		EndTime:        params.EndTime,
		ActivatedAt:    activatedAt,
		Status:         status,
		CreatorAddress: params.CreatorAddress,
		EscrowAddress:  params.EscrowAddress,
	}
	if raffle.MinPrizes == 0 {
		raffle.MinPrizes = 1
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(r.db, params.TxHash, model.LedgerEventCampaignCreated, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			raffle.TransactionHash = params.TxHash
			if err := tx.Create(raffle).Error; err != nil {
				return err
			}

			prizeValue := decimal.Zero
			for _, p := range params.Prizes {
				prize := model.Prize{
					CampaignType:  string(model.CampaignKindRaffle),
					CampaignID:    raffle.Id,
					MintAddress:   p.MintAddress,
					IsNFT:         p.IsNFT,
					AmountPerUnit: p.AmountPerUnit,
					Quantity:      p.Quantity,
				}
				if err := tx.Create(&prize).Error; err != nil {
					return err
				}
				prizeValue = prizeValue.Add(p.AmountPerUnit.Mul(decimal.NewFromInt(int64(p.Quantity))))
			}
			if err := tx.Model(raffle).Update("prize_value", prizeValue).Error; err != nil {
				return err
			}

			entry.FromAddress = params.CreatorAddress
			entry.ToAddress = params.EscrowAddress
			entry.CampaignType = string(model.CampaignKindRaffle)
			entry.CampaignId = raffle.Id
			return nil
		})
	})
	if err != nil {
		return nil, wrapApply(err)
	}
	return raffle, nil
}

// ActivateRaffle 激活抽奖。只允许创建者在 initialized 状态下、奖品
// 数量达到门槛后执行一次。
func (r *RaffleLogic) ActivateRaffle(ctx context.Context, raffleId int64, caller, txHash string) error {
	if err := ensureFinalized(ctx, r.checker, txHash); err != nil {
		return err
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(r.db, txHash, model.LedgerEventCampaignActivated, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			raffle, err := loadRaffle(tx, raffleId)
			if err != nil {
				return err
			}
			if raffle.Status != model.CampaignStatusInitialized {
				return invariantf("活动状态 %s 不允许激活", raffle.Status)
			}
			if err := ensureCreator(raffle, caller); err != nil {
				return err
			}

			var prizeCount int64
			if err := tx.Model(&model.Prize{}).
				Where("campaign_type = ? AND campaign_id = ?", model.CampaignKindRaffle, raffleId).
				Count(&prizeCount).Error; err != nil {
				return err
			}
			if prizeCount < int64(raffle.MinPrizes) {
				return invariantf("奖品数量不足，至少需要 %d 件", raffle.MinPrizes)
			}

			now := time.Now()
			if err := tx.Model(raffle).Updates(map[string]interface{}{
				"status":       model.CampaignStatusActive,
				"activated_at": now,
			}).Error; err != nil {
				return err
			}

			entry.FromAddress = caller
			entry.CampaignType = string(model.CampaignKindRaffle)
			entry.CampaignId = raffleId
			return nil
		})
	})
	return wrapApply(err)
}

// Enter 购票。容量校验通过条件更新落实：tickets_sold 加量后不得
// 超过 ticket_supply，没命中任何行说明容量不足或状态已被并发改掉，
// 交给重试从头再校验。
func (r *RaffleLogic) Enter(ctx context.Context, raffleId int64, address string, quantity uint, txHash string) (*model.Entry, error) {
	if quantity == 0 {
		return nil, invariantf("购票数量必须大于0")
	}
	if address == "" {
		return nil, invariantf("参与者地址不能为空")
	}
	if err := ensureFinalized(ctx, r.checker, txHash); err != nil {
		return nil, err
	}

	var entryRecord *model.Entry
	err := withConflictRetry(func() error {
		return journal.ApplyOnce(r.db, txHash, model.LedgerEventTicketPurchase, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			raffle, err := loadRaffle(tx, raffleId)
			if err != nil {
				return err
			}
			if err := ensureOpenWindow(raffle, time.Now()); err != nil {
				return err
			}
			if quantity > raffle.TicketsRemaining() {
				return invariantf("剩余票量不足：剩余 %d 张，请求 %d 张", raffle.TicketsRemaining(), quantity)
			}

			// 单人限购
			if raffle.MaxPerUser > 0 {
				var bought int64
				if err := tx.Model(&model.Entry{}).
					Where("raffle_id = ? AND address = ?", raffleId, address).
					Select("COALESCE(SUM(ticket_count), 0)").Scan(&bought).Error; err != nil {
					return err
				}
				if uint(bought)+quantity > raffle.MaxPerUser {
					return invariantf("超过单人限购 %d 张", raffle.MaxPerUser)
				}
			}

			amount := raffle.TicketPrice.Mul(decimal.NewFromInt(int64(quantity)))

			var priorEntries int64
			if err := tx.Model(&model.Entry{}).
				Where("raffle_id = ? AND address = ?", raffleId, address).
				Count(&priorEntries).Error; err != nil {
				return err
			}

			updates := map[string]interface{}{
				"tickets_sold": gorm.Expr("tickets_sold + ?", quantity),
				"proceeds":     gorm.Expr("proceeds + ?", amount),
			}
			if priorEntries == 0 {
				updates["participant_count"] = gorm.Expr("participant_count + 1")
			}
			res := tx.Model(&model.Raffle{}).
				Where("id = ? AND status = ? AND tickets_sold + ? <= ticket_supply",
					raffleId, model.CampaignStatusActive, quantity).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			record := &model.Entry{
				RaffleId:    raffleId,
				Address:     address,
				TicketCount: quantity,
				Amount:      amount,
				TxHash:      txHash,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
			entryRecord = record

			entry.FromAddress = address
			entry.ToAddress = raffle.EscrowAddress
			entry.MintAddress = raffle.TicketMint
			entry.Amount = amount
			entry.CampaignType = string(model.CampaignKindRaffle)
			entry.CampaignId = raffleId
			entry.ParticipationId = &record.Id
			return nil
		})
	})
	if err != nil {
		return nil, wrapApply(err)
	}
	return entryRecord, nil
}

// WinnersDrawn 链下开奖结果
type WinnersDrawn struct {
	RaffleId    int64
	Winners     []string
	PrizeIds    []int64
	TxHash      string
	BlockNumber uint64
}

// MarkWinners 链下开奖进程（经监控器）回写中奖名单。在名单落库之前
// claimPrize 一律拒绝。
func (r *RaffleLogic) MarkWinners(event WinnersDrawn) error {
	err := withConflictRetry(func() error {
		return journal.ApplyOnce(r.db, event.TxHash, model.LedgerEventWinnersDrawn, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			raffle, err := loadRaffle(tx, event.RaffleId)
			if err != nil {
				return err
			}
			// 链上开奖可能先于状态巡检任务到达。活动窗口已关闭且有销量
			// 的情况下，开奖事件本身就是成功结束的凭据，直接落状态
			if raffle.Status == model.CampaignStatusActive &&
				time.Now().After(raffle.EndTime) && raffle.TicketsSold > 0 {
				res := tx.Model(&model.Raffle{}).
					Where("id = ? AND status = ?", raffle.Id, model.CampaignStatusActive).
					Update("status", model.CampaignStatusSuccess)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errStaleState
				}
				raffle.Status = model.CampaignStatusSuccess
			}
			if raffle.Status != model.CampaignStatusSuccess {
				return invariantf("活动尚未成功结束，不能回写中奖名单")
			}
			if raffle.WinnerPicked {
				return invariantf("中奖名单已回写")
			}

			for i, winner := range event.Winners {
				var winnerEntry model.Entry
				err := tx.Where("raffle_id = ? AND address = ? AND is_winner = false", event.RaffleId, winner).
					Order("id").First(&winnerEntry).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return invariantf("中奖者 %s 没有可标记的购票记录", winner)
					}
					return err
				}
				updates := map[string]interface{}{"is_winner": true}
				if i < len(event.PrizeIds) {
					updates["prize_id"] = event.PrizeIds[i]
				}
				if err := tx.Model(&winnerEntry).Updates(updates).Error; err != nil {
					return err
				}
			}

			if err := tx.Model(raffle).Update("winner_picked", true).Error; err != nil {
				return err
			}

			entry.CampaignType = string(model.CampaignKindRaffle)
			entry.CampaignId = event.RaffleId
			entry.BlockNumber = event.BlockNumber
			return nil
		})
	})
	return wrapApply(err)
}

// ClaimPrize 中奖者领奖。要求活动成功结束、名单已回写、调用者在
// 名单内，且同一条中奖记录只能领取一次。
func (r *RaffleLogic) ClaimPrize(ctx context.Context, raffleId int64, address, txHash string) error {
	if err := ensureFinalized(ctx, r.checker, txHash); err != nil {
		return err
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(r.db, txHash, model.LedgerEventPrizeClaim, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			raffle, err := loadRaffle(tx, raffleId)
			if err != nil {
				return err
			}
			if err := ensureSuccessEnded(raffle); err != nil {
				return err
			}
			if !raffle.WinnerPicked {
				return invariantf("中奖名单尚未回写，暂不能领奖")
			}
			// 流水做二次防线：同一地址换一笔交易哈希也领不到第二次
			claimed, err := journal.Exists(tx, string(model.CampaignKindRaffle), raffleId, address, model.LedgerEventPrizeClaim)
			if err != nil {
				return err
			}
			if claimed {
				return invariantf("该地址已领取过奖品，不能重复领奖")
			}

			var winnerEntry model.Entry
			err = tx.Where("raffle_id = ? AND address = ? AND is_winner = true", raffleId, address).
				Order("claimed, id").First(&winnerEntry).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return invariantf("该地址不在中奖名单内")
				}
				return err
			}
			if winnerEntry.Claimed {
				return invariantf("该中奖记录已领取，不能重复领奖")
			}

			if winnerEntry.PrizeId != nil {
				res := tx.Model(&model.Prize{}).
					Where("id = ? AND quantity_claimed < quantity", *winnerEntry.PrizeId).
					Update("quantity_claimed", gorm.Expr("quantity_claimed + 1"))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return invariantf("奖品已全部领完")
				}
				entry.PrizeId = winnerEntry.PrizeId
			}

			if err := tx.Model(&winnerEntry).Updates(map[string]interface{}{
				"claimed":       true,
				"claim_tx_hash": txHash,
			}).Error; err != nil {
				return err
			}

			entry.FromAddress = address
			entry.CampaignType = string(model.CampaignKindRaffle)
			entry.CampaignId = raffleId
			entry.ParticipationId = &winnerEntry.Id
			return nil
		})
	})
	return wrapApply(err)
}

// CancelRaffle 取消抽奖。仅限尚无人购票时，且不可逆。
func (r *RaffleLogic) CancelRaffle(ctx context.Context, raffleId int64, caller, txHash string) error {
	if err := ensureFinalized(ctx, r.checker, txHash); err != nil {
		return err
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(r.db, txHash, model.LedgerEventCampaignCancelled, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			raffle, err := loadRaffle(tx, raffleId)
			if err != nil {
				return err
			}
			if err := ensureCreator(raffle, caller); err != nil {
				return err
			}
			if err := ensureCancellable(raffle); err != nil {
				return err
			}

			res := tx.Model(&model.Raffle{}).
				Where("id = ? AND tickets_sold = 0 AND status IN ?", raffleId,
					[]model.CampaignStatus{model.CampaignStatusInitialized, model.CampaignStatusActive}).
				Update("status", model.CampaignStatusCancelled)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			entry.FromAddress = caller
			entry.CampaignType = string(model.CampaignKindRaffle)
			entry.CampaignId = raffleId
			return nil
		})
	})
	return wrapApply(err)
}

// GetRaffles 获取抽奖列表
func (r *RaffleLogic) GetRaffles(page, pageSize int) ([]model.Raffle, int64, error) {
	var raffles []model.Raffle
	var total int64

	if err := r.db.Model(&model.Raffle{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := r.db.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&raffles).Error; err != nil {
		return nil, 0, err
	}
	return raffles, total, nil
}

// GetRaffle 获取抽奖详情
func (r *RaffleLogic) GetRaffle(id int64) (*model.Raffle, error) {
	var raffle model.Raffle
	if err := r.db.Preload("Prizes").First(&raffle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invariantf("活动不存在")
		}
		return nil, fmt.Errorf("获取抽奖详情失败: %w", err)
	}
	return &raffle, nil
}

// GetRaffleEntries 获取抽奖购票记录
func (r *RaffleLogic) GetRaffleEntries(raffleId int64, page, pageSize int) ([]model.Entry, int64, error) {
	var entries []model.Entry
	var total int64

	if err := r.db.Model(&model.Entry{}).Where("raffle_id = ?", raffleId).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := r.db.Where("raffle_id = ?", raffleId).
		Offset(offset).Limit(pageSize).Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// validateCreate 创建参数校验
func (r *RaffleLogic) validateCreate(params CreateRaffleParams) error {
	if params.Title == "" {
		return invariantf("活动标题不能为空")
	}
	if params.CreatorAddress == "" {
		return invariantf("创建者地址不能为空")
	}
	if !params.TicketPrice.IsPositive() {
		return invariantf("票价必须大于0")
	}
	if params.TicketSupply == 0 {
		return invariantf("票量必须大于0")
	}
	return validateWindow(params.StartTime, params.EndTime)
}

// loadRaffle 事务内加载抽奖活动
func loadRaffle(tx *gorm.DB, id int64) (*model.Raffle, error) {
	var raffle model.Raffle
	if err := tx.First(&raffle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invariantf("活动不存在")
		}
		return nil, err
	}
	return &raffle, nil
}
