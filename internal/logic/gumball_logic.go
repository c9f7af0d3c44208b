package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sh4d0wy/fox-backend/internal/chain"
	"github.com/sh4d0wy/fox-backend/internal/journal"
	"github.com/sh4d0wy/fox-backend/internal/logger"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GumballLogic 扭蛋机业务逻辑
type GumballLogic struct {
	db      *gorm.DB
	checker FinalityChecker
	rng     RandomnessSource
}

// NewGumballLogic 创建扭蛋机业务逻辑
func NewGumballLogic(db *gorm.DB, checker FinalityChecker, rng RandomnessSource) *GumballLogic {
	return &GumballLogic{db: db, checker: checker, rng: rng}
}

// CreateGumballParams 创建扭蛋机参数
type CreateGumballParams struct {
	Title            string
	Description      string
	ImageURL         string
	CreatorAddress   string
	EscrowAddress    string
	RandomnessHandle string
	SpinPrice        decimal.Decimal
	SpinMint         string
	StartTime        time.Time
	EndTime          time.Time
	TxHash           string
	Prizes           []PrizeParams
}

// CreateGumball 创建扭蛋机。总槽位数等于全部奖品份数之和。
func (g *GumballLogic) CreateGumball(ctx context.Context, params CreateGumballParams) (*model.Gumball, error) {
	if err := g.validateCreate(params); err != nil {
		return nil, err
	}
	if err := ensureFinalized(ctx, g.checker, params.TxHash); err != nil {
		return nil, err
	}

	var totalSlots uint
	prizeValue := decimal.Zero
	for _, p := range params.Prizes {
		totalSlots += p.Quantity
		prizeValue = prizeValue.Add(p.AmountPerUnit.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	if totalSlots == 0 {
		return nil, invariantf("扭蛋机至少需要一个奖品槽位")
	}

	now := time.Now()
	status, activatedAt := initialStatus(params.StartTime, now)

	gumball := &model.Gumball{
		RefCode:          uuid.NewString(),
		Title:            params.Title,
		Description:      params.Description,
		ImageURL:         params.ImageURL,
		SpinPrice:        params.SpinPrice,
		SpinMint:         params.SpinMint,
		TotalSlots:       totalSlots,
		SlotsRemaining:   totalSlots,
		PrizeValue:       prizeValue,
		StartTime:        params.StartTime,
		EndTime:          params.EndTime,
		ActivatedAt:      activatedAt,
		Status:           status,
		CreatorAddress:   params.CreatorAddress,
		EscrowAddress:    params.EscrowAddress,
		RandomnessHandle: params.RandomnessHandle,
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(g.db, params.TxHash, model.LedgerEventCampaignCreated, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			gumball.TransactionHash = params.TxHash
			if err := tx.Create(gumball).Error; err != nil {
				return err
			}

			for _, p := range params.Prizes {
				prize := model.Prize{
					CampaignType:  string(model.CampaignKindGumball),
					CampaignID:    gumball.Id,
					MintAddress:   p.MintAddress,
					IsNFT:         p.IsNFT,
					AmountPerUnit: p.AmountPerUnit,
					Quantity:      p.Quantity,
				}
				if err := tx.Create(&prize).Error; err != nil {
					return err
				}
			}

			entry.FromAddress = params.CreatorAddress
			entry.ToAddress = params.EscrowAddress
			entry.CampaignType = string(model.CampaignKindGumball)
			entry.CampaignId = gumball.Id
			return nil
		})
	})
	if err != nil {
		return nil, wrapApply(err)
	}
	return gumball, nil
}

// Spin 扭蛋。只预留参与槽位并扣减余量，不消耗随机数——开奖在
// Claim 中完成，因为随机数揭示是异步的。
func (g *GumballLogic) Spin(ctx context.Context, gumballId int64, address, txHash string) (*model.Spin, error) {
	if address == "" {
		return nil, invariantf("参与者地址不能为空")
	}
	if err := ensureFinalized(ctx, g.checker, txHash); err != nil {
		return nil, err
	}

	var spinRecord *model.Spin
	err := withConflictRetry(func() error {
		return journal.ApplyOnce(g.db, txHash, model.LedgerEventSpinPurchase, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			gumball, err := loadGumball(tx, gumballId)
			if err != nil {
				return err
			}
			if err := ensureOpenWindow(gumball, time.Now()); err != nil {
				return err
			}
			if gumball.SlotsRemaining == 0 {
				return invariantf("扭蛋机槽位已售罄")
			}

			var priorSpins int64
			if err := tx.Model(&model.Spin{}).
				Where("gumball_id = ? AND address = ?", gumballId, address).
				Count(&priorSpins).Error; err != nil {
				return err
			}

			updates := map[string]interface{}{
				"slots_remaining": gorm.Expr("slots_remaining - 1"),
				"spins_sold":      gorm.Expr("spins_sold + 1"),
				"proceeds":        gorm.Expr("proceeds + ?", gumball.SpinPrice),
			}
			if priorSpins == 0 {
				updates["participant_count"] = gorm.Expr("participant_count + 1")
			}
			res := tx.Model(&model.Gumball{}).
				Where("id = ? AND status = ? AND slots_remaining > 0", gumballId, model.CampaignStatusActive).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			record := &model.Spin{
				GumballId: gumballId,
				Address:   address,
				Amount:    gumball.SpinPrice,
				TxHash:    txHash,
				Status:    model.SpinStatusPending,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
			spinRecord = record

			entry.FromAddress = address
			entry.ToAddress = gumball.EscrowAddress
			entry.MintAddress = gumball.SpinMint
			entry.Amount = gumball.SpinPrice
			entry.CampaignType = string(model.CampaignKindGumball)
			entry.CampaignId = gumballId
			entry.ParticipationId = &record.Id
			return nil
		})
	})
	if err != nil {
		return nil, wrapApply(err)
	}
	return spinRecord, nil
}

// Claim 扭蛋开奖并领取。随机数读取发生在事务之外；未揭示时先发起
// 揭示交易并返回 KindUnrevealed 让调用方轮询。拿到揭示值后在一个
// 事务内重建奖品映射、定位中奖奖品、校验余量，再把扭蛋记录从
// pending 一次性迁移到 resolved 并累加奖品领取数。中奖奖品被并发
// 领完时整体失败，不产生任何半写。
func (g *GumballLogic) Claim(ctx context.Context, gumballId, spinId int64, address, txHash string) (*model.Spin, error) {
	if err := ensureFinalized(ctx, g.checker, txHash); err != nil {
		return nil, err
	}

	// 随机数读取是外部调用，必须在原子单元之外完成
	var pre model.Gumball
	if err := g.db.First(&pre, gumballId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invariantf("活动不存在")
		}
		return nil, err
	}

	revealed, err := g.rng.LoadRevealedValue(ctx, pre.RandomnessHandle)
	if err != nil {
		if errors.Is(err, chain.ErrNotRevealed) {
			if err := g.forceRevealOnce(ctx, &pre); err != nil {
				return nil, err
			}
			return nil, &Error{Kind: KindUnrevealed, Message: "随机数尚未揭示，已发起揭示交易，请稍后重试"}
		}
		return nil, &Error{Kind: KindNetwork, Message: "读取随机数失败", Err: err}
	}

	var resolved *model.Spin
	err = withConflictRetry(func() error {
		return journal.ApplyOnce(g.db, txHash, model.LedgerEventPrizeClaim, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			var spin model.Spin
			if err := tx.Where("id = ? AND gumball_id = ?", spinId, gumballId).First(&spin).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return invariantf("扭蛋记录不存在")
				}
				return err
			}
			if !equalAddr(spin.Address, address) {
				return invariantf("只有扭蛋购买者可以领取")
			}
			if spin.Status == model.SpinStatusResolved {
				return invariantf("该扭蛋已开奖领取，不能重复领取")
			}

			// 事务内重建奖品映射：按奖品ID升序，每件奖品按剩余份数展开，
			// 与链上程序的槽位布局保持一致
			var prizes []model.Prize
			if err := tx.Where("campaign_type = ? AND campaign_id = ?", model.CampaignKindGumball, gumballId).
				Order("id").Find(&prizes).Error; err != nil {
				return err
			}
			var prizeMap []int64
			for _, p := range prizes {
				if p.Exhausted() {
					continue
				}
				for n := p.QuantityClaimed; n < p.Quantity; n++ {
					prizeMap = append(prizeMap, p.Id)
				}
			}
			if len(prizeMap) == 0 {
				return invariantf("没有剩余奖品可开")
			}

			targetIndex, prizeId, err := chain.ResolveWinner(revealed, uint64(len(prizeMap)), prizeMap)
			if err != nil {
				if errors.Is(err, chain.ErrNotRevealed) {
					return &Error{Kind: KindUnrevealed, Message: "随机数尚未揭示"}
				}
				return err
			}

			// 中奖奖品可能已被并发领完，条件更新没命中就干净失败
			res := tx.Model(&model.Prize{}).
				Where("id = ? AND quantity_claimed < quantity", prizeId).
				Update("quantity_claimed", gorm.Expr("quantity_claimed + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return invariantf("中奖奖品已被领完，请重试")
			}

			res = tx.Model(&model.Spin{}).
				Where("id = ? AND status = ?", spinId, model.SpinStatusPending).
				Updates(map[string]interface{}{
					"status":        model.SpinStatusResolved,
					"prize_id":      prizeId,
					"target_index":  targetIndex,
					"claim_tx_hash": txHash,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			spin.Status = model.SpinStatusResolved
			spin.PrizeId = &prizeId
			spin.TargetIndex = &targetIndex
			spin.ClaimTxHash = txHash
			resolved = &spin

			entry.FromAddress = address
			entry.CampaignType = string(model.CampaignKindGumball)
			entry.CampaignId = gumballId
			entry.PrizeId = &prizeId
			entry.ParticipationId = &spin.Id
			return nil
		})
	})
	if err != nil {
		return nil, wrapApply(err)
	}
	return resolved, nil
}

// forceRevealOnce 发起随机数揭示交易并落流水。同一台扭蛋机只发起一次，
// 后续轮询直接等已发出的揭示交易生效，避免重复上链。
func (g *GumballLogic) forceRevealOnce(ctx context.Context, gumball *model.Gumball) error {
	forced, err := journal.ExistsForCampaign(g.db, string(model.CampaignKindGumball), gumball.Id, model.LedgerEventRandomnessReveal)
	if err != nil {
		return err
	}
	if forced {
		return nil
	}

	revealTx, err := g.rng.ForceReveal(ctx, gumball.RandomnessHandle)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "发起随机数揭示失败", Err: err}
	}
	logger.Info("Gumball %d randomness reveal forced, tx %s", gumball.Id, revealTx)

	err = journal.ApplyOnce(g.db, revealTx, model.LedgerEventRandomnessReveal, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
		entry.CampaignType = string(model.CampaignKindGumball)
		entry.CampaignId = gumball.Id
		entry.Metadata = gumball.RandomnessHandle
		return nil
	})
	if err != nil && !errors.Is(err, journal.ErrDuplicate) {
		return err
	}
	return nil
}

// BuyBack 创建者回购剩余槽位，提前收机。要求所有已售扭蛋都已开奖
// 领取；有过销量按成功结束，否则按失败结束。
func (g *GumballLogic) BuyBack(ctx context.Context, gumballId int64, caller, txHash string) error {
	if err := ensureFinalized(ctx, g.checker, txHash); err != nil {
		return err
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(g.db, txHash, model.LedgerEventBuyBack, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			gumball, err := loadGumball(tx, gumballId)
			if err != nil {
				return err
			}
			if err := ensureCreator(gumball, caller); err != nil {
				return err
			}
			if gumball.Status != model.CampaignStatusActive {
				return invariantf("活动不在进行中，无法回购")
			}

			var pendingSpins int64
			if err := tx.Model(&model.Spin{}).
				Where("gumball_id = ? AND status = ?", gumballId, model.SpinStatusPending).
				Count(&pendingSpins).Error; err != nil {
				return err
			}
			if pendingSpins > 0 {
				return invariantf("还有 %d 个扭蛋未开奖，不能回购", pendingSpins)
			}

			finalStatus := model.CampaignStatusFailed
			if gumball.SpinsSold > 0 {
				finalStatus = model.CampaignStatusSuccess
			}

			res := tx.Model(&model.Gumball{}).
				Where("id = ? AND status = ?", gumballId, model.CampaignStatusActive).
				Updates(map[string]interface{}{
					"status":          finalStatus,
					"slots_remaining": 0,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			entry.FromAddress = caller
			entry.CampaignType = string(model.CampaignKindGumball)
			entry.CampaignId = gumballId
			return nil
		})
	})
	return wrapApply(err)
}

// CancelGumball 取消扭蛋机。仅限尚无人扭蛋时，且不可逆。
func (g *GumballLogic) CancelGumball(ctx context.Context, gumballId int64, caller, txHash string) error {
	if err := ensureFinalized(ctx, g.checker, txHash); err != nil {
		return err
	}

	err := withConflictRetry(func() error {
		return journal.ApplyOnce(g.db, txHash, model.LedgerEventCampaignCancelled, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
			gumball, err := loadGumball(tx, gumballId)
			if err != nil {
				return err
			}
			if err := ensureCreator(gumball, caller); err != nil {
				return err
			}
			if err := ensureCancellable(gumball); err != nil {
				return err
			}

			res := tx.Model(&model.Gumball{}).
				Where("id = ? AND spins_sold = 0 AND status IN ?", gumballId,
					[]model.CampaignStatus{model.CampaignStatusInitialized, model.CampaignStatusActive}).
				Update("status", model.CampaignStatusCancelled)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState
			}

			entry.FromAddress = caller
			entry.CampaignType = string(model.CampaignKindGumball)
			entry.CampaignId = gumballId
			return nil
		})
	})
	return wrapApply(err)
}

// GetGumballs 获取扭蛋机列表
func (g *GumballLogic) GetGumballs(page, pageSize int) ([]model.Gumball, int64, error) {
	var gumballs []model.Gumball
	var total int64

	if err := g.db.Model(&model.Gumball{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := g.db.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&gumballs).Error; err != nil {
		return nil, 0, err
	}
	return gumballs, total, nil
}

// GetGumball 获取扭蛋机详情
func (g *GumballLogic) GetGumball(id int64) (*model.Gumball, error) {
	var gumball model.Gumball
	if err := g.db.Preload("Prizes").First(&gumball, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invariantf("活动不存在")
		}
		return nil, fmt.Errorf("获取扭蛋机详情失败: %w", err)
	}
	return &gumball, nil
}

// GetGumballSpins 获取扭蛋记录
func (g *GumballLogic) GetGumballSpins(gumballId int64, page, pageSize int) ([]model.Spin, int64, error) {
	var spins []model.Spin
	var total int64

	if err := g.db.Model(&model.Spin{}).Where("gumball_id = ?", gumballId).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := g.db.Where("gumball_id = ?", gumballId).
		Offset(offset).Limit(pageSize).Order("created_at DESC").
		Find(&spins).Error; err != nil {
		return nil, 0, err
	}
	return spins, total, nil
}

// validateCreate 创建参数校验
func (g *GumballLogic) validateCreate(params CreateGumballParams) error {
	if params.Title == "" {
		return invariantf("活动标题不能为空")
	}
	if params.CreatorAddress == "" {
		return invariantf("创建者地址不能为空")
	}
	if !params.SpinPrice.IsPositive() {
		return invariantf("扭蛋单价必须大于0")
	}
	if params.RandomnessHandle == "" {
		return invariantf("随机数账户不能为空")
	}
	if len(params.Prizes) == 0 {
		return invariantf("扭蛋机至少需要一件奖品")
	}
	return validateWindow(params.StartTime, params.EndTime)
}

// loadGumball 事务内加载扭蛋机
func loadGumball(tx *gorm.DB, id int64) (*model.Gumball, error) {
	var gumball model.Gumball
	if err := tx.First(&gumball, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invariantf("活动不存在")
		}
		return nil, err
	}
	return &gumball, nil
}
