package logic

import (
	"context"
	"strings"
	"time"

	"github.com/sh4d0wy/fox-backend/internal/model"
)

// FinalityChecker 链上交易终局性校验。每个改动镜像库的对账调用
// 都必须先通过该校验；false 表示"暂不可用"，由客户端重试。
type FinalityChecker interface {
	IsFinalized(ctx context.Context, txHash string) bool
}

// RandomnessSource commit-reveal 随机数来源
type RandomnessSource interface {
	LoadRevealedValue(ctx context.Context, handle string) ([]byte, error)
	ForceReveal(ctx context.Context, handle string) (string, error)
}

// ensureFinalized 终局性校验守卫。注意校验发生在事务之外，事务内
// 仍要重新校验业务不变量——校验结果不保证事务执行时依然成立。
func ensureFinalized(ctx context.Context, checker FinalityChecker, txHash string) error {
	if txHash == "" {
		return invariantf("交易哈希不能为空")
	}
	if !checker.IsFinalized(ctx, txHash) {
		return &Error{Kind: KindUnconfirmed, Message: "链上交易尚未终局，请稍后重试"}
	}
	return nil
}

// ensureTransition 状态迁移守卫，状态只能沿偏序向前走
func ensureTransition(c model.Campaign, to model.CampaignStatus) error {
	if c.CurrentStatus().IsTerminal() {
		return invariantf("活动已进入终态 %s，状态不可再变更", c.CurrentStatus())
	}
	if !model.CanTransition(c.CurrentStatus(), to) {
		return invariantf("活动状态 %s 不允许迁移到 %s", c.CurrentStatus(), to)
	}
	return nil
}

// ensureOpenWindow 参与守卫：活动进行中且当前时间落在窗口内
func ensureOpenWindow(c model.Campaign, now time.Time) error {
	if c.CurrentStatus() != model.CampaignStatusActive {
		return invariantf("活动不在进行中，无法参与")
	}
	start, end := c.Window()
	if now.Before(start) {
		return invariantf("活动尚未开始")
	}
	if !now.Before(end) {
		return invariantf("活动已结束")
	}
	return nil
}

// equalAddr 地址比较不区分大小写
func equalAddr(a, b string) bool { return strings.EqualFold(a, b) }

// ensureCreator 创建者权限守卫
func ensureCreator(c model.Campaign, caller string) error {
	if !equalAddr(c.CreatorAddr(), caller) {
		return invariantf("只有活动创建者可以执行该操作")
	}
	return nil
}

// ensureCancellable 取消守卫：仅限尚无任何参与的活动，不可逆
func ensureCancellable(c model.Campaign) error {
	if err := ensureTransition(c, model.CampaignStatusCancelled); err != nil {
		return err
	}
	if c.HasParticipation() {
		return invariantf("活动已有参与记录，不可取消")
	}
	return nil
}

// ensureSuccessEnded 领取守卫：活动必须已成功结束
func ensureSuccessEnded(c model.Campaign) error {
	if c.CurrentStatus() != model.CampaignStatusSuccess {
		return invariantf("活动尚未成功结束，无法领取")
	}
	return nil
}

// validateWindow 创建时的时间窗口校验，结束必须严格晚于开始
func validateWindow(start, end time.Time) error {
	if !end.After(start) {
		return invariantf("结束时间必须晚于开始时间")
	}
	return nil
}

// initialStatus 创建时的初始状态：开始时间已过则直接进入进行中
func initialStatus(start, now time.Time) (model.CampaignStatus, *time.Time) {
	if !now.Before(start) {
		activatedAt := now
		return model.CampaignStatusActive, &activatedAt
	}
	return model.CampaignStatusInitialized, nil
}
