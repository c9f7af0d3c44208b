package journal

import (
	"errors"

	"github.com/sh4d0wy/fox-backend/internal/model"
	"gorm.io/gorm"
)

// ErrDuplicate 同一笔链上交易已被消费过。对调用方而言是幂等重放，
// 属于良性结果，不应向终端用户报错。
var ErrDuplicate = errors.New("交易已处理，忽略重复请求")

// MutateFunc 活动相关的状态变更。entry 由 ApplyOnce 预填 TxHash 与
// EventType，mutate 负责补齐其余关联字段（活动、奖品、参与记录）。
type MutateFunc func(tx *gorm.DB, entry *model.LedgerTransaction) error

// ApplyOnce 在一个数据库事务内完成"查重 → 业务变更 → 落流水"三步。
// 先查 tx_hash 是否已有流水，有则整体放弃并返回 ErrDuplicate，不触碰
// 任何其他表；否则执行业务变更，再插入流水行并提交。并发场景下即使
// 两个事务同时通过查重，tx_hash 上的唯一索引也会让后提交者失败，
// 保证同一外部事件恰好被应用一次。
func ApplyOnce(db *gorm.DB, txHash string, eventType model.LedgerEventType, mutate MutateFunc) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var existing model.LedgerTransaction
		err := tx.Where("tx_hash = ?", txHash).First(&existing).Error
		if err == nil {
			return ErrDuplicate
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		entry := &model.LedgerTransaction{
			TxHash:    txHash,
			EventType: eventType,
		}
		if err := mutate(tx, entry); err != nil {
			return err
		}

		if err := tx.Create(entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// ExistsForCampaign 指定活动是否已有某类事件的流水，不区分参与者。
func ExistsForCampaign(db *gorm.DB, campaignType string, campaignId int64, eventType model.LedgerEventType) (bool, error) {
	var count int64
	err := db.Model(&model.LedgerTransaction{}).
		Where("campaign_type = ? AND campaign_id = ? AND event_type = ?",
			campaignType, campaignId, eventType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Exists 指定活动与参与者之间是否已有某类事件的流水，用于领奖等
// 只允许发生一次的路径做二次防线。
func Exists(db *gorm.DB, campaignType string, campaignId int64, address string, eventType model.LedgerEventType) (bool, error) {
	var count int64
	err := db.Model(&model.LedgerTransaction{}).
		Where("campaign_type = ? AND campaign_id = ? AND from_address = ? AND event_type = ?",
			campaignType, campaignId, address, eventType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
