package journal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "journal.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	if err := db.AutoMigrate(&model.Prize{}, &model.LedgerTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestApplyOnce(t *testing.T) {
	db := setupDB(t)

	mutations := 0
	mutate := func(tx *gorm.DB, entry *model.LedgerTransaction) error {
		mutations++
		prize := model.Prize{
			CampaignType:  "raffle",
			CampaignID:    1,
			MintAddress:   "0xMint",
			AmountPerUnit: decimal.NewFromInt(100),
			Quantity:      1,
		}
		if err := tx.Create(&prize).Error; err != nil {
			return err
		}
		entry.CampaignType = "raffle"
		entry.CampaignId = 1
		return nil
	}

	if err := ApplyOnce(db, "0xabc", model.LedgerEventTicketPurchase, mutate); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if mutations != 1 {
		t.Fatalf("expected 1 mutation, got %d", mutations)
	}

	// 重放同一笔交易：mutate 不再执行，镜像不被触碰
	err := ApplyOnce(db, "0xabc", model.LedgerEventTicketPurchase, mutate)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if mutations != 1 {
		t.Fatalf("replay must not re-run mutate, got %d mutations", mutations)
	}

	var prizeCount, journalCount int64
	db.Model(&model.Prize{}).Count(&prizeCount)
	db.Model(&model.LedgerTransaction{}).Count(&journalCount)
	if prizeCount != 1 || journalCount != 1 {
		t.Fatalf("expected exactly one prize and one journal row, got %d/%d", prizeCount, journalCount)
	}
}

func TestApplyOnceRollsBackOnMutateError(t *testing.T) {
	db := setupDB(t)

	boom := errors.New("校验失败")
	err := ApplyOnce(db, "0xdef", model.LedgerEventTicketPurchase, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
		prize := model.Prize{CampaignType: "raffle", CampaignID: 1, MintAddress: "0xMint", Quantity: 1}
		if err := tx.Create(&prize).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutate error, got %v", err)
	}

	// 失败路径不留任何半写
	var prizeCount, journalCount int64
	db.Model(&model.Prize{}).Count(&prizeCount)
	db.Model(&model.LedgerTransaction{}).Count(&journalCount)
	if prizeCount != 0 || journalCount != 0 {
		t.Fatalf("expected full rollback, got %d prizes and %d journal rows", prizeCount, journalCount)
	}

	// 回滚后同一哈希可以重新提交
	if err := ApplyOnce(db, "0xdef", model.LedgerEventTicketPurchase, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
		return nil
	}); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}

func TestExists(t *testing.T) {
	db := setupDB(t)

	if err := ApplyOnce(db, "0x111", model.LedgerEventPrizeClaim, func(tx *gorm.DB, entry *model.LedgerTransaction) error {
		entry.CampaignType = "raffle"
		entry.CampaignId = 7
		entry.FromAddress = "0xAlice"
		return nil
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	found, err := Exists(db, "raffle", 7, "0xAlice", model.LedgerEventPrizeClaim)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !found {
		t.Fatal("expected claim journal entry to be found")
	}

	found, err = Exists(db, "raffle", 7, "0xBob", model.LedgerEventPrizeClaim)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if found {
		t.Fatal("expected no entry for other address")
	}
}
