package logic

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// stubChecker 可控的终局性校验
type stubChecker struct {
	finalized bool
}

func (s *stubChecker) IsFinalized(ctx context.Context, txHash string) bool {
	return s.finalized
}

// stubRandomness 可控的随机数来源
type stubRandomness struct {
	revealed   []byte
	loadErr    error
	revealTx   string
	revealErr  error
	forceCalls int
}

func (s *stubRandomness) LoadRevealedValue(ctx context.Context, handle string) ([]byte, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.revealed, nil
}

func (s *stubRandomness) ForceReveal(ctx context.Context, handle string) (string, error) {
	s.forceCalls++
	if s.revealErr != nil {
		return "", s.revealErr
	}
	return s.revealTx, nil
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Raffle{},
		&model.Auction{},
		&model.Gumball{},
		&model.Prize{},
		&model.Entry{},
		&model.Bid{},
		&model.Spin{},
		&model.LedgerTransaction{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var txSeq int

// nextTxHash 生成唯一交易哈希，同一用例内的多笔操作不会撞上流水去重
func nextTxHash() string {
	txSeq++
	return fmt.Sprintf("0xtx%06d", txSeq)
}

// revealedBytes 构造 32 字节揭示值，前 8 字节为给定数值的小端序编码
func revealedBytes(value uint64) []byte {
	b := make([]byte, 32)
	for i := 0; i < 8; i++ {
		b[i] = byte(value >> (8 * i))
	}
	b[31] = 1 // 保证非全零
	return b
}
