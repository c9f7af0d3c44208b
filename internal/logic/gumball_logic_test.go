package logic

import (
	"context"
	"testing"
	"time"

	"github.com/sh4d0wy/fox-backend/internal/chain"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"github.com/shopspring/decimal"
)

func createTestGumball(t *testing.T, l *GumballLogic, prizes []PrizeParams) *model.Gumball {
	t.Helper()
	now := time.Now()
	gumball, err := l.CreateGumball(context.Background(), CreateGumballParams{
		Title:            "测试扭蛋机",
		CreatorAddress:   "0xCreator",
		EscrowAddress:    "0xEscrow",
		RandomnessHandle: "0xRandomness",
		SpinPrice:        decimal.NewFromInt(5),
		StartTime:        now.Add(-time.Hour),
		EndTime:          now.Add(time.Hour),
		TxHash:           nextTxHash(),
		Prizes:           prizes,
	})
	if err != nil {
		t.Fatalf("create gumball: %v", err)
	}
	return gumball
}

// threePrizes 槽位布局：奖品A一份、奖品B一份、奖品C两份，共4个槽位
func threePrizes() []PrizeParams {
	return []PrizeParams{
		{MintAddress: "0xA", AmountPerUnit: decimal.NewFromInt(700), Quantity: 1},
		{MintAddress: "0xB", AmountPerUnit: decimal.NewFromInt(300), Quantity: 1},
		{MintAddress: "0xC", AmountPerUnit: decimal.NewFromInt(90), Quantity: 2},
	}
}

func TestCreateGumball(t *testing.T) {
	db := setupDB(t)
	l := NewGumballLogic(db, &stubChecker{finalized: true}, &stubRandomness{})

	gumball := createTestGumball(t, l, threePrizes())
	if gumball.TotalSlots != 4 {
		t.Fatalf("expected 4 slots, got %d", gumball.TotalSlots)
	}
	if gumball.SlotsRemaining != 4 {
		t.Fatalf("expected 4 slots remaining, got %d", gumball.SlotsRemaining)
	}
	if !gumball.PrizeValue.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("expected prize value 1180, got %s", gumball.PrizeValue)
	}

	t.Run("requires at least one slot", func(t *testing.T) {
		now := time.Now()
		_, err := l.CreateGumball(context.Background(), CreateGumballParams{
			Title:            "空机器",
			CreatorAddress:   "0xCreator",
			RandomnessHandle: "0xRandomness",
			SpinPrice:        decimal.NewFromInt(5),
			StartTime:        now.Add(-time.Hour),
			EndTime:          now.Add(time.Hour),
			TxHash:           nextTxHash(),
			Prizes:           []PrizeParams{{MintAddress: "0xA", Quantity: 0}},
		})
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}

func TestGumballSpin(t *testing.T) {
	db := setupDB(t)
	l := NewGumballLogic(db, &stubChecker{finalized: true}, &stubRandomness{})

	t.Run("spin reserves a slot", func(t *testing.T) {
		gumball := createTestGumball(t, l, threePrizes())
		spin, err := l.Spin(context.Background(), gumball.Id, "0xAlice", nextTxHash())
		if err != nil {
			t.Fatalf("spin: %v", err)
		}
		if spin.Status != model.SpinStatusPending {
			t.Fatalf("expected pending spin, got %s", spin.Status)
		}
		if spin.PrizeId != nil {
			t.Fatal("spin must not carry a prize before claim")
		}

		var stored model.Gumball
		db.First(&stored, gumball.Id)
		if stored.SlotsRemaining != 3 {
			t.Fatalf("expected 3 slots remaining, got %d", stored.SlotsRemaining)
		}
		if stored.SpinsSold != 1 {
			t.Fatalf("expected 1 spin sold, got %d", stored.SpinsSold)
		}
	})

	t.Run("sold out machine rejects spins", func(t *testing.T) {
		gumball := createTestGumball(t, l, []PrizeParams{{MintAddress: "0xA", AmountPerUnit: decimal.NewFromInt(10), Quantity: 1}})
		if _, err := l.Spin(context.Background(), gumball.Id, "0xAlice", nextTxHash()); err != nil {
			t.Fatalf("spin: %v", err)
		}
		_, err := l.Spin(context.Background(), gumball.Id, "0xBob", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})

	t.Run("duplicate spin transaction is benign", func(t *testing.T) {
		gumball := createTestGumball(t, l, threePrizes())
		txHash := nextTxHash()
		if _, err := l.Spin(context.Background(), gumball.Id, "0xAlice", txHash); err != nil {
			t.Fatalf("spin: %v", err)
		}
		_, err := l.Spin(context.Background(), gumball.Id, "0xAlice", txHash)
		if !IsDuplicate(err) {
			t.Fatalf("expected duplicate error, got %v", err)
		}

		var stored model.Gumball
		db.First(&stored, gumball.Id)
		if stored.SlotsRemaining != 3 {
			t.Fatalf("replay must not change slots, got %d", stored.SlotsRemaining)
		}
	})
}

func TestGumballClaim(t *testing.T) {
	db := setupDB(t)

	t.Run("claim resolves the slot deterministically", func(t *testing.T) {
		// 揭示值 10，4 个槽位：10 % 4 = 2，命中第三个槽位即奖品C
		rng := &stubRandomness{revealed: revealedBytes(10)}
		l := NewGumballLogic(db, &stubChecker{finalized: true}, rng)
		gumball := createTestGumball(t, l, threePrizes())

		spin, err := l.Spin(context.Background(), gumball.Id, "0xAlice", nextTxHash())
		if err != nil {
			t.Fatalf("spin: %v", err)
		}

		resolved, err := l.Claim(context.Background(), gumball.Id, spin.Id, "0xAlice", nextTxHash())
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if resolved.Status != model.SpinStatusResolved {
			t.Fatalf("expected resolved spin, got %s", resolved.Status)
		}
		if resolved.TargetIndex == nil || *resolved.TargetIndex != 2 {
			t.Fatalf("expected target index 2, got %v", resolved.TargetIndex)
		}

		var prize model.Prize
		db.First(&prize, *resolved.PrizeId)
		if prize.MintAddress != "0xC" {
			t.Fatalf("expected prize C, got %s", prize.MintAddress)
		}
		if prize.QuantityClaimed != 1 {
			t.Fatalf("expected quantity_claimed 1, got %d", prize.QuantityClaimed)
		}
	})

	t.Run("unrevealed randomness forces a reveal", func(t *testing.T) {
		rng := &stubRandomness{loadErr: chain.ErrNotRevealed, revealTx: "0xreveal"}
		l := NewGumballLogic(db, &stubChecker{finalized: true}, rng)
		gumball := createTestGumball(t, l, threePrizes())

		spin, err := l.Spin(context.Background(), gumball.Id, "0xAlice", nextTxHash())
		if err != nil {
			t.Fatalf("spin: %v", err)
		}

		_, err = l.Claim(context.Background(), gumball.Id, spin.Id, "0xAlice", nextTxHash())
		if !IsUnrevealed(err) {
			t.Fatalf("expected unrevealed error, got %v", err)
		}
		if rng.forceCalls != 1 {
			t.Fatalf("expected one reveal attempt, got %d", rng.forceCalls)
		}

		// 再次轮询不重复发起揭示交易
		_, err = l.Claim(context.Background(), gumball.Id, spin.Id, "0xAlice", nextTxHash())
		if !IsUnrevealed(err) {
			t.Fatalf("expected unrevealed error on second poll, got %v", err)
		}
		if rng.forceCalls != 1 {
			t.Fatalf("expected reveal to be initiated once, got %d", rng.forceCalls)
		}

		// 扭蛋仍处于待开奖状态，没有半写
		var stored model.Spin
		db.First(&stored, spin.Id)
		if stored.Status != model.SpinStatusPending {
			t.Fatalf("expected pending spin, got %s", stored.Status)
		}
	})

	t.Run("resolved spin cannot be claimed again", func(t *testing.T) {
		rng := &stubRandomness{revealed: revealedBytes(1)}
		l := NewGumballLogic(db, &stubChecker{finalized: true}, rng)
		gumball := createTestGumball(t, l, threePrizes())

		spin, err := l.Spin(context.Background(), gumball.Id, "0xAlice", nextTxHash())
		if err != nil {
			t.Fatalf("spin: %v", err)
		}
		if _, err := l.Claim(context.Background(), gumball.Id, spin.Id, "0xAlice", nextTxHash()); err != nil {
			t.Fatalf("claim: %v", err)
		}

		_, err = l.Claim(context.Background(), gumball.Id, spin.Id, "0xAlice", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})

	t.Run("only the buyer may claim", func(t *testing.T) {
		rng := &stubRandomness{revealed: revealedBytes(1)}
		l := NewGumballLogic(db, &stubChecker{finalized: true}, rng)
		gumball := createTestGumball(t, l, threePrizes())

		spin, err := l.Spin(context.Background(), gumball.Id, "0xAlice", nextTxHash())
		if err != nil {
			t.Fatalf("spin: %v", err)
		}
		_, err = l.Claim(context.Background(), gumball.Id, spin.Id, "0xBob", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}

func TestGumballBuyBack(t *testing.T) {
	db := setupDB(t)

	t.Run("buy back waits for pending spins", func(t *testing.T) {
		rng := &stubRandomness{revealed: revealedBytes(3)}
		l := NewGumballLogic(db, &stubChecker{finalized: true}, rng)
		gumball := createTestGumball(t, l, threePrizes())

		spin, err := l.Spin(context.Background(), gumball.Id, "0xAlice", nextTxHash())
		if err != nil {
			t.Fatalf("spin: %v", err)
		}

		err = l.BuyBack(context.Background(), gumball.Id, "0xCreator", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error while spin pending, got %v", err)
		}

		if _, err := l.Claim(context.Background(), gumball.Id, spin.Id, "0xAlice", nextTxHash()); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := l.BuyBack(context.Background(), gumball.Id, "0xCreator", nextTxHash()); err != nil {
			t.Fatalf("buy back: %v", err)
		}

		var stored model.Gumball
		db.First(&stored, gumball.Id)
		if stored.Status != model.CampaignStatusSuccess {
			t.Fatalf("expected success after sales, got %s", stored.Status)
		}
		if stored.SlotsRemaining != 0 {
			t.Fatalf("expected 0 slots after buy back, got %d", stored.SlotsRemaining)
		}
	})

	t.Run("buy back with no sales ends failed", func(t *testing.T) {
		l := NewGumballLogic(db, &stubChecker{finalized: true}, &stubRandomness{})
		gumball := createTestGumball(t, l, threePrizes())

		if err := l.BuyBack(context.Background(), gumball.Id, "0xCreator", nextTxHash()); err != nil {
			t.Fatalf("buy back: %v", err)
		}
		var stored model.Gumball
		db.First(&stored, gumball.Id)
		if stored.Status != model.CampaignStatusFailed {
			t.Fatalf("expected failed without sales, got %s", stored.Status)
		}
	})

	t.Run("only creator may buy back", func(t *testing.T) {
		l := NewGumballLogic(db, &stubChecker{finalized: true}, &stubRandomness{})
		gumball := createTestGumball(t, l, threePrizes())
		err := l.BuyBack(context.Background(), gumball.Id, "0xMallory", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}

func TestCancelGumball(t *testing.T) {
	db := setupDB(t)
	l := NewGumballLogic(db, &stubChecker{finalized: true}, &stubRandomness{})

	t.Run("cancel before any spin", func(t *testing.T) {
		gumball := createTestGumball(t, l, threePrizes())
		if err := l.CancelGumball(context.Background(), gumball.Id, "0xCreator", nextTxHash()); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		var stored model.Gumball
		db.First(&stored, gumball.Id)
		if stored.Status != model.CampaignStatusCancelled {
			t.Fatalf("expected cancelled, got %s", stored.Status)
		}
	})

	t.Run("cancel after a spin is rejected", func(t *testing.T) {
		gumball := createTestGumball(t, l, threePrizes())
		if _, err := l.Spin(context.Background(), gumball.Id, "0xAlice", nextTxHash()); err != nil {
			t.Fatalf("spin: %v", err)
		}
		err := l.CancelGumball(context.Background(), gumball.Id, "0xCreator", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}
