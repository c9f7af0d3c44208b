package logic

import (
	"context"
	"testing"
	"time"

	"github.com/sh4d0wy/fox-backend/internal/config"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"github.com/shopspring/decimal"
)

func createTestAuction(t *testing.T, l *AuctionLogic, start, end time.Time, extensionSeconds int64) *model.Auction {
	t.Helper()
	auction, err := l.CreateAuction(context.Background(), CreateAuctionParams{
		Title:            "测试拍卖",
		CreatorAddress:   "0xCreator",
		EscrowAddress:    "0xEscrow",
		ReservePrice:     decimal.NewFromInt(100),
		MinIncrementPct:  10,
		StartTime:        start,
		EndTime:          end,
		ExtensionSeconds: extensionSeconds,
		TxHash:           nextTxHash(),
		Prize:            PrizeParams{MintAddress: "0xNFT", IsNFT: true, AmountPerUnit: decimal.NewFromInt(1000)},
	})
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	return auction
}

func TestCreateAuction(t *testing.T) {
	db := setupDB(t)
	l := NewAuctionLogic(db, &stubChecker{finalized: true}, config.AuctionConfig{})
	now := time.Now()

	auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
	if auction.Status != model.CampaignStatusActive {
		t.Fatalf("expected active, got %s", auction.Status)
	}

	// 拍卖固定一件拍品
	var prize model.Prize
	if err := db.Where("campaign_type = ? AND campaign_id = ?", model.CampaignKindAuction, auction.Id).
		First(&prize).Error; err != nil {
		t.Fatalf("load prize: %v", err)
	}
	if prize.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", prize.Quantity)
	}

	t.Run("configured defaults fill omitted parameters", func(t *testing.T) {
		cl := NewAuctionLogic(db, &stubChecker{finalized: true},
			config.AuctionConfig{ExtensionSeconds: 300, MinIncrementPct: 20})
		created, err := cl.CreateAuction(context.Background(), CreateAuctionParams{
			Title:          "默认参数",
			CreatorAddress: "0xCreator",
			ReservePrice:   decimal.NewFromInt(100),
			StartTime:      now.Add(-time.Hour),
			EndTime:        now.Add(time.Hour),
			TxHash:         nextTxHash(),
			Prize:          PrizeParams{MintAddress: "0xNFT", IsNFT: true, AmountPerUnit: decimal.NewFromInt(1)},
		})
		if err != nil {
			t.Fatalf("create auction: %v", err)
		}
		if created.ExtensionSeconds != 300 {
			t.Fatalf("expected extension 300, got %d", created.ExtensionSeconds)
		}
		if created.MinIncrementPct != 20 {
			t.Fatalf("expected increment 20, got %d", created.MinIncrementPct)
		}
	})

	t.Run("requires prize asset", func(t *testing.T) {
		_, err := l.CreateAuction(context.Background(), CreateAuctionParams{
			Title:          "无拍品",
			CreatorAddress: "0xCreator",
			ReservePrice:   decimal.NewFromInt(100),
			StartTime:      now.Add(-time.Hour),
			EndTime:        now.Add(time.Hour),
			TxHash:         nextTxHash(),
		})
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}

func TestPlaceBid(t *testing.T) {
	db := setupDB(t)
	l := NewAuctionLogic(db, &stubChecker{finalized: true}, config.AuctionConfig{})
	now := time.Now()

	t.Run("first bid must meet reserve price", func(t *testing.T) {
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
		_, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(99), nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error for bid below reserve, got %v", err)
		}
		if _, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(100), nextTxHash()); err != nil {
			t.Fatalf("bid at reserve: %v", err)
		}

		var stored model.Auction
		db.First(&stored, auction.Id)
		if !stored.CurrentBid.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("expected current bid 100, got %s", stored.CurrentBid)
		}
		if stored.CurrentBidder != "0xAlice" {
			t.Fatalf("expected alice as bidder, got %s", stored.CurrentBidder)
		}
		if stored.BidCount != 1 {
			t.Fatalf("expected bid_count 1, got %d", stored.BidCount)
		}
	})

	t.Run("next bid must clear the increment", func(t *testing.T) {
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
		if _, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(100), nextTxHash()); err != nil {
			t.Fatalf("first bid: %v", err)
		}

		// 最小加价10%，110 以下全部无效
		_, err := l.PlaceBid(context.Background(), auction.Id, "0xBob", decimal.NewFromInt(105), nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error for stale bid, got %v", err)
		}
		if _, err := l.PlaceBid(context.Background(), auction.Id, "0xBob", decimal.NewFromInt(110), nextTxHash()); err != nil {
			t.Fatalf("valid raise: %v", err)
		}

		var stored model.Auction
		db.First(&stored, auction.Id)
		if stored.CurrentBidder != "0xBob" {
			t.Fatalf("expected bob as bidder, got %s", stored.CurrentBidder)
		}
		if stored.ParticipantCount != 2 {
			t.Fatalf("expected 2 participants, got %d", stored.ParticipantCount)
		}
	})

	t.Run("late bid extends the end time", func(t *testing.T) {
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(30*time.Second), 120)
		originalEnd := auction.EndTime

		if _, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(100), nextTxHash()); err != nil {
			t.Fatalf("bid: %v", err)
		}

		var stored model.Auction
		db.First(&stored, auction.Id)
		if !stored.EndTime.After(originalEnd) {
			t.Fatalf("expected end time extended beyond %s, got %s", originalEnd, stored.EndTime)
		}
		remaining := time.Until(stored.EndTime)
		if remaining < 100*time.Second || remaining > 130*time.Second {
			t.Fatalf("expected roughly 120s remaining, got %s", remaining)
		}
	})

	t.Run("early bid leaves the end time alone", func(t *testing.T) {
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
		if _, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(100), nextTxHash()); err != nil {
			t.Fatalf("bid: %v", err)
		}

		var stored model.Auction
		db.First(&stored, auction.Id)
		if stored.EndTime.Unix() != auction.EndTime.Unix() {
			t.Fatalf("expected unchanged end time %s, got %s", auction.EndTime, stored.EndTime)
		}
	})

	t.Run("duplicate bid transaction is benign", func(t *testing.T) {
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
		txHash := nextTxHash()
		if _, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(100), txHash); err != nil {
			t.Fatalf("first bid: %v", err)
		}
		_, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(100), txHash)
		if !IsDuplicate(err) {
			t.Fatalf("expected duplicate error, got %v", err)
		}

		var stored model.Auction
		db.First(&stored, auction.Id)
		if stored.BidCount != 1 {
			t.Fatalf("replay must not change bid_count, got %d", stored.BidCount)
		}
	})
}

func TestAuctionClaims(t *testing.T) {
	db := setupDB(t)
	l := NewAuctionLogic(db, &stubChecker{finalized: true}, config.AuctionConfig{})
	now := time.Now()

	settle := func(t *testing.T) *model.Auction {
		t.Helper()
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
		if _, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(100), nextTxHash()); err != nil {
			t.Fatalf("bid: %v", err)
		}
		db.Model(&model.Auction{}).Where("id = ?", auction.Id).Update("status", model.CampaignStatusSuccess)
		return auction
	}

	t.Run("only winning bidder claims the prize once", func(t *testing.T) {
		auction := settle(t)

		err := l.ClaimPrize(context.Background(), auction.Id, "0xBob", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error for non-winner, got %v", err)
		}

		if err := l.ClaimPrize(context.Background(), auction.Id, "0xAlice", nextTxHash()); err != nil {
			t.Fatalf("claim prize: %v", err)
		}
		err = l.ClaimPrize(context.Background(), auction.Id, "0xAlice", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error for double claim, got %v", err)
		}

		var prize model.Prize
		db.Where("campaign_type = ? AND campaign_id = ?", model.CampaignKindAuction, auction.Id).First(&prize)
		if prize.QuantityClaimed != 1 {
			t.Fatalf("expected quantity_claimed 1, got %d", prize.QuantityClaimed)
		}
	})

	t.Run("only creator claims proceeds once", func(t *testing.T) {
		auction := settle(t)

		err := l.ClaimProceeds(context.Background(), auction.Id, "0xAlice", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error for non-creator, got %v", err)
		}

		if err := l.ClaimProceeds(context.Background(), auction.Id, "0xCreator", nextTxHash()); err != nil {
			t.Fatalf("claim proceeds: %v", err)
		}
		err = l.ClaimProceeds(context.Background(), auction.Id, "0xCreator", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error for double claim, got %v", err)
		}
	})

	t.Run("claims before success are rejected", func(t *testing.T) {
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
		err := l.ClaimPrize(context.Background(), auction.Id, "0xAlice", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}

func TestCancelAuction(t *testing.T) {
	db := setupDB(t)
	l := NewAuctionLogic(db, &stubChecker{finalized: true}, config.AuctionConfig{})
	now := time.Now()

	t.Run("cancel before any bid", func(t *testing.T) {
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
		if err := l.CancelAuction(context.Background(), auction.Id, "0xCreator", nextTxHash()); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		var stored model.Auction
		db.First(&stored, auction.Id)
		if stored.Status != model.CampaignStatusCancelled {
			t.Fatalf("expected cancelled, got %s", stored.Status)
		}
	})

	t.Run("cancel after a bid is rejected", func(t *testing.T) {
		auction := createTestAuction(t, l, now.Add(-time.Hour), now.Add(time.Hour), 120)
		if _, err := l.PlaceBid(context.Background(), auction.Id, "0xAlice", decimal.NewFromInt(100), nextTxHash()); err != nil {
			t.Fatalf("bid: %v", err)
		}
		err := l.CancelAuction(context.Background(), auction.Id, "0xCreator", nextTxHash())
		if !IsInvariant(err) {
			t.Fatalf("expected invariant error, got %v", err)
		}
	})
}
