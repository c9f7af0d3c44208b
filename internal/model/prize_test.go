package model

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 三个活动表都通过 polymorphic 关联挂 Prize，字段拼写不对 AutoMigrate
// 会整体失败，这里把迁移和关联回读一起验证
func TestPrizeAssociationMigrates(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "model.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&Raffle{}, &Auction{}, &Gumball{}, &Prize{}))

	now := time.Now()
	raffle := &Raffle{
		RefCode:      "ref-prize-assoc",
		Title:        "关联测试",
		TicketPrice:  dec(10),
		TicketSupply: 10,
		StartTime:    now,
		EndTime:      now.Add(time.Hour),
		Prizes: []Prize{
			{MintAddress: "0xMintA", AmountPerUnit: dec(100), Quantity: 1},
			{MintAddress: "0xMintB", AmountPerUnit: dec(50), Quantity: 2},
		},
	}
	require.NoError(t, db.Create(raffle).Error)

	var stored Raffle
	require.NoError(t, db.Preload("Prizes").First(&stored, raffle.Id).Error)
	require.Len(t, stored.Prizes, 2)
	for _, p := range stored.Prizes {
		require.Equal(t, "raffle", p.CampaignType)
		require.Equal(t, raffle.Id, p.CampaignID)
	}
}
