package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/panjf2000/ants/v2"
	"github.com/sh4d0wy/fox-backend/internal/chain"
	"github.com/sh4d0wy/fox-backend/internal/config"
	"github.com/sh4d0wy/fox-backend/internal/logger"
	"github.com/sh4d0wy/fox-backend/internal/logic"
	"github.com/sh4d0wy/fox-backend/internal/model"
	"gorm.io/gorm"
)

// WinnerMonitor 中奖事件监控器。轮询账本程序的日志，发现 WinnersDrawn
// 事件后把中奖名单回写进镜像库。回写经过交易流水去重，重放同一段
// 区块不会产生重复标记。
type WinnerMonitor struct {
	client      *chain.Client
	db          *gorm.DB
	raffleLogic *logic.RaffleLogic
	pool        *ants.Pool

	interval  time.Duration
	batchSize uint64

	cursor uint64
	mu     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	retryCount      int
	backoffDuration time.Duration
}

// NewWinnerMonitor 创建中奖事件监控器
func NewWinnerMonitor(client *chain.Client, db *gorm.DB, cfg config.MonitorConfig) (*WinnerMonitor, error) {
	ctx, cancel := context.WithCancel(context.Background())

	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		cancel()
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30
	}

	return &WinnerMonitor{
		client:          client,
		db:              db,
		raffleLogic:     logic.NewRaffleLogic(db, client),
		pool:            pool,
		interval:        time.Duration(interval) * time.Second,
		batchSize:       uint64(batchSize),
		ctx:             ctx,
		cancel:          cancel,
		backoffDuration: time.Second * 5,
	}, nil
}

// Start 启动监控
func (m *WinnerMonitor) Start() error {
	logger.Info("Starting winner monitor")

	latest, err := m.client.GetLatestBlock(m.ctx)
	if err != nil {
		return err
	}
	logger.Info("Connected to ledger, latest block: %d", latest)

	start := m.resolveStartBlock()
	m.mu.Lock()
	m.cursor = start
	m.mu.Unlock()

	logger.Info("Winner monitor starting from block %d", start)

	go m.loop()

	return nil
}

// Stop 停止监控
func (m *WinnerMonitor) Stop() {
	logger.Info("Stopping winner monitor")
	m.cancel()
	m.pool.Release()
}

// loop 监控循环
func (m *WinnerMonitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			logger.Info("Winner monitor stopped")
			return
		case <-ticker.C:
			latest, err := m.client.GetLatestBlock(m.ctx)
			if err != nil {
				logger.Error("Failed to get latest block: %v", err)
				m.handleError(err)
				continue
			}

			if err := m.scanToBlock(latest); err != nil {
				logger.Error("Error scanning blocks: %v", err)
				m.handleError(err)
				continue
			}
			m.retryCount = 0
		}
	}
}

// scanToBlock 从游标扫描到目标区块，按批获取日志
func (m *WinnerMonitor) scanToBlock(toBlock uint64) error {
	m.mu.RLock()
	from := m.cursor
	m.mu.RUnlock()

	for from <= toBlock {
		to := from + m.batchSize - 1
		if to > toBlock {
			to = toBlock
		}

		logs, err := m.client.GetProgramLogs(m.ctx, from, to)
		if err != nil {
			return err
		}

		if len(logs) > 0 {
			logger.Debug("Found %d logs in blocks %d-%d", len(logs), from, to)
			m.dispatchLogs(logs)
		}

		m.mu.Lock()
		m.cursor = to + 1
		m.mu.Unlock()
		from = to + 1
	}

	return nil
}

// dispatchLogs 把日志投给协程池处理，等待整批完成后才推进游标
func (m *WinnerMonitor) dispatchLogs(logs []types.Log) {
	var wg sync.WaitGroup
	for _, entry := range logs {
		if !m.client.IsWinnersDrawn(entry) {
			continue
		}
		wg.Add(1)
		logEntry := entry
		err := m.pool.Submit(func() {
			defer wg.Done()
			m.processLog(logEntry)
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit log to pool: %v", err)
		}
	}
	wg.Wait()
}

// processLog 解析并回写单条 WinnersDrawn 日志
func (m *WinnerMonitor) processLog(entry types.Log) {
	event, err := m.client.ParseWinnersDrawn(entry)
	if err != nil {
		logger.Error("Failed to parse WinnersDrawn log at block %d: %v", entry.BlockNumber, err)
		return
	}

	err = m.raffleLogic.MarkWinners(logic.WinnersDrawn{
		RaffleId:    event.RaffleId,
		Winners:     event.Winners,
		PrizeIds:    event.PrizeIds,
		TxHash:      event.TxHash,
		BlockNumber: event.BlockNumber,
	})
	if err != nil {
		if logic.IsDuplicate(err) {
			logger.Debug("WinnersDrawn %s already applied", event.TxHash)
			return
		}
		logger.Error("Failed to apply WinnersDrawn %s for raffle %d: %v", event.TxHash, event.RaffleId, err)
		return
	}

	logger.Info("Winners recorded for raffle %d, tx %s, block %d", event.RaffleId, event.TxHash, event.BlockNumber)
}

// resolveStartBlock 确定起始区块：取配置起点与流水中已处理的
// 最大区块之间的较大者
func (m *WinnerMonitor) resolveStartBlock() uint64 {
	configured := m.client.StartBlock()

	var maxProcessed uint64
	err := m.db.Model(&model.LedgerTransaction{}).
		Where("event_type = ?", model.LedgerEventWinnersDrawn).
		Select("COALESCE(MAX(block_number), 0)").
		Scan(&maxProcessed).Error
	if err != nil {
		logger.Error("Failed to load max processed block: %v", err)
		return configured
	}

	if maxProcessed >= configured {
		return maxProcessed + 1
	}
	return configured
}

// handleError 失败退避，连续失败时拉长下一次重试的间隔
func (m *WinnerMonitor) handleError(err error) {
	m.retryCount++

	if m.retryCount > 5 {
		m.backoffDuration = time.Minute * 5
	} else {
		m.backoffDuration = time.Duration(m.retryCount) * time.Second * 10
	}

	logger.Error("Winner monitor error (retry %d, backoff %s): %v", m.retryCount, m.backoffDuration, err)

	select {
	case <-m.ctx.Done():
	case <-time.After(m.backoffDuration):
	}
}
