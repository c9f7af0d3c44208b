package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// WinnersDrawnEvent 链下开奖进程把中奖名单上链后发出的事件
type WinnersDrawnEvent struct {
	RaffleId    int64
	Winners     []string
	PrizeIds    []int64
	TxHash      string
	BlockNumber uint64
}

// IsWinnersDrawn 判断日志是否为 WinnersDrawn 事件
func (c *Client) IsWinnersDrawn(log types.Log) bool {
	return len(log.Topics) > 0 && log.Topics[0] == c.programABI.Events["WinnersDrawn"].ID
}

// ParseWinnersDrawn 解析 WinnersDrawn 事件日志
func (c *Client) ParseWinnersDrawn(log types.Log) (*WinnersDrawnEvent, error) {
	if !c.IsWinnersDrawn(log) {
		return nil, errors.New("not a WinnersDrawn log")
	}
	if len(log.Topics) < 2 {
		return nil, errors.New("invalid WinnersDrawn event: insufficient topics")
	}

	out, err := c.programABI.Unpack("WinnersDrawn", log.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack WinnersDrawn data")
	}
	if len(out) != 2 {
		return nil, errors.Errorf("unexpected WinnersDrawn payload size %d", len(out))
	}

	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, errors.Errorf("unexpected winners type %T", out[0])
	}
	winners := make([]string, 0, len(addrs))
	for _, a := range addrs {
		winners = append(winners, a.Hex())
	}

	var prizeIds []int64
	if raw, ok := out[1].([]*big.Int); ok {
		for _, v := range raw {
			prizeIds = append(prizeIds, v.Int64())
		}
	}

	event := &WinnersDrawnEvent{
		RaffleId:    new(big.Int).SetBytes(log.Topics[1].Bytes()).Int64(),
		Winners:     winners,
		PrizeIds:    prizeIds,
		TxHash:      log.TxHash.Hex(),
		BlockNumber: log.BlockNumber,
	}
	return event, nil
}
