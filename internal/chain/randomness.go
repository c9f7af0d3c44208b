package chain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	pkgerrors "github.com/pkg/errors"
)

// ErrNotRevealed 随机数尚未揭示（读到全零）。调用方应先发起 reveal
// 交易再轮询，不是终态失败。
var ErrNotRevealed = errors.New("随机数尚未揭示")

// LoadRevealedValue 读取 commit-reveal 随机数账户的揭示值。
// 未揭示时合约返回全零，此处返回 ErrNotRevealed。
func (c *Client) LoadRevealedValue(ctx context.Context, handle string) ([]byte, error) {
	data, err := c.randomnessABI.Pack("getRandomness", common.HexToHash(handle))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to pack getRandomness call")
	}

	raw, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.RandomnessAddr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to call randomness contract")
	}

	out, err := c.randomnessABI.Unpack("getRandomness", raw)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unpack randomness value")
	}
	value, ok := out[0].([32]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected randomness value type %T", out[0])
	}

	revealed := value[:]
	if allZero(revealed) {
		return nil, ErrNotRevealed
	}
	return revealed, nil
}

// ForceReveal 对随机数账户发起揭示交易，返回交易哈希。
// 揭示同样要等终局，调用方拿到哈希后继续轮询 LoadRevealedValue。
func (c *Client) ForceReveal(ctx context.Context, handle string) (string, error) {
	data, err := c.randomnessABI.Pack("reveal", common.HexToHash(handle))
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to pack reveal call")
	}
	return c.sendProgramCall(ctx, c.RandomnessAddr, data)
}

// ResolveWinner 把揭示值确定性地映射到中奖槽位。算法必须与链上程序
// 逐比特一致：取揭示值前 8 字节按小端序读成 uint64，对 totalSlots
// 取模得到 targetIndex，再用 prizeMap[targetIndex] 得到奖品。字节序、
// 取模对象、下标方式任何一处不同，算出的赢家就会与持有资金的链上
// 程序不一致，资产会卡死。纯函数，不依赖时间与调用顺序。
func ResolveWinner(revealed []byte, totalSlots uint64, prizeMap []int64) (targetIndex uint64, prizeId int64, err error) {
	if len(revealed) < 8 || allZero(revealed) {
		return 0, 0, ErrNotRevealed
	}
	if totalSlots == 0 {
		return 0, 0, errors.New("没有可用槽位")
	}
	if uint64(len(prizeMap)) != totalSlots {
		return 0, 0, fmt.Errorf("奖品映射长度 %d 与槽位数 %d 不一致", len(prizeMap), totalSlots)
	}

	value := binary.LittleEndian.Uint64(revealed[:8])
	targetIndex = value % totalSlots
	return targetIndex, prizeMap[targetIndex], nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
