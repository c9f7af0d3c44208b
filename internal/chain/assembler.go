package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// UnsignedInstruction 未签名指令包。服务端只负责按程序ABI装配
// calldata 并附上当前区块引用，由客户端自行签名广播。
type UnsignedInstruction struct {
	To          string `json:"to"`
	Data        string `json:"data"`
	Value       string `json:"value"`
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
}

// buildUnsigned 按方法名打包参数并附上当前区块引用
func (c *Client) buildUnsigned(ctx context.Context, method string, args ...interface{}) (*UnsignedInstruction, error) {
	data, err := c.programABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s call", method)
	}

	head, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block reference")
	}

	return &UnsignedInstruction{
		To:          c.ProgramAddr.Hex(),
		Data:        hexutil.Encode(data),
		Value:       "0",
		BlockNumber: head.Number.Uint64(),
		BlockHash:   head.Hash().Hex(),
	}, nil
}

// BuildEnterRaffle 装配购票指令
func (c *Client) BuildEnterRaffle(ctx context.Context, raffleId int64, quantity uint) (*UnsignedInstruction, error) {
	return c.buildUnsigned(ctx, "enterRaffle", big.NewInt(raffleId), new(big.Int).SetUint64(uint64(quantity)))
}

// BuildPlaceBid 装配出价指令
func (c *Client) BuildPlaceBid(ctx context.Context, auctionId int64, amount *big.Int) (*UnsignedInstruction, error) {
	return c.buildUnsigned(ctx, "placeBid", big.NewInt(auctionId), amount)
}

// BuildBuySpin 装配扭蛋指令
func (c *Client) BuildBuySpin(ctx context.Context, gumballId int64) (*UnsignedInstruction, error) {
	return c.buildUnsigned(ctx, "buySpin", big.NewInt(gumballId))
}

// BuildClaimPrize 装配领奖指令
func (c *Client) BuildClaimPrize(ctx context.Context, campaignId, prizeId int64) (*UnsignedInstruction, error) {
	return c.buildUnsigned(ctx, "claimPrize", big.NewInt(campaignId), big.NewInt(prizeId))
}

// BuildClaimProceeds 装配领取货款指令
func (c *Client) BuildClaimProceeds(ctx context.Context, campaignId int64) (*UnsignedInstruction, error) {
	return c.buildUnsigned(ctx, "claimProceeds", big.NewInt(campaignId))
}

// BuildCancelCampaign 装配取消活动指令
func (c *Client) BuildCancelCampaign(ctx context.Context, campaignId int64) (*UnsignedInstruction, error) {
	return c.buildUnsigned(ctx, "cancelCampaign", big.NewInt(campaignId))
}

// BuildBuyBack 装配回购剩余槽位指令
func (c *Client) BuildBuyBack(ctx context.Context, gumballId int64) (*UnsignedInstruction, error) {
	return c.buildUnsigned(ctx, "buyBack", big.NewInt(gumballId))
}
