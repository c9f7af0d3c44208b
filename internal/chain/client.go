package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sh4d0wy/fox-backend/internal/config"
	"github.com/sh4d0wy/fox-backend/internal/logger"
)

// Client 链上程序客户端，封装交易终局性查询、随机数账户读取
// 与未签名指令装配。不托管资产，也不改动镜像库。
type Client struct {
	client         *ethclient.Client
	privateKey     *ecdsa.PrivateKey
	chainId        *big.Int
	ProgramAddr    common.Address
	RandomnessAddr common.Address
	startBlock     uint64
	confirmations  uint64
	programABI     abi.ABI
	randomnessABI  abi.ABI
}

// 活动程序ABI定义（简化版）
const programABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "raffleId", "type": "uint256"},
			{"indexed": false, "name": "winners", "type": "address[]"},
			{"indexed": false, "name": "prizeIds", "type": "uint256[]"}
		],
		"name": "WinnersDrawn",
		"type": "event"
	},
	{
		"inputs": [
			{"name": "raffleId", "type": "uint256"},
			{"name": "quantity", "type": "uint256"}
		],
		"name": "enterRaffle",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "auctionId", "type": "uint256"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "placeBid",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "gumballId", "type": "uint256"}
		],
		"name": "buySpin",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "campaignId", "type": "uint256"},
			{"name": "prizeId", "type": "uint256"}
		],
		"name": "claimPrize",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "campaignId", "type": "uint256"}
		],
		"name": "claimProceeds",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "campaignId", "type": "uint256"}
		],
		"name": "cancelCampaign",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "gumballId", "type": "uint256"}
		],
		"name": "buyBack",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// 随机数合约ABI定义（commit-reveal）
const randomnessABI = `[
	{
		"inputs": [
			{"name": "handle", "type": "bytes32"}
		],
		"name": "getRandomness",
		"outputs": [
			{"name": "", "type": "bytes32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "handle", "type": "bytes32"}
		],
		"name": "reveal",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

func Init(cfg config.ChainConfig) (*Client, error) {
	// 连接链上节点
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to chain client")
	}

	// 解析私钥
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	// 解析ABI
	parsedProgramABI, err := abi.JSON(strings.NewReader(programABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse program ABI")
	}
	parsedRandomnessABI, err := abi.JSON(strings.NewReader(randomnessABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse randomness ABI")
	}

	return &Client{
		client:         client,
		privateKey:     privateKey,
		chainId:        big.NewInt(cfg.ChainId),
		ProgramAddr:    common.HexToAddress(cfg.ProgramAddress),
		RandomnessAddr: common.HexToAddress(cfg.RandomnessAddress),
		startBlock:     cfg.StartBlock,
		confirmations:  cfg.Confirmations,
		programABI:     parsedProgramABI,
		randomnessABI:  parsedRandomnessABI,
	}, nil
}

// IsFinalized 查询交易是否已终局。只有交易存在、执行成功且确认深度
// 达标才返回 true。传输错误、查不到交易、执行失败、深度不足一律
// 返回 false，调用方应视为"暂不可用"，由客户端稍后重试，绝不能
// 当作否定结论去解锁其他路径。
func (c *Client) IsFinalized(ctx context.Context, txHash string) bool {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		logger.Debug("Transaction %s not found or not mined yet: %v", txHash, err)
		return false
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		logger.Debug("Transaction %s reverted", txHash)
		return false
	}

	head, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		logger.Debug("Failed to get latest header: %v", err)
		return false
	}

	if head.Number.Uint64() < receipt.BlockNumber.Uint64() {
		return false
	}
	depth := head.Number.Uint64() - receipt.BlockNumber.Uint64()
	return depth >= c.confirmations
}

// GetLatestBlock 获取最新区块号
func (c *Client) GetLatestBlock(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Uint64(), nil
}

// StartBlock 配置的起始扫描区块
func (c *Client) StartBlock() uint64 {
	return c.startBlock
}

// GetProgramLogs 获取指定区块范围内活动程序的日志
func (c *Client) GetProgramLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.ProgramAddr},
	}
	return c.client.FilterLogs(ctx, query)
}

// sendProgramCall 用服务私钥对指定合约发起一笔已签名交易，返回交易哈希。
// 目前只用于强制揭示随机数。
func (c *Client) sendProgramCall(ctx context.Context, to common.Address, data []byte) (string, error) {
	from := crypto.PubkeyToAddress(c.privateKey.PublicKey)

	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", errors.Wrap(err, "failed to get nonce")
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get gas price")
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), 200000, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainId), c.privateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", errors.Wrap(err, "failed to send transaction")
	}
	return signedTx.Hash().Hex(), nil
}
