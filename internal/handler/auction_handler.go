package handler

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sh4d0wy/fox-backend/internal/chain"
	"github.com/sh4d0wy/fox-backend/internal/logic"
)

// AuctionHandler 拍卖处理器
type AuctionHandler struct {
	auctionLogic *logic.AuctionLogic
	chainClient  *chain.Client
}

// NewAuctionHandler 创建拍卖处理器
func NewAuctionHandler(auctionLogic *logic.AuctionLogic, chainClient *chain.Client) *AuctionHandler {
	return &AuctionHandler{
		auctionLogic: auctionLogic,
		chainClient:  chainClient,
	}
}

// CreateAuction 创建拍卖
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	var req CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	auction, err := h.auctionLogic.CreateAuction(c.Request.Context(), logic.CreateAuctionParams{
		Title:            req.Title,
		Description:      req.Description,
		ImageURL:         req.ImageURL,
		CreatorAddress:   req.CreatorAddress,
		EscrowAddress:    req.EscrowAddress,
		ReservePrice:     req.ReservePrice,
		MinIncrementPct:  req.MinIncrementPct,
		BidMint:          req.BidMint,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		ExtensionSeconds: req.ExtensionSeconds,
		TxHash:           req.TxHash,
		Prize: logic.PrizeParams{
			MintAddress:   req.Prize.MintAddress,
			IsNFT:         req.Prize.IsNFT,
			AmountPerUnit: req.Prize.AmountPerUnit,
			Quantity:      req.Prize.Quantity,
		},
	})
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "创建拍卖成功", auction)
}

// GetAuctions 获取拍卖列表
func (h *AuctionHandler) GetAuctions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	auctions, total, err := h.auctionLogic.GetAuctions(page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取拍卖列表成功", gin.H{
		"auctions": auctions,
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

// GetAuction 获取拍卖详情
func (h *AuctionHandler) GetAuction(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	auction, err := h.auctionLogic.GetAuction(id)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取拍卖详情成功", auction)
}

// GetAuctionBids 获取出价记录
func (h *AuctionHandler) GetAuctionBids(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	bids, total, err := h.auctionLogic.GetAuctionBids(id, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取出价记录成功", gin.H{
		"bids": bids,
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

// PlaceBid 出价
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	bid, err := h.auctionLogic.PlaceBid(c.Request.Context(), id, req.Address, req.Amount, req.TxHash)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "出价成功", bid)
}

// ClaimAuctionPrize 得标者领取拍品
func (h *AuctionHandler) ClaimAuctionPrize(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.auctionLogic.ClaimPrize(c.Request.Context(), id, req.Address, req.TxHash); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "领取拍品成功", nil)
}

// ClaimAuctionProceeds 创建者领取货款
func (h *AuctionHandler) ClaimAuctionProceeds(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.auctionLogic.ClaimProceeds(c.Request.Context(), id, req.Address, req.TxHash); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "领取货款成功", nil)
}

// CancelAuction 取消拍卖
func (h *AuctionHandler) CancelAuction(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.auctionLogic.CancelAuction(c.Request.Context(), id, req.Caller, req.TxHash); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "取消拍卖成功", nil)
}

// BuildBidInstruction 装配出价未签名指令
func (h *AuctionHandler) BuildBidInstruction(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	amountStr := c.Query("amount")
	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的出价金额")
		return
	}

	instruction, buildErr := h.chainClient.BuildPlaceBid(c.Request.Context(), id, amount)
	if buildErr != nil {
		ErrorResponse(c, http.StatusBadGateway, "装配指令失败: "+buildErr.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "装配指令成功", instruction)
}
