package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sh4d0wy/fox-backend/internal/chain"
	"github.com/sh4d0wy/fox-backend/internal/logic"
)

// RaffleHandler 抽奖处理器
type RaffleHandler struct {
	raffleLogic *logic.RaffleLogic
	chainClient *chain.Client
}

// NewRaffleHandler 创建抽奖处理器
func NewRaffleHandler(raffleLogic *logic.RaffleLogic, chainClient *chain.Client) *RaffleHandler {
	return &RaffleHandler{
		raffleLogic: raffleLogic,
		chainClient: chainClient,
	}
}

// CreateRaffle 创建抽奖
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	var req CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	params := logic.CreateRaffleParams{
		Title:          req.Title,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		CreatorAddress: req.CreatorAddress,
		EscrowAddress:  req.EscrowAddress,
		TicketPrice:    req.TicketPrice,
		TicketMint:     req.TicketMint,
		TicketSupply:   req.TicketSupply,
		MaxPerUser:     req.MaxPerUser,
		MinPrizes:      req.MinPrizes,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		TxHash:         req.TxHash,
	}
	for _, p := range req.Prizes {
		params.Prizes = append(params.Prizes, logic.PrizeParams{
			MintAddress:   p.MintAddress,
			IsNFT:         p.IsNFT,
			AmountPerUnit: p.AmountPerUnit,
			Quantity:      p.Quantity,
		})
	}

	raffle, err := h.raffleLogic.CreateRaffle(c.Request.Context(), params)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "创建抽奖成功", raffle)
}

// GetRaffles 获取抽奖列表
func (h *RaffleHandler) GetRaffles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	raffles, total, err := h.raffleLogic.GetRaffles(page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取抽奖列表成功", gin.H{
		"raffles": raffles,
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

// GetRaffle 获取抽奖详情
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	raffle, err := h.raffleLogic.GetRaffle(id)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取抽奖详情成功", raffle)
}

// GetRaffleEntries 获取抽奖购票记录
func (h *RaffleHandler) GetRaffleEntries(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	entries, total, err := h.raffleLogic.GetRaffleEntries(id, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取购票记录成功", gin.H{
		"entries": entries,
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

// ActivateRaffle 激活抽奖
func (h *RaffleHandler) ActivateRaffle(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.raffleLogic.ActivateRaffle(c.Request.Context(), id, req.Caller, req.TxHash); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "激活抽奖成功", nil)
}

// EnterRaffle 购票
func (h *RaffleHandler) EnterRaffle(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req EnterRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	entry, err := h.raffleLogic.Enter(c.Request.Context(), id, req.Address, req.Quantity, req.TxHash)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "购票成功", entry)
}

// ClaimRafflePrize 中奖者领奖
func (h *RaffleHandler) ClaimRafflePrize(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.raffleLogic.ClaimPrize(c.Request.Context(), id, req.Address, req.TxHash); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "领奖成功", nil)
}

// CancelRaffle 取消抽奖
func (h *RaffleHandler) CancelRaffle(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.raffleLogic.CancelRaffle(c.Request.Context(), id, req.Caller, req.TxHash); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "取消抽奖成功", nil)
}

// BuildEnterInstruction 装配购票未签名指令
func (h *RaffleHandler) BuildEnterInstruction(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	quantity, err := strconv.ParseUint(c.DefaultQuery("quantity", "1"), 10, 32)
	if err != nil || quantity == 0 {
		ErrorResponse(c, http.StatusBadRequest, "无效的购票数量")
		return
	}

	instruction, buildErr := h.chainClient.BuildEnterRaffle(c.Request.Context(), id, uint(quantity))
	if buildErr != nil {
		ErrorResponse(c, http.StatusBadGateway, "装配指令失败: "+buildErr.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "装配指令成功", instruction)
}

// parseId 解析路径中的活动ID
func parseId(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return 0, err
	}
	return id, nil
}
