package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sh4d0wy/fox-backend/internal/chain"
	"github.com/sh4d0wy/fox-backend/internal/logic"
)

// GumballHandler 扭蛋机处理器
type GumballHandler struct {
	gumballLogic *logic.GumballLogic
	chainClient  *chain.Client
}

// NewGumballHandler 创建扭蛋机处理器
func NewGumballHandler(gumballLogic *logic.GumballLogic, chainClient *chain.Client) *GumballHandler {
	return &GumballHandler{
		gumballLogic: gumballLogic,
		chainClient:  chainClient,
	}
}

// CreateGumball 创建扭蛋机
func (h *GumballHandler) CreateGumball(c *gin.Context) {
	var req CreateGumballRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	params := logic.CreateGumballParams{
		Title:            req.Title,
		Description:      req.Description,
		ImageURL:         req.ImageURL,
		CreatorAddress:   req.CreatorAddress,
		EscrowAddress:    req.EscrowAddress,
		RandomnessHandle: req.RandomnessHandle,
		SpinPrice:        req.SpinPrice,
		SpinMint:         req.SpinMint,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		TxHash:           req.TxHash,
	}
	for _, p := range req.Prizes {
		params.Prizes = append(params.Prizes, logic.PrizeParams{
			MintAddress:   p.MintAddress,
			IsNFT:         p.IsNFT,
			AmountPerUnit: p.AmountPerUnit,
			Quantity:      p.Quantity,
		})
	}

	gumball, err := h.gumballLogic.CreateGumball(c.Request.Context(), params)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "创建扭蛋机成功", gumball)
}

// GetGumballs 获取扭蛋机列表
func (h *GumballHandler) GetGumballs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	gumballs, total, err := h.gumballLogic.GetGumballs(page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取扭蛋机列表成功", gin.H{
		"gumballs": gumballs,
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

// GetGumball 获取扭蛋机详情
func (h *GumballHandler) GetGumball(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	gumball, err := h.gumballLogic.GetGumball(id)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取扭蛋机详情成功", gumball)
}

// GetGumballSpins 获取扭蛋记录
func (h *GumballHandler) GetGumballSpins(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	spins, total, err := h.gumballLogic.GetGumballSpins(id, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取扭蛋记录成功", gin.H{
		"spins": spins,
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

// Spin 扭蛋
func (h *GumballHandler) Spin(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req SpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	spin, err := h.gumballLogic.Spin(c.Request.Context(), id, req.Address, req.TxHash)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "扭蛋成功", spin)
}

// ClaimSpin 扭蛋开奖领取
func (h *GumballHandler) ClaimSpin(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ClaimSpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	spin, err := h.gumballLogic.Claim(c.Request.Context(), id, req.SpinId, req.Address, req.TxHash)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "开奖领取成功", spin)
}

// BuyBack 创建者回购剩余槽位
func (h *GumballHandler) BuyBack(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.gumballLogic.BuyBack(c.Request.Context(), id, req.Caller, req.TxHash); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "回购成功", nil)
}

// CancelGumball 取消扭蛋机
func (h *GumballHandler) CancelGumball(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.gumballLogic.CancelGumball(c.Request.Context(), id, req.Caller, req.TxHash); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "取消扭蛋机成功", nil)
}

// BuildSpinInstruction 装配扭蛋未签名指令
func (h *GumballHandler) BuildSpinInstruction(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		return
	}

	instruction, buildErr := h.chainClient.BuildBuySpin(c.Request.Context(), id)
	if buildErr != nil {
		ErrorResponse(c, http.StatusBadGateway, "装配指令失败: "+buildErr.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "装配指令成功", instruction)
}
