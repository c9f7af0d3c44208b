package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sh4d0wy/fox-backend/internal/logic"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// LogicErrorResponse 按对账错误分类映射HTTP状态码。幂等重放对调用方
// 是良性成功；未终局与未揭示都是"稍后再试"，不是失败终态。
func LogicErrorResponse(c *gin.Context, err error) {
	switch logic.KindOf(err) {
	case logic.KindDuplicate:
		SuccessResponse(c, http.StatusOK, "交易已处理，忽略重复请求", nil)
	case logic.KindUnconfirmed:
		ErrorResponse(c, http.StatusConflict, err.Error())
	case logic.KindInvariant:
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case logic.KindConflict:
		ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
	case logic.KindUnrevealed:
		ErrorResponse(c, http.StatusAccepted, err.Error())
	case logic.KindNetwork:
		ErrorResponse(c, http.StatusBadGateway, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
