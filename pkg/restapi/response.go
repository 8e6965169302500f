package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transcode-orchestrator/pkg/errno"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Failed 失败响应，按错误码映射HTTP状态
func Failed(ctx *gin.Context, err error) {
	e := errno.CodeOf(err)
	status := http.StatusInternalServerError
	switch {
	case e.Code == errno.ErrNotFound.Code || e.Code == errno.ErrTaskNotFound.Code:
		status = http.StatusNotFound
	case e.Code == errno.ErrUnauthorized.Code:
		status = http.StatusUnauthorized
	case e.Code >= 400 && e.Code < 500:
		status = http.StatusBadRequest
	case e.Code >= 20000 && e.Code < 21000:
		status = http.StatusBadRequest
	}
	ctx.JSON(status, Response{
		Code:    e.Code,
		Message: err.Error(),
	})
}
