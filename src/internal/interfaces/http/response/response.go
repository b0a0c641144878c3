package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey gin.Context 中請求 ID 的鍵
const RequestIDKey = "request_id"

// Response 統一回應結構
//
// StatusCode 與 HTTP 狀態碼一致；錯誤時 Data 帶 error_code 與 request_id。
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// Success 200 成功回應
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: http.StatusOK,
		Msg:        "success",
		Data:       data,
	})
}

// Created 201 成功回應（開卡、建立方案）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		StatusCode: http.StatusCreated,
		Msg:        "created",
		Data:       data,
	})
}

// Error 錯誤回應
func Error(c *gin.Context, status int, errorCode, msg string) {
	c.AbortWithStatusJSON(status, Response{
		StatusCode: status,
		Msg:        msg,
		Data:       errorData(c, errorCode),
	})
}

// BadRequest 400 回應（請求格式錯誤）
func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, CodeRequestInvalid, msg)
}

func errorData(c *gin.Context, errorCode string) gin.H {
	data := gin.H{"error_code": errorCode}
	if c == nil {
		return data
	}
	if value, ok := c.Get(RequestIDKey); ok {
		if id, ok := value.(string); ok && id != "" {
			data["request_id"] = id
		}
	}
	return data
}
