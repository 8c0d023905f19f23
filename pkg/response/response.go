// Package response 提供统一的 HTTP 响应格式
// 所有 API 都使用相同的响应结构，便于客户端处理
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
// code: 业务状态码（0 表示成功）
// message: 提示信息
// data: 响应数据
type Response struct {
	Code    int         `json:"code"`           // 业务状态码
	Message string      `json:"message"`        // 提示信息
	Data    interface{} `json:"data,omitempty"` // 响应数据，可选
}

// 业务状态码定义
const (
	CodeSuccess         = 0    // 成功
	CodeBadRequest      = 1000 // 请求参数错误
	CodeUnauthorized    = 1001 // 未授权
	CodeForbidden       = 1002 // 禁止访问
	CodeNotFound        = 1003 // 资源不存在
	CodeInternalError   = 1004 // 服务器内部错误
	CodeTooManyRequests = 1005 // 请求过于频繁
	CodeUserExists      = 1101 // 用户名已存在
	CodeEmailExists     = 1102 // 邮箱已存在
	CodeInvalidLogin    = 1103 // 用户名或密码错误
	CodeUserInactive    = 1104 // 账号已停用
	CodeSessionNotFound = 1301 // 会话不存在
)

// Success 返回成功响应
// 参数:
//   - c: Gin 上下文
//   - data: 响应数据，可以是任意类型
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 返回成功响应（带自定义消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Created 返回 201 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "created",
		Data:    data,
	})
}

// NoContent 返回 204 无内容响应（用于删除操作）
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithCode 返回错误响应（带业务状态码）
// 参数:
//   - c: Gin 上下文
//   - httpCode: HTTP 状态码
//   - bizCode: 业务状态码
//   - message: 错误信息
func ErrorWithCode(c *gin.Context, httpCode, bizCode int, message string) {
	c.JSON(httpCode, Response{
		Code:    bizCode,
		Message: message,
	})
}

// BadRequest 返回 400 错误（请求参数错误）
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized 返回 401 错误（未授权）
func Unauthorized(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden 返回 403 错误（禁止访问）
func Forbidden(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusForbidden, CodeForbidden, message)
}

// NotFound 返回 404 错误（资源不存在）
func NotFound(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusNotFound, CodeNotFound, message)
}

// TooManyRequests 返回 429 错误（触发限流）
func TooManyRequests(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusTooManyRequests, CodeTooManyRequests, message)
}

// InternalError 返回 500 错误（服务器内部错误）
func InternalError(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusInternalServerError, CodeInternalError, message)
}

// UserExists 返回用户名已存在错误
func UserExists(c *gin.Context) {
	ErrorWithCode(c, http.StatusConflict, CodeUserExists, "username already registered")
}

// EmailExists 返回邮箱已存在错误
func EmailExists(c *gin.Context) {
	ErrorWithCode(c, http.StatusConflict, CodeEmailExists, "email already registered")
}

// InvalidLogin 返回登录失败错误
// 用户不存在和密码错误使用同一提示
func InvalidLogin(c *gin.Context) {
	ErrorWithCode(c, http.StatusUnauthorized, CodeInvalidLogin, "incorrect username or password")
}

// UserInactive 返回账号停用错误
func UserInactive(c *gin.Context) {
	ErrorWithCode(c, http.StatusForbidden, CodeUserInactive, "inactive user")
}

// SessionNotFound 返回会话不存在错误
// 会话不存在和不属于当前用户都使用该响应
func SessionNotFound(c *gin.Context) {
	ErrorWithCode(c, http.StatusNotFound, CodeSessionNotFound, "session not found")
}
