package svc

import (
	"errors"
	"fmt"
)

// ErrNotFound 数据不存在（与传输错误区分开，调用方据此决定重试还是放弃）
var ErrNotFound = errors.New("not found")

// ErrAuthFailed 认证失败：凭证、验证码或 2FA 被拒
var ErrAuthFailed = errors.New("authentication failed")

// ErrCookiesRejected cookie 路径探测返回 401，需要走完整登录
var ErrCookiesRejected = errors.New("session cookies rejected")

// ErrCaptchaTimeout 验证码轮询次数耗尽
var ErrCaptchaTimeout = errors.New("captcha poll attempts exhausted")

// ErrStorageInitFailed 存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")

// TransportError wraps a failed HTTP round trip or an unexpected response so
// callers can tell it apart from "the data simply is not there".
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: http %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError 参数校验失败：立即返回，绝不静默修正
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
