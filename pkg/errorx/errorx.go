package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 实现了 error 接口，支持 %w 包装底层错误，且能被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 错误消息
	cause error  // 被包装的底层错误
}

// Error 有底层错误时返回 "消息: 底层错误"，否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 两个 CodeError 错误码相同即视为同一类错误
// 用法: errors.Is(err, errorx.ErrQuotaExceeded)
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Kind 返回错误码所属的错误类别
func (e *CodeError) Kind() Kind {
	return kindOfCode(e.Code)
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "会话不存在")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg, cause: err}
}

// Wrapf 包装底层错误，支持格式化消息
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...), cause: err}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回默认码
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// 业务状态码常量定义
const (
	CodeSuccess           = 1000 // 成功
	CodeInvalidParam      = 1001 // 请求参数错误（ValidationError）
	CodeServerBusy        = 1005 // 服务繁忙
	CodeUnauthorized      = 1006 // 未授权/认证失败
	CodeNotFound          = 1008 // 资源不存在
	CodeDBError           = 1010 // 数据库错误
	CodeCacheError        = 1011 // 缓存错误
	CodeInvalidTransition = 1012 // 非法的关系状态迁移
	CodeDeliveryFailure   = 1013 // 单个接收者投递失败
	CodeConflict          = 1014 // 唯一约束冲突
	CodeQueueError        = 1015 // 投递队列错误
)

// 权限拒绝类错误码，每个原因一个稳定的码
const (
	CodePermissionDenied        = 1100 // 权限拒绝（通用）
	CodeRelationshipBlocked     = 1101 // 双方关系已拉黑
	CodePendingLimit            = 1102 // 申请中只允许发送一条破冰消息
	CodeHiddenLimit             = 1103 // 隐藏关系只允许发送一条消息
	CodePeerBlockedConversation = 1104 // 对方屏蔽了该会话
	CodeSelfBlockedConversation = 1105 // 自己屏蔽了该会话
	CodeQuotaExceeded           = 1106 // 会话未通过且破冰额度已用完
	CodeSelfAccept              = 1107 // 发起方不能自己通过申请
	CodeNotParticipant          = 1108 // 不是会话/关系的参与方

	permissionDeniedMax = 1199
)

// 预定义常用错误实例
// 既可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy   = New(CodeServerBusy, "服务繁忙")
	ErrUnauthorized = New(CodeUnauthorized, "认证失败")

	ErrRelationshipBlocked     = New(CodeRelationshipBlocked, "relationship is blocked")
	ErrPendingLimit            = New(CodePendingLimit, "only one message is allowed while the request is pending")
	ErrHiddenLimit             = New(CodeHiddenLimit, "only one message is allowed for a hidden relationship")
	ErrPeerBlockedConversation = New(CodePeerBlockedConversation, "conversation is blocked by the other profile")
	ErrSelfBlockedConversation = New(CodeSelfBlockedConversation, "conversation is blocked by the sender")
	ErrQuotaExceeded           = New(CodeQuotaExceeded, "conversation is not approved and the icebreaker was already used")
	ErrSelfAccept              = New(CodeSelfAccept, "the sender of a request cannot accept it")
	ErrNotParticipant          = New(CodeNotParticipant, "profile is not a participant")
)

// Kind 错误类别
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindUnauthorized      Kind = "Unauthorized"
	KindPermissionDenied  Kind = "PermissionDenied"
	KindNotFound          Kind = "NotFound"
	KindInvalidTransition Kind = "InvalidTransition"
	KindDeliveryFailure   Kind = "DeliveryFailure"
	KindConflict          Kind = "Conflict"
	KindInternal          Kind = "Internal"
)

func kindOfCode(code int) Kind {
	switch {
	case code == CodeInvalidParam:
		return KindValidation
	case code == CodeUnauthorized:
		return KindUnauthorized
	case code == CodeNotFound:
		return KindNotFound
	case code == CodeInvalidTransition:
		return KindInvalidTransition
	case code == CodeDeliveryFailure:
		return KindDeliveryFailure
	case code == CodeConflict:
		return KindConflict
	case code >= CodePermissionDenied && code <= permissionDeniedMax:
		return KindPermissionDenied
	default:
		return KindInternal
	}
}

// KindOf 返回错误链上第一个 CodeError 的类别，非 CodeError 视为内部错误
func KindOf(err error) Kind {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Kind()
	}
	return KindInternal
}

// IsPermissionDenied 检查错误是否为权限拒绝类
func IsPermissionDenied(err error) bool {
	return KindOf(err) == KindPermissionDenied
}

// IsNotFound 检查错误是否为"未找到"类型（包括 gorm.ErrRecordNotFound）
func IsNotFound(err error) bool {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && codeErr.Code == CodeNotFound {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// IsConflict 检查错误是否为唯一约束冲突
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
