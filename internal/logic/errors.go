package logic

import (
	"errors"
	"fmt"

	"github.com/sh4d0wy/fox-backend/internal/journal"
)

// ErrorKind 对账错误分类。校验类错误在事务内被发现并带着原因返回，
// 绝不产生半写；冲突与网络类错误先在内部重试，超限才向调用方暴露。
type ErrorKind int

const (
	KindUnconfirmed ErrorKind = iota + 1 // 链上交易未终局，客户端稍后重试
	KindDuplicate                        // 幂等重放，良性
	KindInvariant                        // 本地校验失败（容量、状态、权限、过期出价、重复领取）
	KindConflict                         // 写冲突重试耗尽
	KindUnrevealed                       // 随机数尚未揭示
	KindNetwork                          // 外部网络故障，结果未知
)

// Error 携带分类的对账错误
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// invariantf 构造校验失败错误
func invariantf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvariant, Message: fmt.Sprintf(format, args...)}
}

// KindOf 提取错误分类，非本包错误返回 0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, journal.ErrDuplicate) {
		return KindDuplicate
	}
	return 0
}

func IsDuplicate(err error) bool   { return KindOf(err) == KindDuplicate }
func IsInvariant(err error) bool   { return KindOf(err) == KindInvariant }
func IsUnconfirmed(err error) bool { return KindOf(err) == KindUnconfirmed }
func IsConflict(err error) bool    { return KindOf(err) == KindConflict }
func IsUnrevealed(err error) bool  { return KindOf(err) == KindUnrevealed }
func IsNetwork(err error) bool     { return KindOf(err) == KindNetwork }

// wrapApply 统一把流水层的去重结果翻译成分类错误
func wrapApply(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, journal.ErrDuplicate) {
		return &Error{Kind: KindDuplicate, Message: err.Error()}
	}
	return err
}
