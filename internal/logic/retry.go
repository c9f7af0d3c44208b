package logic

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	conflictAttempts    = 3                     // 写冲突最大尝试次数
	conflictBackoffBase = 50 * time.Millisecond // 退避基数，按次数指数增长
)

// errStaleState 事务内的条件更新没有命中任何行，说明读到的快照已经
// 被并发事务改掉。按冲突处理，由 withConflictRetry 从头重跑。
var errStaleState = errors.New("并发更新导致快照过期")

// withConflictRetry 对可串行化冲突做有界重试。每次尝试都重新执行
// fn，从数据库重读状态并重新校验全部不变量，绝不基于旧快照重放。
// 重试耗尽后向调用方返回 KindConflict，状态保持未变。
func withConflictRetry(fn func() error) error {
	backoff := conflictBackoffBase
	var err error
	for attempt := 0; attempt < conflictAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		err = fn()
		if err == nil || !isConflictErr(err) {
			return err
		}
	}
	return &Error{Kind: KindConflict, Message: "并发冲突重试次数已耗尽，请稍后再试", Err: err}
}

// isConflictErr 识别底层存储的串行化/写冲突错误
func isConflictErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errStaleState) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
	}
	// sqlite（测试环境）的忙等错误
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
