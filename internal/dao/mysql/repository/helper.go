package repository

import (
	"errors"

	"gated_chat_server/pkg/errorx"

	mysqlerr "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// mysqlDuplicateEntry MySQL 唯一键冲突错误号
const mysqlDuplicateEntry = 1062

// wrapDBError 包装数据库错误
// 根据错误类型返回不同的错误码：
//   - ErrRecordNotFound -> CodeNotFound
//   - 唯一键冲突 -> CodeConflict
//   - 其他错误 -> CodeDBError
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errorx.Wrap(err, codeOf(err), msg)
}

// wrapDBErrorf 功能同 wrapDBError，支持格式化消息
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errorx.Wrapf(err, codeOf(err), format, args...)
}

func codeOf(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorx.CodeNotFound
	case isDuplicateKey(err):
		return errorx.CodeConflict
	default:
		return errorx.CodeDBError
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqlerr.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
