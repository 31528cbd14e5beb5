package db

import (
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrDuplicateEntryCode = 1062
)

func MysqlErrCode(err error) int {
	mysqlErr, ok := err.(*mysql.MySQLError)
	if !ok {
		return 0
	}
	return int(mysqlErr.Number)
}

// IsDuplicateEntryErr matches the unique-key violation of both supported
// dialects.
func IsDuplicateEntryErr(err error) bool {
	if err == nil {
		return false
	}
	if MysqlErrCode(err) == ErrDuplicateEntryCode {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
