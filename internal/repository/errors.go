package repository

import (
	"errors"

	"quiz_engine_backend/internal/util"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MySQL deadlock / lock wait timeout; Postgres serialization failure / deadlock.
const (
	mysqlDeadlock        = 1213
	mysqlLockWaitTimeout = 1205
	pgSerialization      = "40001"
	pgDeadlock           = "40P01"
)

// IsRetryable reports whether err is a concurrency conflict that may succeed
// when the transaction is run again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, util.ErrAttemptConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerialization || pgErr.Code == pgDeadlock
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
