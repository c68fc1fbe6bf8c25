package util

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// DBErrorKind classifies a data store error for the HTTP layer.
type DBErrorKind int

const (
	DBErrUnexpected DBErrorKind = iota
	DBErrNotFound
	DBErrInvalid
)

var pgInvalidCodes = map[string]struct{}{
	"23505": {}, // unique_violation
	"23503": {}, // foreign_key_violation
	"23502": {}, // not_null_violation
	"23514": {}, // check_violation
	"22P02": {}, // invalid_text_representation
	"22007": {}, // invalid_datetime_format
	"22008": {}, // datetime_field_overflow
}

var mysqlInvalidCodes = map[uint16]struct{}{
	1048: {}, // column cannot be null
	1062: {}, // duplicate entry
	1451: {}, // row is referenced
	1452: {}, // foreign key fails
}

// ClassifyDBError maps driver and gorm errors onto validation, not-found or
// unexpected failures.
func ClassifyDBError(err error) DBErrorKind {
	if err == nil {
		return DBErrUnexpected
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DBErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return DBErrInvalid
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := pgInvalidCodes[pgErr.Code]; ok {
			return DBErrInvalid
		}
		return DBErrUnexpected
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if _, ok := mysqlInvalidCodes[myErr.Number]; ok {
			return DBErrInvalid
		}
	}
	return DBErrUnexpected
}

// CallDBError responds with the envelope and status matching a data store error.
func CallDBError(c *gin.Context, params APIErrorParams) {
	switch ClassifyDBError(params.Err) {
	case DBErrNotFound:
		CallErrorNotFound(c, params)
	case DBErrInvalid:
		CallUserError(c, params)
	default:
		CallServerError(c, params)
	}
}
