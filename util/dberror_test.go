package util

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want DBErrorKind
	}{
		{"record not found", gorm.ErrRecordNotFound, DBErrNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), DBErrNotFound},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, DBErrInvalid},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, DBErrInvalid},
		{"postgres bad uuid text", &pgconn.PgError{Code: "22P02"}, DBErrInvalid},
		{"postgres connection failure", &pgconn.PgError{Code: "08006"}, DBErrUnexpected},
		{"mysql duplicate entry", &mysql.MySQLError{Number: 1062}, DBErrInvalid},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, DBErrUnexpected},
		{"plain error", errors.New("boom"), DBErrUnexpected},
		{"nil", nil, DBErrUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDBError(tt.err))
		})
	}
}

func TestCallDBErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		want int
	}{
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{&pgconn.PgError{Code: "23503"}, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		CallDBError(c, APIErrorParams{Msg: "failed", Err: tt.err})
		assert.Equal(t, tt.want, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	}
}
