package sqlerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/candychain/internal/errs"
)

func TestMapCode(t *testing.T) {
	assert.Equal(t, UniqueViolation, MapCode("23505"))
	assert.Equal(t, NotNullViolation, MapCode("23502"))
	assert.Equal(t, ConnectionFailure, MapCode("08006"))
	assert.Equal(t, Other, MapCode("XX000"))
}

func TestErrCode_RawAndConverted(t *testing.T) {
	raw := &pgconn.PgError{Code: "23505", Severity: "ERROR", TableName: "identities"}

	assert.Equal(t, UniqueViolation, ErrCode(fmt.Errorf("insert: %w", raw)))
	assert.Equal(t, UniqueViolation, ErrCode(ConvertPgError(raw)))
	assert.Equal(t, Other, ErrCode(errors.New("boom")))
}

func TestConvertPgError_Unwraps(t *testing.T) {
	raw := &pgconn.PgError{Code: "23502", Severity: "FATAL"}
	converted := ConvertPgError(raw)

	assert.Equal(t, SeverityFatal, converted.Severity)
	assert.ErrorIs(t, converted, raw)
}

func TestHandleError_UniqueViolationOnIdentities(t *testing.T) {
	err := HandleError(&pgconn.PgError{
		Code:           "23505",
		Severity:       "ERROR",
		TableName:      "identities",
		ConstraintName: "identities_label_key",
	})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "IDENTITY_ALREADY_EXISTS", httpErr.Code)
	assert.Equal(t, "An Identity with this Label already exists", httpErr.Message)
	assert.True(t, httpErr.Override)
}

func TestHandleError_NotNull(t *testing.T) {
	err := HandleError(&pgconn.PgError{Code: "23502", TableName: "identities", ColumnName: "msp_id"})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "IDENTITY_REQUIRED", httpErr.Code)
	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, "msp_id", httpErr.Errors[0].Field)
}

func TestHandleError_NoRows(t *testing.T) {
	var httpErr *errs.HTTPError
	require.ErrorAs(t, HandleError(pgx.ErrNoRows), &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestHandleError_PassThroughAndFallback(t *testing.T) {
	original := errs.NewForbiddenError("nope", false)
	assert.Same(t, original, HandleError(original))

	var httpErr *errs.HTTPError
	require.ErrorAs(t, HandleError(errors.New("driver exploded")), &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
}

func TestSingular(t *testing.T) {
	assert.Equal(t, "identity", singular("identities"))
	assert.Equal(t, "candy", singular("candys"))
	assert.Equal(t, "s", singular("s"))
}
