package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/candychain/internal/errs"
)

type samplePayload struct {
	Key   string `json:"key" validate:"required,ledgerkey"`
	Owner string `json:"owner" validate:"required,max=8"`
}

func (p *samplePayload) Validate() error { return Struct(p) }

type customPayload struct{}

func (p *customPayload) Validate() error {
	return CustomValidationErrors{{Field: "owner", Message: "must differ from the current owner"}}
}

func newContext(body string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestIsValidLedgerKey(t *testing.T) {
	assert.True(t, IsValidLedgerKey("CANDY7"))
	assert.True(t, IsValidLedgerKey("gum_1-a"))
	assert.False(t, IsValidLedgerKey(""))
	assert.False(t, IsValidLedgerKey("CANDY 7"))
	assert.False(t, IsValidLedgerKey(strings.Repeat("k", 65)))
}

func TestBindAndValidate_OK(t *testing.T) {
	var p samplePayload
	require.NoError(t, BindAndValidate(newContext(`{"key":"CANDY7","owner":"Tom"}`), &p))
	assert.Equal(t, "CANDY7", p.Key)
}

func TestBindAndValidate_FieldErrors(t *testing.T) {
	err := BindAndValidate(newContext(`{"key":"bad key","owner":"someone-long"}`), &samplePayload{})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "Validation failed", httpErr.Message)
	assert.ElementsMatch(t, []errs.FieldError{
		{Field: "key", Error: "must be 1-64 letters, digits, '-' or '_'"},
		{Field: "owner", Error: "must not exceed 8 characters"},
	}, httpErr.Errors)
}

func TestBindAndValidate_Required(t *testing.T) {
	err := BindAndValidate(newContext(`{}`), &samplePayload{})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Len(t, httpErr.Errors, 2)
	assert.Equal(t, "is required", httpErr.Errors[0].Error)
}

func TestBindAndValidate_MalformedBody(t *testing.T) {
	err := BindAndValidate(newContext(`{"key":`), &samplePayload{})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Nil(t, httpErr.Errors)
}

func TestBindAndValidate_CustomErrors(t *testing.T) {
	err := BindAndValidate(newContext(`{}`), &customPayload{})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, []errs.FieldError{{Field: "owner", Error: "must differ from the current owner"}}, httpErr.Errors)
}
