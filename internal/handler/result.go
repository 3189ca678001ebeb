package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deppfellow/candychain/internal/middleware"
	"github.com/deppfellow/candychain/internal/service"
)

// failureStatus is the status written for a failed Result.
func (h Handler) failureStatus() int {
	if status := h.server.Config.Ledger.FailureStatus; status != 0 {
		return status
	}
	return http.StatusOK
}

// fail writes the error text as a JSON string, e.g. "db unavailable".
func (h Handler) fail(c echo.Context, err error) error {
	middleware.GetLogger(c).Warn().
		Err(err).
		Str("route", c.Path()).
		Msg("collaborator reported failure")
	return c.JSON(h.failureStatus(), err.Error())
}

// sendRaw writes a successful Result exactly as the collaborator produced it.
func (h Handler) sendRaw(c echo.Context, result service.Result) error {
	return result.Match(
		func(data []byte) error {
			return c.JSONBlob(http.StatusOK, data)
		},
		func(err error) error {
			return h.fail(c, err)
		},
	)
}

// sendJSON writes a successful Result after checking that it is JSON.
// Payloads that do not parse are reported through the failure branch.
func (h Handler) sendJSON(c echo.Context, result service.Result) error {
	return result.Match(
		func(data []byte) error {
			var buf bytes.Buffer
			if err := json.Compact(&buf, data); err != nil {
				return h.fail(c, errors.Wrap(err, "collaborator returned invalid JSON"))
			}
			return c.JSONBlob(http.StatusOK, buf.Bytes())
		},
		func(err error) error {
			return h.fail(c, err)
		},
	)
}
