package service

import (
	"encoding/json"
	"errors"
)

var errEmptyFailure = errors.New("unknown error")

// Result is the outcome of a ledger collaborator call: either data the
// ledger returned or the error it reported, never both.
type Result struct {
	data []byte
	err  error
}

// Ok wraps a successful payload.
func Ok(data []byte) Result {
	return Result{data: data}
}

// Fail wraps a failure. A nil error still yields a failure.
func Fail(err error) Result {
	if err == nil {
		err = errEmptyFailure
	}
	return Result{err: err}
}

// Match calls exactly one of ok or fail and returns what it returns.
func (r Result) Match(ok func(data []byte) error, fail func(err error) error) error {
	if r.err != nil {
		return fail(r.err)
	}
	return ok(r.data)
}

// Message is the success body of the admin operations.
type Message struct {
	Message string `json:"message"`
}

func okMessage(text string) Result {
	data, err := json.Marshal(Message{Message: text})
	if err != nil {
		return Fail(err)
	}
	return Ok(data)
}
