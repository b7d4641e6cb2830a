// Package errs maps the errors raised while serving a request to the
// response sent back to the client.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/utxochain/foundation/web"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error a handler expects, its message is safe to show to the
// client with the provided status.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface.
func (t *Trusted) Error() string {
	return t.Err.Error()
}

// Unwrap returns the wrapped error.
func (t *Trusted) Unwrap() error {
	return t.Err
}

// =============================================================================

// ledgerErrors are the errors of the ledger packages a client can act on.
var ledgerErrors = []struct {
	target error
	status int
}{
	{state.ErrNotSynced, http.StatusServiceUnavailable},
	{state.ErrAlreadySeen, http.StatusBadRequest},
	{database.ErrTxRejected, http.StatusBadRequest},
	{database.ErrInsufficientFunds, http.StatusBadRequest},
	{wallet.ErrNoWallets, http.StatusBadRequest},
}

// Classify returns the response and the status for the error. Errors that
// are neither trusted nor raised by the ledger are reported as internal
// errors without their message.
func Classify(err error) (Response, int) {
	if web.IsFieldErrors(err) {
		resp := Response{
			Error:  "data validation error",
			Fields: web.GetFieldErrors(err).Fields(),
		}
		return resp, http.StatusBadRequest
	}

	var t *Trusted
	if errors.As(err, &t) {
		return Response{Error: t.Error()}, t.Status
	}

	for _, le := range ledgerErrors {
		if errors.Is(err, le.target) {
			return Response{Error: err.Error()}, le.status
		}
	}

	return Response{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError
}
