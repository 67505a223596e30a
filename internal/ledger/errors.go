package ledger

import "errors"

// Every ledger operation either succeeds or returns one of these four error
// kinds, wrapped with detail via fmt.Errorf("%w: ..."). Callers classify with
// errors.Is; the HTTP layer maps each kind to a status code.
//
// ErrOperationInProgress is the only condition worth a client-side retry: it
// means admission was denied because another operation holds an overlapping
// account. The other three are permanent rejections.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrOperationInProgress = errors.New("operation in progress")
)
