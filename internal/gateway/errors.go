package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the Gateway hands back to its caller.
type Kind string

const (
	KindWalletUnavailable Kind = "WalletUnavailable"
	KindConnectionFailed  Kind = "ConnectionFailed"
	KindNotConnected      Kind = "NotConnected"
	KindTransactionFailed Kind = "TransactionFailed"
	KindQueryFailed       Kind = "QueryFailed"
)

// Sentinels for errors.Is. Matching is done on Kind only.
var (
	ErrWalletUnavailable = &Error{Kind: KindWalletUnavailable}
	ErrConnectionFailed  = &Error{Kind: KindConnectionFailed}
	ErrNotConnected      = &Error{Kind: KindNotConnected}
	ErrTransactionFailed = &Error{Kind: KindTransactionFailed}
	ErrQueryFailed       = &Error{Kind: KindQueryFailed}
)

// ErrWalletMissing is returned by wallet implementations when there is no
// identity to authorize. Connect reports it as WalletUnavailable.
var ErrWalletMissing = errors.New("no wallet identity present")

// Error is the single error type surfaced by the Gateway: a kind plus a
// human readable message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err was not produced by the Gateway.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}
