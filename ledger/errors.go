package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a ledger-layer failure for callers and HTTP mapping.
type Kind string

// Failure kinds surfaced by the ledger layer and the pipelines built on it.
const (
	KindValidation         Kind = "validation"
	KindPrecondition       Kind = "precondition"
	KindLedgerUnavailable  Kind = "ledger_unavailable"
	KindLedgerRevert       Kind = "ledger_revert"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindEventNotFound      Kind = "event_not_found"
	KindMirrorWriteFailure Kind = "mirror_write_failure"
	KindNotFound           Kind = "not_found"
	KindInternal           Kind = "internal"
)

// Error carries a stable failure kind alongside a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a typed ledger error.
func NewError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Errorf constructs a typed ledger error with a formatted detail string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// Revert substrings the contract is known to emit. Only these are parsed out
// of raw revert text; anything else stays a generic revert.
const (
	revertAlreadyRegistered = "already registered"
	revertAlreadyVerified   = "already verified"
	revertNotRegistered     = "not registered"
	msgInsufficientFunds    = "insufficient funds"
)

// normalizeSubmitError maps raw node errors from a transaction path onto the
// failure taxonomy. Reverts carrying a known precondition message are
// reported as preconditions so callers do not retry them.
func normalizeSubmitError(err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, msgInsufficientFunds):
		return NewError(KindInsufficientFunds, "sender cannot cover the transaction fee", err)
	case strings.Contains(msg, revertAlreadyRegistered):
		return NewError(KindPrecondition, "company already registered on ledger", err)
	case strings.Contains(msg, revertAlreadyVerified):
		return NewError(KindPrecondition, "record already verified on ledger", err)
	case strings.Contains(msg, revertNotRegistered):
		return NewError(KindPrecondition, "company not registered on ledger", err)
	case strings.Contains(msg, "execution reverted"), strings.Contains(msg, "revert"):
		return NewError(KindLedgerRevert, "ledger rejected the call", err)
	default:
		return NewError(KindLedgerUnavailable, "ledger node unreachable", err)
	}
}

// normalizeReadError maps raw node errors from a read-only call path.
func normalizeReadError(err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert") {
		return NewError(KindLedgerRevert, "ledger rejected the read", err)
	}
	return NewError(KindLedgerUnavailable, "ledger node unreachable", err)
}
