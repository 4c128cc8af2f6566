package ledger

import "errors"

// Every failure of a ledger call is one of these conditions. A failed call
// never changes state.
var (
	ErrZeroValue      = errors.New("ledger: zero value")
	ErrZeroAddress    = errors.New("ledger: zero address")
	ErrFeeTooHigh     = errors.New("ledger: fee too high")
	ErrNotOwner       = errors.New("ledger: caller is not the owner")
	ErrTransferFailed = errors.New("ledger: transfer failed")
	ErrOverflow       = errors.New("ledger: arithmetic overflow")
	ErrUnderflow      = errors.New("ledger: arithmetic underflow")

	// ErrStateNotFound is returned by a Store that was never initialized.
	ErrStateNotFound = errors.New("ledger: state not found")
	ErrEventGap      = errors.New("ledger: event log is not contiguous")
)

// IsArithmeticError reports whether err comes from a bounded arithmetic check.
func IsArithmeticError(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrUnderflow)
}
