package lot

import (
	"errors"
	"fmt"
)

// Reason classifies why a token was rejected.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonNonNumeric  Reason = "non_numeric"
	ReasonWrongLength Reason = "wrong_length"
	ReasonDuplicate   Reason = "duplicate"
	ReasonLotFull     Reason = "lot_full"
)

// Sentinel errors, one per Reason. A *ValidationError unwraps to the
// sentinel of its reason so callers can use errors.Is.
var (
	ErrEmpty       = errors.New("empty token")
	ErrNonNumeric  = errors.New("token is not numeric")
	ErrWrongLength = errors.New("token has wrong length")
	ErrDuplicate   = errors.New("duplicate token")
	ErrLotFull     = errors.New("lot is full")
)

// ValidationError reports a rejected submission. The session that produced
// it is unchanged.
type ValidationError struct {
	// Reason is the machine-readable rejection class.
	Reason Reason

	// Token is the offending token, if one could be isolated.
	Token string

	// Message is the operator-facing notice.
	Message string
}

// Error returns the operator-facing message.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error matching the Reason.
func (e *ValidationError) Unwrap() error {
	switch e.Reason {
	case ReasonEmpty:
		return ErrEmpty
	case ReasonNonNumeric:
		return ErrNonNumeric
	case ReasonWrongLength:
		return ErrWrongLength
	case ReasonDuplicate:
		return ErrDuplicate
	case ReasonLotFull:
		return ErrLotFull
	default:
		return nil
	}
}

func rejectf(reason Reason, token, format string, args ...any) *ValidationError {
	return &ValidationError{
		Reason:  reason,
		Token:   token,
		Message: fmt.Sprintf(format, args...),
	}
}

// ListingError reports a malformed lot listing.
type ListingError struct {
	// Lot is the lot number of the offending block (0 if unknown).
	Lot int

	// Problem describes what is wrong with the block.
	Problem string
}

func (e *ListingError) Error() string {
	if e.Lot == 0 {
		return fmt.Sprintf("invalid lot listing: %s", e.Problem)
	}
	return fmt.Sprintf("invalid lot listing: LOT %d: %s", e.Lot, e.Problem)
}
