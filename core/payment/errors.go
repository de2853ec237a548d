package payment

import (
	"errors"
	"fmt"
)

var (
	// ledger
	ErrNotFound           = errors.New("payment request not found")
	ErrDuplicateReference = errors.New("this transaction ID has already been used")
	ErrInvalidTransition  = errors.New("payment request has already been reviewed")

	// checkout session
	ErrAuthRequired       = errors.New("sign in to continue")
	ErrValidationFailed   = errors.New("payment details are incomplete or invalid")
	ErrStepOrder          = errors.New("checkout step is not available yet")
	ErrSubmitInProgress   = errors.New("payment submission already in progress")
	ErrSessionClosed      = errors.New("checkout session already submitted")
	errProofMissing       = errors.New("upload a screenshot of the payment")
	errTransactionRefForm = errors.New("transaction ID must be exactly 12 digits")
	errNotAcknowledged    = errors.New("confirm the declaration before submitting")

	// verification queue
	ErrNotConfirmed     = errors.New("action cancelled by operator")
	ErrActionInProgress = errors.New("another review action is in progress")
)

// Proof problems are validation failures too.
var (
	ErrFileTooLarge     = fmt.Errorf("%w: proof image must not be larger than 5MB", ErrValidationFailed)
	ErrUnsupportedProof = fmt.Errorf("%w: proof must be a PNG, JPEG, GIF or WebP image", ErrValidationFailed)
)

// AuthRequiredError is returned when a checkout step needs a signed in purchaser.
// Resume is where the purchaser must land after signing in to pick the checkout up again.
type AuthRequiredError struct {
	Resume string
}

func (e *AuthRequiredError) Error() string        { return ErrAuthRequired.Error() }
func (e *AuthRequiredError) Is(target error) bool { return target == ErrAuthRequired }

// IsStale reports whether err means the verifier looked at an outdated queue.
func IsStale(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition)
}
