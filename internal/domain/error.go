package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid query execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Discount validation errors. These are reported to the caller verbatim,
	// so they must not leak internal counters.
	ErrDiscountNotFound      = errors.New("discount code not found")
	ErrDiscountInactive      = errors.New("discount code is not active")
	ErrDiscountNotStarted    = errors.New("discount code is not valid yet")
	ErrDiscountExpired       = errors.New("discount code has expired")
	ErrDiscountExhausted     = errors.New("discount code is no longer available")
	ErrDiscountNotApplicable = errors.New("discount code does not apply to this order")
	ErrDiscountMinPurchase   = errors.New("order total is below the code's minimum")
	ErrDiscountUserLimit     = errors.New("discount code already used")

	// Checkout / capture errors
	ErrEmptyCart          = errors.New("cart is empty")
	ErrAmountMismatch     = errors.New("settled amount does not match expected total")
	ErrCurrencyMismatch   = errors.New("capture currency does not match cart currency")
	ErrCaptureNotComplete = errors.New("provider did not complete the capture")
	ErrProvider           = errors.New("payment provider unavailable")

	// Webhook errors
	ErrBadSignature = errors.New("invalid webhook signature")
)
