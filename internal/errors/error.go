// Package errors provides the error taxonomy shared by the bazaar services.
//
// Every domain error wraps exactly one kind (ErrValidation, ErrNotFound, ErrForbidden,
// ErrUpstream, ErrServiceUnavailable, ErrRateLimited) so the transport layer can classify
// it with errors.Is, while callers can still match the specific sentinel.
package errors

import (
	"errors"
	"fmt"
)

// Kinds.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUpstream           = errors.New("upstream error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Cart
var ErrStoreItemNotFound = newError(ErrNotFound, "store item not found")
var ErrStoreItemInactive = newError(ErrValidation, "store item is not available for sale")
var ErrInvalidQuantity = newError(ErrValidation, "quantity must be greater than zero")
var ErrQuantityExceedsStock = newError(ErrValidation, "requested quantity exceeds available stock")
var ErrCartNotFound = newError(ErrNotFound, "Cart not found")
var ErrCartItemNotFound = newError(ErrNotFound, "cart item not found")
var ErrCartItemForbidden = newError(ErrForbidden, "cart item belongs to another user")

// Orders
var ErrCartEmpty = newError(ErrValidation, "cart is empty")
var ErrMissingAddress = newError(ErrValidation, "Missing address_id in request body")
var ErrAddressNotFound = newError(ErrNotFound, "address not found")
var ErrOrderNotFound = newError(ErrNotFound, "order not found")
var ErrInsufficientStock = newError(ErrValidation, "insufficient stock")
var ErrInvalidStatusTransition = newError(ErrValidation, "order status can only move from PENDING to PROCESSING or DELIVERED")
var ErrOrderNotCancellable = newError(ErrValidation, "only pending orders can be cancelled")
var ErrNotSeller = newError(ErrForbidden, "only the seller of this order can change its status")
var ErrSellerOnly = newError(ErrForbidden, "a seller account is required")

// Payments
var ErrOrderNotPayable = newError(ErrValidation, "only pending orders can be paid")
var ErrAmountBelowMinimum = newError(ErrValidation, "order total is below the gateway minimum amount")
var ErrPaymentNotFound = newError(ErrNotFound, "payment not found")
var ErrPaymentAlreadySettled = errors.New("payment already settled")
var ErrGatewayUnavailable = newError(ErrServiceUnavailable, "payment gateway is unavailable, please retry later")

// OTP
var ErrMissingUsername = newError(ErrValidation, "Username is required.")
var ErrMissingOTP = newError(ErrValidation, "Username and OTP are required.")
var ErrUserNotFound = newError(ErrNotFound, "User not found.")
var ErrInvalidOTP = newError(ErrValidation, "Invalid or expired OTP.")
var ErrOTPCooldown = newError(ErrRateLimited, "An OTP was sent recently, please wait before requesting another.")

// Store
var ErrOrderStatusConflict = errors.New("order is not in the expected status")
var ErrCartItemExists = errors.New("cart already has a line for this store item")
var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

// InsufficientStockError reports a store item that cannot cover the requested quantity.
type InsufficientStockError struct {
	Product   string
	Remaining int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Only %d left.", e.Product, e.Remaining)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// UpstreamError carries a business rejection reported by the payment gateway.
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("payment gateway rejected the request: %s (code %d)", e.Message, e.Code)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }
