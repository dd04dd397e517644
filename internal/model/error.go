package model

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a domain error for status mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindValidation
	KindInvalidState
	KindConflict
	KindExternalService
	KindUnauthorised
	KindForbidden
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeCartNotFound      = "CART_NOT_FOUND"
	ErrCodeCartItemNotFound  = "CART_ITEM_NOT_FOUND"
	ErrCodeCouponNotFound    = "COUPON_NOT_FOUND"
	ErrCodeCouponExpired     = "COUPON_EXPIRED"
	ErrCodeCouponExists      = "COUPON_EXISTS"
	ErrCodeDiscountApplied   = "DISCOUNT_ALREADY_APPLIED"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeZeroValueCart     = "ZERO_VALUE_CART"
	ErrCodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	ErrCodePaymentGateway    = "PAYMENT_GATEWAY_ERROR"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DomainError is a business-rule failure carrying its classification.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status.
func (e *DomainError) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusBadGateway
	case KindUnauthorised:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports malformed input rejected before any mutation.
func NewValidationError(message string) *DomainError {
	return NewDomainError(KindValidation, ErrCodeValidation, message)
}

// NewExternalServiceError wraps a payment gateway failure.
func NewExternalServiceError(message string, err error) *DomainError {
	return &DomainError{
		Kind:    KindExternalService,
		Code:    ErrCodePaymentGateway,
		Message: message,
		Err:     err,
	}
}

// Common domain errors
var (
	ErrProductNotFound   = NewDomainError(KindNotFound, ErrCodeProductNotFound, "product not found")
	ErrCartNotFound      = NewDomainError(KindNotFound, ErrCodeCartNotFound, "there is no cart for this user")
	ErrCartItemNotFound  = NewDomainError(KindNotFound, ErrCodeCartItemNotFound, "product is not in the cart")
	ErrCouponNotFound    = NewDomainError(KindNotFound, ErrCodeCouponNotFound, "coupon not found")
	ErrCouponExpired     = NewDomainError(KindInvalidState, ErrCodeCouponExpired, "coupon expired")
	ErrCouponExists      = NewDomainError(KindConflict, ErrCodeCouponExists, "a coupon with this name already exists")
	ErrDiscountApplied   = NewDomainError(KindConflict, ErrCodeDiscountApplied, "discount already applied")
	ErrOrderNotFound     = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "order not found")
	ErrZeroValueCart     = NewDomainError(KindInvalidState, ErrCodeZeroValueCart, "cannot order a zero-value cart")
	ErrAlreadyPaid       = NewDomainError(KindInvalidState, ErrCodeInvalidTransition, "order is already paid")
	ErrPaidIrreversible  = NewDomainError(KindInvalidState, ErrCodeInvalidTransition, "a paid order cannot be marked unpaid")
	ErrDeliveredFinal    = NewDomainError(KindInvalidState, ErrCodeInvalidTransition, "a delivered order cannot be marked undelivered")
	ErrCardPaidByGateway = NewDomainError(KindInvalidState, ErrCodeInvalidTransition, "card orders are marked paid by payment confirmation only")
	ErrDeliverUnpaid     = NewDomainError(KindInvalidState, ErrCodeInvalidTransition, "card orders must be paid before delivery")
	ErrNotCardOrder      = NewDomainError(KindInvalidState, ErrCodeInvalidTransition, "invoices are only issued for card orders")
	ErrPaymentsDisabled  = NewDomainError(KindExternalService, ErrCodePaymentGateway, "online payments are not enabled")
	ErrUnauthorised      = NewDomainError(KindUnauthorised, ErrCodeUnauthorised, "you must log in to access this route")
	ErrForbidden         = NewDomainError(KindForbidden, ErrCodeForbidden, "this route is not allowed for the logged in user")
)

// KindOf returns the kind of a domain error anywhere in err's chain.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
