package apperrors

import (
	"net/http"
)

/*
Factories and predefined variables for recurring business-logic errors.
*/

// ErrNotFound converts a repository miss (e.g. gorm.ErrRecordNotFound) into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists converts a unique-constraint hit into a 409.
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict is the generic 409 factory.
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation is the factory for operations the current state forbids.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidCredentials is returned on login with a wrong email/password pair.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

// ErrInsufficientPermissions is returned when a non-admin hits an admin route.
var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// --- Billing ---

// ErrAccountBlocked is returned by the access-control gate for accounts whose
// payment failed past the blocking deadline. 402 so clients can route the user
// to the payment page.
var ErrAccountBlocked = New(
	CodeAccountBlocked,
	"billing",
	"Account is blocked due to an unpaid subscription",
	http.StatusPaymentRequired,
)

// ErrPaymentActionRequired is surfaced when the gateway needs the customer to
// complete additional authentication before the charge can settle.
var ErrPaymentActionRequired = New(
	CodePaymentActionRequired,
	"billing",
	"Payment requires additional authentication",
	http.StatusPaymentRequired,
)
