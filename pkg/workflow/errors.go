package workflow

import (
	"errors"
	"fmt"
)

// Domain-level error values returned for invalid input or wiring.
var (
	ErrInvalidResourceID   = errors.New("invalid resource id")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidUsername     = errors.New("invalid username")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrInvalidPipeline     = errors.New("invalid pipeline")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNegativeQuantity    = errors.New("quantity would become negative")
	ErrDuplicateUser       = errors.New("duplicate user")
	ErrDuplicateMember     = errors.New("duplicate member")
	ErrGuardPanicked       = errors.New("guard panicked")
	ErrCompensationFailure = errors.New("compensation failed")
)

// ErrorKind tags a GuardError. It implements error so callers can match a kind
// with errors.Is.
type ErrorKind string

const (
	KindOutOfStock          ErrorKind = "out_of_stock"
	KindDeclined            ErrorKind = "declined"
	KindInvalidFormat       ErrorKind = "invalid_format"
	KindMembershipExpired   ErrorKind = "membership_expired"
	KindBorrowLimitExceeded ErrorKind = "borrow_limit_exceeded"
	KindUserNotFound        ErrorKind = "user_not_found"
	KindInvalidPassword     ErrorKind = "invalid_password"
	KindAccountLocked       ErrorKind = "account_locked"
	KindInsufficientFunds   ErrorKind = "insufficient_funds"
	KindDailyLimitExceeded  ErrorKind = "daily_limit_exceeded"
	KindFileNotFound        ErrorKind = "file_not_found"
	KindInsufficientStorage ErrorKind = "insufficient_storage"
	KindNotBorrowed         ErrorKind = "not_borrowed"
)

// Error returns the stable kind code.
func (kind ErrorKind) Error() string {
	return string(kind)
}

// String returns the stable kind code.
func (kind ErrorKind) String() string {
	return string(kind)
}

// GuardError is the failure raised by a Guard. The populated payload fields
// depend on the kind.
type GuardError struct {
	kind      ErrorKind
	resource  string
	requested Quantity
	available Quantity
	limit     Quantity
	reason    string
	input     string
}

// NewOutOfStockError reports a stock reservation larger than the stock on hand.
func NewOutOfStockError(resourceID ResourceID, requested Quantity, available Quantity) GuardError {
	return GuardError{kind: KindOutOfStock, resource: resourceID.String(), requested: requested, available: available}
}

// NewDeclinedError reports a payment refused by the payment step.
func NewDeclinedError(reason string) GuardError {
	return GuardError{kind: KindDeclined, reason: reason}
}

// NewInvalidFormatError reports a shipping address that failed validation.
func NewInvalidFormatError(input string) GuardError {
	return GuardError{kind: KindInvalidFormat, input: input}
}

// NewMembershipExpiredError reports an inactive membership.
func NewMembershipExpiredError(memberID ResourceID) GuardError {
	return GuardError{kind: KindMembershipExpired, resource: memberID.String()}
}

// NewBorrowLimitExceededError reports a loan that would exceed the member limit.
func NewBorrowLimitExceededError(memberID ResourceID, requested Quantity, limit Quantity) GuardError {
	return GuardError{kind: KindBorrowLimitExceeded, resource: memberID.String(), requested: requested, limit: limit}
}

// NewUserNotFoundError reports an unknown username.
func NewUserNotFoundError(username string) GuardError {
	return GuardError{kind: KindUserNotFound, input: username}
}

// NewInvalidPasswordError reports a password mismatch.
func NewInvalidPasswordError(username string) GuardError {
	return GuardError{kind: KindInvalidPassword, input: username}
}

// NewAccountLockedError reports a login attempt against a locked account.
func NewAccountLockedError(username string) GuardError {
	return GuardError{kind: KindAccountLocked, input: username}
}

// NewInsufficientFundsError reports a withdrawal larger than the balance.
func NewInsufficientFundsError(accountID ResourceID, requested Quantity, balance Quantity) GuardError {
	return GuardError{kind: KindInsufficientFunds, resource: accountID.String(), requested: requested, available: balance}
}

// NewDailyLimitExceededError reports a withdrawal larger than the daily limit.
func NewDailyLimitExceededError(accountID ResourceID, requested Quantity, limit Quantity) GuardError {
	return GuardError{kind: KindDailyLimitExceeded, resource: accountID.String(), requested: requested, limit: limit}
}

// NewFileNotFoundError reports a backup of a file that does not exist.
func NewFileNotFoundError(path string) GuardError {
	return GuardError{kind: KindFileNotFound, input: path}
}

// NewInsufficientStorageError reports a backup larger than the free capacity.
func NewInsufficientStorageError(volumeID ResourceID, needed Quantity, available Quantity) GuardError {
	return GuardError{kind: KindInsufficientStorage, resource: volumeID.String(), requested: needed, available: available}
}

// NewNotBorrowedError reports a return of more books than the member holds.
func NewNotBorrowedError(memberID ResourceID, requested Quantity, borrowed Quantity) GuardError {
	return GuardError{kind: KindNotBorrowed, resource: memberID.String(), requested: requested, available: borrowed}
}

// Error returns the user-facing message for the kind.
func (guardError GuardError) Error() string {
	switch guardError.kind {
	case KindOutOfStock:
		return fmt.Sprintf("Product %s is out of stock: requested %s, available %s.", guardError.resource, guardError.requested, guardError.available)
	case KindDeclined:
		return fmt.Sprintf("Payment declined: %s", guardError.reason)
	case KindInvalidFormat:
		return fmt.Sprintf("Invalid shipping address: '%s'.", guardError.input)
	case KindMembershipExpired:
		return "Membership expired. Please renew to borrow books."
	case KindBorrowLimitExceeded:
		return fmt.Sprintf("Borrow limit exceeded. Max allowed: %s books.", guardError.limit)
	case KindUserNotFound:
		return fmt.Sprintf("User '%s' not found.", guardError.input)
	case KindInvalidPassword:
		return "Invalid password provided."
	case KindAccountLocked:
		return "Account is locked due to multiple failed login attempts."
	case KindInsufficientFunds:
		return fmt.Sprintf("Requested $%s, but balance is only $%s.", guardError.requested, guardError.available)
	case KindDailyLimitExceeded:
		return fmt.Sprintf("Daily limit exceeded: requested $%s, limit is $%s.", guardError.requested, guardError.limit)
	case KindFileNotFound:
		return fmt.Sprintf("File not found: %s", guardError.input)
	case KindInsufficientStorage:
		return fmt.Sprintf("Not enough storage: needed %sMB, available %sMB.", guardError.requested, guardError.available)
	case KindNotBorrowed:
		return "No borrowed books found."
	default:
		return string(guardError.kind)
	}
}

// Unwrap exposes the kind for errors.Is matching.
func (guardError GuardError) Unwrap() error {
	return guardError.kind
}

// Kind returns the error kind.
func (guardError GuardError) Kind() ErrorKind {
	return guardError.kind
}

// Resource returns the identifier the failure refers to, if any.
func (guardError GuardError) Resource() string {
	return guardError.resource
}

// Requested returns the requested quantity carried by quantity-based kinds.
func (guardError GuardError) Requested() Quantity {
	return guardError.requested
}

// Available returns the available quantity (stock, balance, capacity, borrowed count).
func (guardError GuardError) Available() Quantity {
	return guardError.available
}

// Limit returns the limit carried by limit-based kinds.
func (guardError GuardError) Limit() Quantity {
	return guardError.limit
}

// Reason returns the decline reason.
func (guardError GuardError) Reason() string {
	return guardError.reason
}

// Input returns the offending input (address, username, file path).
func (guardError GuardError) Input() string {
	return guardError.input
}

// AsGuardError extracts a GuardError from err.
func AsGuardError(err error) (GuardError, bool) {
	var guardError GuardError
	if errors.As(err, &guardError) {
		return guardError, true
	}
	return GuardError{}, false
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
