// Package businessflow contains the core business logic and use cases for demand matching workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound = errors.New("customer not found")
	ErrCustomerInactive = errors.New("customer is inactive")
	ErrStaffNotFound    = errors.New("staff member not found")

	// Demand-related errors
	ErrDemandNotFound        = errors.New("demand not found")
	ErrDemandCategoryInvalid = errors.New("demand category is invalid")
	ErrDemandStatusInvalid   = errors.New("demand status is invalid")
	ErrInvalidPriceBounds    = errors.New("price minimum exceeds price maximum")
	ErrInvalidAreaBounds     = errors.New("area minimum exceeds area maximum")
	ErrDemandUpdateRequired  = errors.New("at least one field must be provided for update")
	ErrDemandUUIDRequired    = errors.New("demand UUID is required")

	// Listing-related errors
	ErrListingNotFound    = errors.New("listing not found")
	ErrListingTypeInvalid = errors.New("listing type is invalid")

	// Match-related errors
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchInactive       = errors.New("match is inactive")
	ErrInvalidMatchStatus  = errors.New("invalid match status")
	ErrMatchNoteRequired   = errors.New("match note is required")
	ErrFeedbackRequired    = errors.New("customer feedback is required")
	ErrFeedbackStatusFinal = errors.New("feedback status must be accepted or rejected")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsDemandNotFound(err error) bool {
	return errors.Is(err, ErrDemandNotFound)
}

func IsDemandUpdateRequired(err error) bool {
	return errors.Is(err, ErrDemandUpdateRequired)
}

func IsListingNotFound(err error) bool {
	return errors.Is(err, ErrListingNotFound)
}

func IsMatchNotFound(err error) bool {
	return errors.Is(err, ErrMatchNotFound)
}

func IsInvalidMatchStatus(err error) bool {
	return errors.Is(err, ErrInvalidMatchStatus)
}

func IsMatchInactive(err error) bool {
	return errors.Is(err, ErrMatchInactive)
}

func IsFeedbackStatusNotFinal(err error) bool {
	return errors.Is(err, ErrFeedbackStatusFinal)
}

func IsInvalidBounds(err error) bool {
	return errors.Is(err, ErrInvalidPriceBounds) || errors.Is(err, ErrInvalidAreaBounds)
}
