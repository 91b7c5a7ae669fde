package sales

import (
	"fmt"
)

// Kind classifies why a sale could not be created.
type Kind string

const (
	KindEmptyOrder            Kind = "empty_order"
	KindInvalidPayment        Kind = "invalid_payment"
	KindLineProductNotFound   Kind = "line_product_not_found"
	KindInvalidQuantity       Kind = "invalid_quantity"
	KindPaymentMethodNotFound Kind = "payment_method_not_found"
	KindPaymentMethodInactive Kind = "payment_method_inactive"
	KindNoteTooLong           Kind = "note_too_long"
	KindConflict              Kind = "conflict"
	KindStorage               Kind = "storage"
)

// Error is the single error type returned by Engine.CreateSale. LineIndex
// and ProductID are set for line-level kinds only; LineIndex is -1 otherwise.
type Error struct {
	Kind      Kind
	LineIndex int
	ProductID string
	Err       error
}

var (
	ErrEmptyOrder            = &Error{Kind: KindEmptyOrder, LineIndex: -1}
	ErrInvalidPayment        = &Error{Kind: KindInvalidPayment, LineIndex: -1}
	ErrLineProductNotFound   = &Error{Kind: KindLineProductNotFound, LineIndex: -1}
	ErrInvalidQuantity       = &Error{Kind: KindInvalidQuantity, LineIndex: -1}
	ErrPaymentMethodNotFound = &Error{Kind: KindPaymentMethodNotFound, LineIndex: -1}
	ErrPaymentMethodInactive = &Error{Kind: KindPaymentMethodInactive, LineIndex: -1}
	ErrNoteTooLong           = &Error{Kind: KindNoteTooLong, LineIndex: -1}
	ErrConflict              = &Error{Kind: KindConflict, LineIndex: -1}
	ErrStorage               = &Error{Kind: KindStorage, LineIndex: -1}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, LineIndex: -1, Err: err}
}

func newLineError(kind Kind, index int, productID string, err error) *Error {
	return &Error{Kind: kind, LineIndex: index, ProductID: productID, Err: err}
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindEmptyOrder:
		msg = "sale must contain at least one item"
	case KindInvalidPayment:
		msg = "paid amount must not be negative"
	case KindLineProductNotFound:
		msg = fmt.Sprintf("item %d: product %q not found", e.LineIndex, e.ProductID)
	case KindInvalidQuantity:
		msg = fmt.Sprintf("item %d: quantity must be a positive whole number", e.LineIndex)
	case KindPaymentMethodNotFound:
		msg = "payment method not found"
	case KindPaymentMethodInactive:
		msg = "payment method is inactive"
	case KindNoteTooLong:
		msg = "notes must be at most 255 characters"
	case KindConflict:
		msg = "sale conflicts with an existing record"
	case KindStorage:
		msg = "storage unavailable"
	default:
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrEmptyOrder)
// works regardless of line details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
