package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the coordinator can report. Kinds are
// transport-agnostic; the original cause, when there is one, rides along in
// PurchaseError.Cause.
type ErrorKind string

const (
	// ErrPaymentsUnavailable means the platform cannot process payments at
	// all, e.g. parental restrictions.
	ErrPaymentsUnavailable ErrorKind = "payments_unavailable"
	// ErrProductNotFound means a purchase was requested for an id absent
	// from the resolved catalog cache.
	ErrProductNotFound ErrorKind = "product_not_found"
	// ErrCatalogRequestFailed is a catalog lookup transport error.
	ErrCatalogRequestFailed ErrorKind = "catalog_request_failed"

	// Kinds mapped from the queue's failure causes on a failed transaction.
	ErrUnknown                ErrorKind = "unknown_error"
	ErrClientInvalid          ErrorKind = "client_invalid"
	ErrPaymentCancelledByUser ErrorKind = "payment_cancelled_by_user"
	ErrPaymentInvalid         ErrorKind = "payment_invalid"
	ErrPaymentNotAllowed      ErrorKind = "payment_not_allowed"

	// ErrReceiptUnavailable means the receipt could not be fetched after a
	// successful or restored transaction. The transaction has already been
	// finished, so this is a degraded success, not a reason to re-purchase.
	ErrReceiptUnavailable ErrorKind = "receipt_unavailable"
	// ErrRestorationFailed means the restoration stream terminated with an
	// error.
	ErrRestorationFailed ErrorKind = "restoration_failed"
	// ErrCustom wraps any unrecognized failure cause.
	ErrCustom ErrorKind = "custom"
)

// PurchaseError is the tagged error type for everything the coordinator
// reports: a kind plus whatever structured payload the kind carries.
type PurchaseError struct {
	Kind        ErrorKind `json:"kind"`
	ProductID   string    `json:"product_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Cause       error     `json:"-"`
}

func (e *PurchaseError) Error() string {
	switch {
	case e.ProductID != "" && e.Cause != nil:
		return fmt.Sprintf("%s: product %s: %v", e.Kind, e.ProductID, e.Cause)
	case e.ProductID != "":
		return fmt.Sprintf("%s: product %s", e.Kind, e.ProductID)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	case e.Description != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Description)
	default:
		return string(e.Kind)
	}
}

func (e *PurchaseError) Unwrap() error {
	return e.Cause
}

// NewPurchaseError builds a PurchaseError of the given kind.
func NewPurchaseError(kind ErrorKind, description string) *PurchaseError {
	return &PurchaseError{Kind: kind, Description: description}
}

// PaymentsUnavailableError reports that the platform refuses payments.
func PaymentsUnavailableError() *PurchaseError {
	return &PurchaseError{Kind: ErrPaymentsUnavailable, Description: "platform cannot process payments"}
}

// ProductNotFoundError reports a purchase for an unresolved product id.
func ProductNotFoundError(productID string) *PurchaseError {
	return &PurchaseError{Kind: ErrProductNotFound, ProductID: productID}
}

// CatalogRequestFailedError wraps a catalog transport failure.
func CatalogRequestFailedError(cause error) *PurchaseError {
	return &PurchaseError{Kind: ErrCatalogRequestFailed, Cause: cause}
}

// ReceiptUnavailableError wraps a receipt fetch failure after a finished
// transaction.
func ReceiptUnavailableError(productID string, cause error) *PurchaseError {
	return &PurchaseError{Kind: ErrReceiptUnavailable, ProductID: productID, Cause: cause}
}

// RestorationFailedError wraps a restoration stream failure.
func RestorationFailedError(cause error) *PurchaseError {
	return &PurchaseError{Kind: ErrRestorationFailed, Cause: cause}
}

// MapTransactionError converts a failed transaction's queue error into the
// coordinator taxonomy. A nil queue error and any unrecognized cause map to
// Custom with whatever description is available.
func MapTransactionError(productID string, txErr *TransactionError) *PurchaseError {
	if txErr == nil {
		return &PurchaseError{Kind: ErrCustom, ProductID: productID, Description: "transaction failed without a cause"}
	}
	kind := ErrCustom
	switch txErr.Cause {
	case CauseUnknown:
		kind = ErrUnknown
	case CauseClientInvalid:
		kind = ErrClientInvalid
	case CausePaymentCancelled:
		kind = ErrPaymentCancelledByUser
	case CausePaymentInvalid:
		kind = ErrPaymentInvalid
	case CausePaymentNotAllowed:
		kind = ErrPaymentNotAllowed
	}
	return &PurchaseError{Kind: kind, ProductID: productID, Description: txErr.Description}
}

// KindOf extracts the error kind from any error in the chain, or ErrCustom
// when the error is not a PurchaseError.
func KindOf(err error) ErrorKind {
	var pe *PurchaseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrCustom
}
