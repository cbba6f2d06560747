package types

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
)

func TestMapTransactionError(t *testing.T) {
	testCases := []struct {
		txErr    *TransactionError
		expected ErrorKind
	}{
		{&TransactionError{Cause: CauseUnknown}, ErrUnknown},
		{&TransactionError{Cause: CauseClientInvalid}, ErrClientInvalid},
		{&TransactionError{Cause: CausePaymentCancelled}, ErrPaymentCancelledByUser},
		{&TransactionError{Cause: CausePaymentInvalid}, ErrPaymentInvalid},
		{&TransactionError{Cause: CausePaymentNotAllowed}, ErrPaymentNotAllowed},
		{&TransactionError{Cause: FailureCause(99), Description: "vendor specific"}, ErrCustom},
		{nil, ErrCustom},
	}
	for _, test := range testCases {
		mapped := MapTransactionError("gold_100", test.txErr)
		assert.Equal(t, test.expected, mapped.Kind)
		assert.Equal(t, "gold_100", mapped.ProductID)
	}
}

func TestPurchaseErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := CatalogRequestFailedError(cause)

	assert.Assert(t, errors.Is(err, cause))
	assert.Equal(t, ErrCatalogRequestFailed, KindOf(err))
	assert.Equal(t, ErrCatalogRequestFailed, KindOf(fmt.Errorf("resolving: %w", err)))
	assert.Equal(t, ErrCustom, KindOf(errors.New("plain")))
}

func TestPurchaseErrorMessages(t *testing.T) {
	testCases := []struct {
		err      *PurchaseError
		expected string
	}{
		{ProductNotFoundError("gold_100"), "product_not_found: product gold_100"},
		{PaymentsUnavailableError(), "payments_unavailable: platform cannot process payments"},
		{RestorationFailedError(errors.New("session expired")), "restoration_failed: session expired"},
		{NewPurchaseError(ErrCustom, ""), "custom"},
	}
	for _, test := range testCases {
		assert.Equal(t, test.expected, test.err.Error())
	}
}
