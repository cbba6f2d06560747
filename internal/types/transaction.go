package types

// TransactionState is the payment queue's view of one transaction.
type TransactionState string

const (
	TxPurchasing TransactionState = "purchasing"
	TxPurchased  TransactionState = "purchased"
	TxFailed     TransactionState = "failed"
	TxRestored   TransactionState = "restored"
	TxDeferred   TransactionState = "deferred"
)

// IsTerminal reports whether the state releases the transaction from the
// queue once it has been finished. Deferred and Purchasing transactions stay
// open.
func (s TransactionState) IsTerminal() bool {
	return s == TxPurchased || s == TxFailed || s == TxRestored
}

// FailureCause is the queue's failure code on a failed transaction.
type FailureCause int

const (
	CauseUnknown FailureCause = iota
	CauseClientInvalid
	CausePaymentCancelled
	CausePaymentInvalid
	CausePaymentNotAllowed
)

// Payment is a request for the queue to charge one product.
type Payment struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

// TransactionError carries the failure cause reported by the queue for a
// transaction delivered in the failed state.
type TransactionError struct {
	Cause       FailureCause `json:"cause"`
	Description string       `json:"description,omitempty"`
}

// Transaction is a snapshot of one payment's lifecycle record. Transactions
// are created and owned by the payment queue; the coordinator only observes
// them and acknowledges terminal ones.
type Transaction struct {
	ID        string            `json:"id"`
	ProductID string            `json:"product_id"`
	State     TransactionState  `json:"state"`
	Error     *TransactionError `json:"error,omitempty"`
}

// PendingStorePayment is a store-initiated payment the platform asked about
// before the application was ready to proceed. At most one is cached at a
// time; a newer prompt overwrites it.
type PendingStorePayment struct {
	Payment Payment           `json:"payment"`
	Product ProductDescriptor `json:"product"`
}
