package types

// EventType tags one entry on the queue's delivery stream.
type EventType string

const (
	// EventTransactionsUpdated carries a batch of transaction snapshots.
	EventTransactionsUpdated EventType = "transactions_updated"
	// EventRestoreCompleted closes a restoration flow successfully.
	EventRestoreCompleted EventType = "restore_completed"
	// EventRestoreFailed closes a restoration flow with an error.
	EventRestoreFailed EventType = "restore_failed"
	// EventStorePaymentRequested asks whether a store-initiated payment
	// should be added to the queue right away.
	EventStorePaymentRequested EventType = "store_payment_requested"
)

// Event is one entry on the payment queue's delivery stream. All events for
// one queue arrive serially over a single ordered channel; the coordinator is
// the sole consumer.
//
// Only the fields matching Type are set. Store-payment prompts carry a Reply
// channel; the consumer must send exactly one bool on it.
type Event struct {
	Type EventType

	// EventTransactionsUpdated
	Transactions []Transaction

	// EventRestoreFailed
	Cause error

	// EventStorePaymentRequested
	Payment Payment
	Product ProductDescriptor
	Reply   chan<- bool
}
