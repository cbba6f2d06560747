package queue

import (
	"purchasekit/internal/types"
)

// PaymentQueue is the external platform service that accepts submitted
// payments, asynchronously authorizes them and streams transaction updates
// back. Submit, Restore and Finish are fire-and-forget; every result arrives
// on the event stream.
//
// Finishing a transaction the queue already released is a no-op on the queue
// side, so redelivery after a process restart is safe to acknowledge again.
type PaymentQueue interface {
	// CanSubmitPayments reports whether the platform will accept payment
	// requests at all.
	CanSubmitPayments() bool

	// Submit hands a payment request to the queue.
	Submit(payment types.Payment) error

	// Restore asks the queue to re-deliver completed transactions.
	Restore() error

	// Finish acknowledges a terminal transaction so the queue can drop it
	// from its pending list.
	Finish(tx types.Transaction) error

	// Events is the serial delivery stream. The channel is closed when the
	// queue shuts down.
	Events() <-chan types.Event

	// Close releases the underlying transport.
	Close()
}

// eventMessage is the wire envelope for the queue's delivery stream. Keeping
// every event type on one subject keeps cross-event ordering.
type eventMessage struct {
	Type         string                   `json:"type"`
	Transactions []types.Transaction      `json:"transactions,omitempty"`
	Cause        string                   `json:"cause,omitempty"`
	Payment      *types.Payment           `json:"payment,omitempty"`
	Product      *types.ProductDescriptor `json:"product,omitempty"`
}

type canSubmitResponse struct {
	Allowed bool `json:"allowed"`
}

type storePaymentReply struct {
	Add bool `json:"add"`
}
