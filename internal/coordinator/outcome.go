package coordinator

import (
	"purchasekit/internal/types"
)

// PurchaseResult is the terminal result of one purchase attempt, or of one
// restored transaction. Err is nil on full success. A non-nil Err of kind
// ReceiptUnavailable still means the transaction itself went through and was
// finished; only the proof-of-purchase is missing.
type PurchaseResult struct {
	ProductID   string               `json:"product_id"`
	Receipt     string               `json:"receipt,omitempty"`
	Transaction *types.Transaction   `json:"transaction,omitempty"`
	Restored    bool                 `json:"restored,omitempty"`
	Err         *types.PurchaseError `json:"error,omitempty"`
}

// Outcome is the handle returned by Purchase and HandleCachedPayments. It
// resolves exactly once.
type Outcome struct {
	productID string
	ch        chan PurchaseResult
}

func newOutcome(productID string) *Outcome {
	return &Outcome{
		productID: productID,
		ch:        make(chan PurchaseResult, 1),
	}
}

// ProductID is the product this outcome was registered for.
func (o *Outcome) ProductID() string {
	return o.productID
}

// Done receives the terminal result. The channel delivers one value.
func (o *Outcome) Done() <-chan PurchaseResult {
	return o.ch
}

// resolve delivers the result. Callers are serialized by the coordinator's
// lock, and an outcome is removed from the registry before it is resolved,
// so resolve runs at most once per outcome.
func (o *Outcome) resolve(result PurchaseResult) {
	o.ch <- result
}

func resolvedOutcome(productID string, result PurchaseResult) *Outcome {
	o := newOutcome(productID)
	o.resolve(result)
	return o
}

// outcomeRegistry correlates terminal transaction events with purchase
// attempts. Keyed by product id, FIFO per product: the queue reports
// transactions for one product in submission order, so the oldest pending
// attempt owns the next terminal event for that product.
type outcomeRegistry struct {
	pending map[string][]*Outcome
}

func newOutcomeRegistry() *outcomeRegistry {
	return &outcomeRegistry{pending: make(map[string][]*Outcome)}
}

func (r *outcomeRegistry) add(o *Outcome) {
	r.pending[o.productID] = append(r.pending[o.productID], o)
}

// take removes and returns the oldest pending outcome for the product, or
// nil when no purchase attempt is waiting (store- or platform-initiated
// transactions, redeliveries).
func (r *outcomeRegistry) take(productID string) *Outcome {
	queue := r.pending[productID]
	if len(queue) == 0 {
		return nil
	}
	o := queue[0]
	if len(queue) == 1 {
		delete(r.pending, productID)
	} else {
		r.pending[productID] = queue[1:]
	}
	return o
}

// remove drops a specific outcome, used when a submit fails after
// registration.
func (r *outcomeRegistry) remove(o *Outcome) {
	queue := r.pending[o.productID]
	for i, candidate := range queue {
		if candidate == o {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(r.pending, o.productID)
	} else {
		r.pending[o.productID] = queue
	}
}

func (r *outcomeRegistry) pendingCount() int {
	total := 0
	for _, queue := range r.pending {
		total += len(queue)
	}
	return total
}
