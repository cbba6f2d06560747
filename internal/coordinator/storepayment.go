package coordinator

import (
	"log"

	"purchasekit/internal/types"
)

// handleStorePaymentPrompt caches a store-initiated payment, invokes the
// application's decision hook and answers the platform with the configured
// flag. The cache holds a single slot; a newer prompt overwrites the old one
// silently, matching the platform's single-pending-payment contract.
func (c *Coordinator) handleStorePaymentPrompt(ev types.Event) {
	pending := &types.PendingStorePayment{Payment: ev.Payment, Product: ev.Product}

	c.mu.Lock()
	if c.pendingStorePayment != nil {
		log.Printf("Overwriting cached store payment %s with %s",
			c.pendingStorePayment.Payment.ProductID, ev.Payment.ProductID)
	}
	c.pendingStorePayment = pending
	accept := c.acceptStorePayments
	c.persistPendingStorePayment(pending)
	c.mu.Unlock()

	if l := c.listeners.OnStorePayment; l != nil {
		l(ev.Payment, ev.Product)
	}

	log.Printf("Store payment prompt for %s, answering add=%v", ev.Payment.ProductID, accept)
	if ev.Reply != nil {
		ev.Reply <- accept
	}
}

// HandleCachedPayments resubmits the cached store payment to the queue and
// clears the cache. With nothing cached it is a no-op and returns nil.
func (c *Coordinator) HandleCachedPayments() *Outcome {
	c.mu.Lock()
	pending := c.pendingStorePayment
	if pending == nil {
		c.mu.Unlock()
		return nil
	}
	c.pendingStorePayment = nil

	outcome := newOutcome(pending.Payment.ProductID)
	c.outcomes.add(outcome)
	c.persistPendingStorePayment(nil)
	c.mu.Unlock()

	if err := c.queue.Submit(pending.Payment); err != nil {
		log.Printf("Cached store payment submit failed for %s: %v", pending.Payment.ProductID, err)
		c.mu.Lock()
		c.outcomes.remove(outcome)
		c.mu.Unlock()
		outcome.resolve(PurchaseResult{
			ProductID: pending.Payment.ProductID,
			Err: &types.PurchaseError{
				Kind:      types.ErrCustom,
				ProductID: pending.Payment.ProductID,
				Cause:     err,
			},
		})
		return outcome
	}

	log.Printf("Cached store payment for %s resubmitted", pending.Payment.ProductID)
	return outcome
}

// ClearCachedPayments discards the cached store payment without resubmitting
// it.
func (c *Coordinator) ClearCachedPayments() {
	c.mu.Lock()
	cleared := c.pendingStorePayment != nil
	c.pendingStorePayment = nil
	if cleared {
		c.persistPendingStorePayment(nil)
	}
	c.mu.Unlock()

	if cleared {
		log.Printf("Cached store payment cleared")
	}
}

// CachedStorePayment returns a copy of the cached payment, if any.
func (c *Coordinator) CachedStorePayment() *types.PendingStorePayment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingStorePayment == nil {
		return nil
	}
	copied := *c.pendingStorePayment
	return &copied
}

// persistPendingStorePayment mirrors the cache slot to the state store. A
// nil pending clears the snapshot. Callers hold c.mu, so snapshots reach the
// store in the same order as the in-memory mutations.
func (c *Coordinator) persistPendingStorePayment(pending *types.PendingStorePayment) {
	if c.store == nil {
		return
	}
	var err error
	if pending == nil {
		err = c.store.ClearPendingStorePayment()
	} else {
		err = c.store.SavePendingStorePayment(pending)
	}
	if err != nil {
		log.Printf("Failed to persist pending store payment snapshot: %v", err)
	}
}
