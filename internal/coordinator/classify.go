package coordinator

import (
	"context"
	"log"
	"time"

	"purchasekit/internal/types"
)

const receiptFetchTimeout = 5 * time.Second

// classifyTransaction routes one transaction snapshot by state:
//
//	purchasing  -> progress notice, no finish
//	deferred    -> progress notice, no finish; terminal state arrives later
//	purchased   -> finish, then receipt fetch, then purchase outcome
//	restored    -> finish, then receipt fetch, then restoration listener
//	failed      -> finish, map the cause, then purchase outcome
//
// Terminal transactions are finished unconditionally before any result is
// delivered; a receipt failure after finishing is a degraded success, never
// a reason to leave the transaction pending.
func (c *Coordinator) classifyTransaction(ctx context.Context, tx types.Transaction) {
	switch tx.State {
	case types.TxPurchasing:
		log.Printf("Transaction %s purchasing (%s)", tx.ID, tx.ProductID)
		c.notifyProgress(PurchaseInProgress, tx.ProductID)

	case types.TxDeferred:
		log.Printf("Transaction %s deferred (%s), awaiting external approval", tx.ID, tx.ProductID)
		c.notifyProgress(PurchaseDeferred, tx.ProductID)

	case types.TxPurchased:
		c.finishTransaction(tx)
		result := c.buildReceiptResult(ctx, tx, false)
		c.deliverOutcome(result)

	case types.TxRestored:
		c.finishTransaction(tx)
		result := c.buildReceiptResult(ctx, tx, true)
		c.notifyRestored(result)

	case types.TxFailed:
		c.finishTransaction(tx)
		c.deliverOutcome(PurchaseResult{
			ProductID:   tx.ProductID,
			Transaction: &tx,
			Err:         types.MapTransactionError(tx.ProductID, tx.Error),
		})

	default:
		log.Printf("Ignoring transaction %s with unknown state %q", tx.ID, tx.State)
	}
}

// finishTransaction acknowledges a terminal transaction. Finishing an
// already-finished transaction is a no-op at the queue boundary, so
// redelivered transactions are safe to acknowledge again.
func (c *Coordinator) finishTransaction(tx types.Transaction) {
	if err := c.queue.Finish(tx); err != nil {
		log.Printf("Failed to finish transaction %s: %v", tx.ID, err)
	}
}

// buildReceiptResult fetches a fresh receipt for a finished transaction.
// The transaction has already been finished; a fetch failure downgrades the
// result to ReceiptUnavailable instead of failing the purchase.
func (c *Coordinator) buildReceiptResult(ctx context.Context, tx types.Transaction, restored bool) PurchaseResult {
	fetchCtx, cancel := context.WithTimeout(ctx, receiptFetchTimeout)
	defer cancel()

	receiptString, err := c.receipts.Fetch(fetchCtx)
	if err != nil {
		log.Printf("Receipt fetch failed for transaction %s: %v", tx.ID, err)
		return PurchaseResult{
			ProductID:   tx.ProductID,
			Transaction: &tx,
			Restored:    restored,
			Err:         types.ReceiptUnavailableError(tx.ProductID, err),
		}
	}

	log.Printf("Transaction %s completed for %s", tx.ID, tx.ProductID)
	return PurchaseResult{
		ProductID:   tx.ProductID,
		Transaction: &tx,
		Restored:    restored,
		Receipt:     receiptString,
	}
}

// deliverOutcome resolves the oldest pending purchase attempt for the
// product, when one exists, and always notifies the outcome listener. A
// terminal event with no waiting attempt is normal: store- and
// platform-initiated purchases, and redeliveries after a restart, arrive
// without a registered handle.
func (c *Coordinator) deliverOutcome(result PurchaseResult) {
	c.mu.Lock()
	outcome := c.outcomes.take(result.ProductID)
	c.mu.Unlock()

	if outcome != nil {
		outcome.resolve(result)
	} else {
		log.Printf("Terminal event for %s had no pending purchase attempt", result.ProductID)
	}
	c.notifyOutcome(result)
}
