package coordinator

import (
	"context"
	"log"
	"sync"

	"purchasekit/internal/catalog"
	"purchasekit/internal/queue"
	"purchasekit/internal/receipt"
	"purchasekit/internal/types"
)

// ProgressKind tags a non-terminal purchase notice.
type ProgressKind string

const (
	// PurchaseInProgress means the queue started processing a payment.
	PurchaseInProgress ProgressKind = "purchase_in_progress"
	// PurchaseDeferred means the transaction awaits external approval and
	// stays open until a later event batch resolves it.
	PurchaseDeferred ProgressKind = "purchase_deferred"
)

// ProgressNotice is informational; it never resolves an outcome.
type ProgressNotice struct {
	Kind      ProgressKind `json:"kind"`
	ProductID string       `json:"product_id"`
}

// Listeners enumerates every callback slot the application can fill at
// construction time. Nil slots are skipped; all callbacks fire from the
// coordinator's single delivery context or from the resolving goroutine, one
// at a time.
type Listeners struct {
	// OnProductsResolved fires after a catalog response replaced the
	// product cache.
	OnProductsResolved func(result types.ResolveResult)

	// OnCatalogFailure fires when catalog resolution failed in transport.
	OnCatalogFailure func(err *types.PurchaseError)

	// OnProgress fires for purchasing and deferred notices.
	OnProgress func(notice ProgressNotice)

	// OnOutcome fires for every terminal purchase result, including
	// store- and platform-initiated transactions no Outcome handle is
	// waiting for.
	OnOutcome func(result PurchaseResult)

	// OnRestored fires once per restored transaction. Restorations report
	// here, never on the purchase outcome path.
	OnRestored func(result PurchaseResult)

	// OnRestoreFinished closes a restoration flow; err is nil on success.
	OnRestoreFinished func(err *types.PurchaseError)

	// OnStorePayment is the decision hook invoked when the platform asks
	// about a store-initiated payment. Informational; the reply sent to
	// the platform is the configured AcceptStorePayments flag.
	OnStorePayment func(payment types.Payment, product types.ProductDescriptor)
}

// SnapshotStore persists the pending store payment across restarts.
// Satisfied by statestore.Store.
type SnapshotStore interface {
	SavePendingStorePayment(pending *types.PendingStorePayment) error
	LoadPendingStorePayment() (*types.PendingStorePayment, error)
	ClearPendingStorePayment() error
}

// Options configures a Coordinator.
type Options struct {
	Queue    queue.PaymentQueue
	Catalog  catalog.Client
	Receipts receipt.Provider

	// StateStore persists the pending store payment across restarts.
	// Optional; nil disables persistence.
	StateStore SnapshotStore

	// AcceptStorePayments is the answer given to the platform when it asks
	// whether a store-initiated payment may proceed immediately.
	AcceptStorePayments bool

	Listeners Listeners
}

// Coordinator mediates between the application and the platform payment
// queue: it owns purchase intent, consumes the queue's serial event stream,
// drives the transaction state machine and routes one coherent result per
// purchase attempt.
type Coordinator struct {
	queue    queue.PaymentQueue
	catalog  catalog.Client
	receipts receipt.Provider
	store    SnapshotStore

	listeners           Listeners
	acceptStorePayments bool

	mu sync.Mutex
	// products is replaced wholesale on each catalog response.
	products map[string]types.ProductDescriptor
	outcomes *outcomeRegistry
	// pendingStorePayment holds at most one store-initiated payment; a
	// newer prompt overwrites it silently.
	pendingStorePayment *types.PendingStorePayment
}

// New builds a Coordinator. When a state store is configured, a pending
// store payment snapshot from a previous run is loaded back into the cache.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		queue:               opts.Queue,
		catalog:             opts.Catalog,
		receipts:            opts.Receipts,
		store:               opts.StateStore,
		listeners:           opts.Listeners,
		acceptStorePayments: opts.AcceptStorePayments,
		products:            make(map[string]types.ProductDescriptor),
		outcomes:            newOutcomeRegistry(),
	}

	if c.store != nil {
		pending, err := c.store.LoadPendingStorePayment()
		if err != nil {
			log.Printf("Failed to load pending store payment snapshot: %v", err)
		} else if pending != nil {
			c.pendingStorePayment = pending
			log.Printf("Recovered pending store payment for %s", pending.Payment.ProductID)
		}
	}

	return c
}

// Run consumes the queue's event stream until the context is cancelled or
// the stream closes. It is the coordinator's single delivery context; call it
// from exactly one goroutine.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.queue.Events():
			if !ok {
				return
			}
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Coordinator) handleEvent(ctx context.Context, ev types.Event) {
	switch ev.Type {
	case types.EventTransactionsUpdated:
		// Each transaction in a batch is classified independently, in
		// the order delivered.
		for _, tx := range ev.Transactions {
			c.classifyTransaction(ctx, tx)
		}
	case types.EventRestoreCompleted:
		log.Printf("Restoration stream completed")
		c.notifyRestoreFinished(nil)
	case types.EventRestoreFailed:
		log.Printf("Restoration stream failed: %v", ev.Cause)
		c.notifyRestoreFinished(types.RestorationFailedError(ev.Cause))
	case types.EventStorePaymentRequested:
		c.handleStorePaymentPrompt(ev)
	default:
		log.Printf("Ignoring queue event with unknown type %q", ev.Type)
	}
}

// ResolveProducts requests catalog resolution for the given ids. It fails
// fast when the platform reports payments unavailable, without contacting
// the catalog; otherwise resolution continues asynchronously and the result
// arrives on the products listener.
func (c *Coordinator) ResolveProducts(ctx context.Context, ids []string) error {
	if !c.queue.CanSubmitPayments() {
		return types.PaymentsUnavailableError()
	}

	// Resolution outlives the caller. An HTTP request context is cancelled
	// the moment its handler returns, which must not abort the catalog
	// call still in flight.
	resolveCtx := context.WithoutCancel(ctx)

	go func() {
		result, err := c.catalog.Resolve(resolveCtx, ids)
		if err != nil {
			log.Printf("Catalog resolution failed: %v", err)
			c.notifyCatalogFailure(types.CatalogRequestFailedError(err))
			return
		}

		c.mu.Lock()
		c.products = make(map[string]types.ProductDescriptor, len(result.Resolved))
		for _, desc := range result.Resolved {
			c.products[desc.ID] = desc
		}
		c.mu.Unlock()

		log.Printf("Catalog resolved %d products, %d unresolved", len(result.Resolved), len(result.Unresolved))
		if l := c.listeners.OnProductsResolved; l != nil {
			l(*result)
		}
	}()

	return nil
}

// Purchase records the purchase intent for the product and submits a payment
// when the product is present in the cached catalog results. The returned
// outcome resolves with the terminal result; when the product was never
// resolved, it resolves immediately with ProductNotFound and the queue is
// not touched.
func (c *Coordinator) Purchase(productID types.ProductIdentifier) *Outcome {
	c.mu.Lock()
	desc, ok := c.products[productID.ID]
	if !ok {
		c.mu.Unlock()
		log.Printf("Purchase requested for unresolved product %s", productID.ID)
		return resolvedOutcome(productID.ID, PurchaseResult{
			ProductID: productID.ID,
			Err:       types.ProductNotFoundError(productID.ID),
		})
	}

	outcome := newOutcome(desc.ID)
	c.outcomes.add(outcome)
	c.mu.Unlock()

	if err := c.queue.Submit(types.Payment{ProductID: desc.ID, Quantity: 1}); err != nil {
		log.Printf("Payment submit failed for %s: %v", desc.ID, err)
		c.mu.Lock()
		c.outcomes.remove(outcome)
		c.mu.Unlock()
		outcome.resolve(PurchaseResult{
			ProductID: desc.ID,
			Err:       &types.PurchaseError{Kind: types.ErrCustom, ProductID: desc.ID, Cause: err},
		})
		return outcome
	}

	log.Printf("Payment submitted for %s", desc.ID)
	return outcome
}

// RestorePurchases asks the queue to re-deliver completed transactions.
// Completion is reported later through the restore listeners, not through
// the return value.
func (c *Coordinator) RestorePurchases() error {
	if !c.queue.CanSubmitPayments() {
		return types.PaymentsUnavailableError()
	}
	if err := c.queue.Restore(); err != nil {
		return err
	}
	log.Printf("Restoration requested")
	return nil
}

// PendingPurchases reports how many purchase attempts await a terminal
// event.
func (c *Coordinator) PendingPurchases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes.pendingCount()
}

// Product returns the cached descriptor for an id, if the most recent
// catalog resolution contained it.
func (c *Coordinator) Product(id string) (types.ProductDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	desc, ok := c.products[id]
	return desc, ok
}

// Products returns a copy of the cached catalog.
func (c *Coordinator) Products() []types.ProductDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ProductDescriptor, 0, len(c.products))
	for _, desc := range c.products {
		out = append(out, desc)
	}
	return out
}

// Close drops the product cache and releases the queue.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.products = make(map[string]types.ProductDescriptor)
	c.mu.Unlock()
	c.queue.Close()
}

func (c *Coordinator) notifyProgress(kind ProgressKind, productID string) {
	if l := c.listeners.OnProgress; l != nil {
		l(ProgressNotice{Kind: kind, ProductID: productID})
	}
}

func (c *Coordinator) notifyOutcome(result PurchaseResult) {
	if l := c.listeners.OnOutcome; l != nil {
		l(result)
	}
}

func (c *Coordinator) notifyRestored(result PurchaseResult) {
	if l := c.listeners.OnRestored; l != nil {
		l(result)
	}
}

func (c *Coordinator) notifyRestoreFinished(err *types.PurchaseError) {
	if l := c.listeners.OnRestoreFinished; l != nil {
		l(err)
	}
}

func (c *Coordinator) notifyCatalogFailure(err *types.PurchaseError) {
	if l := c.listeners.OnCatalogFailure; l != nil {
		l(err)
	}
}
