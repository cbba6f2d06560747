package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchasekit/internal/types"
)

func storePaymentEvent(productID string, reply chan bool) types.Event {
	var replyCh chan<- bool
	if reply != nil {
		replyCh = reply
	}
	return types.Event{
		Type:    types.EventStorePaymentRequested,
		Payment: types.Payment{ProductID: productID, Quantity: 1},
		Product: types.ProductDescriptor{ID: productID, Title: productID},
		Reply:   replyCh,
	}
}

func TestStorePaymentPromptCachesAndReplies(t *testing.T) {
	q := newFakeQueue()
	var hooked []types.Payment
	c := New(Options{
		Queue:    q,
		Catalog:  &fakeCatalog{},
		Receipts: &fakeReceipts{receipt: "R3c31ptStr1ng=="},
		Listeners: Listeners{
			OnStorePayment: func(p types.Payment, _ types.ProductDescriptor) {
				hooked = append(hooked, p)
			},
		},
	})

	reply := make(chan bool, 1)
	c.handleStorePaymentPrompt(storePaymentEvent("badge_pack", reply))

	assert.False(t, <-reply, "configured answer defaults to no")
	require.Len(t, hooked, 1)
	assert.Equal(t, "badge_pack", hooked[0].ProductID)

	cached := c.CachedStorePayment()
	require.NotNil(t, cached)
	assert.Equal(t, "badge_pack", cached.Payment.ProductID)
	assert.Empty(t, q.submittedPayments(), "a cached payment is not submitted")
}

func TestStorePaymentPromptAcceptConfigured(t *testing.T) {
	q := newFakeQueue()
	c := New(Options{
		Queue:               q,
		Catalog:             &fakeCatalog{},
		Receipts:            &fakeReceipts{},
		AcceptStorePayments: true,
	})

	reply := make(chan bool, 1)
	c.handleStorePaymentPrompt(storePaymentEvent("badge_pack", reply))
	assert.True(t, <-reply)
}

func TestSecondPromptOverwritesFirst(t *testing.T) {
	q := newFakeQueue()
	c := newTestCoordinator(q, Listeners{})

	c.handleStorePaymentPrompt(storePaymentEvent("badge_pack", nil))
	c.handleStorePaymentPrompt(storePaymentEvent("gift_pack", nil))

	cached := c.CachedStorePayment()
	require.NotNil(t, cached)
	assert.Equal(t, "gift_pack", cached.Payment.ProductID,
		"only the most recent store payment is retrievable")
}

func TestHandleCachedPaymentsSubmitsAndClears(t *testing.T) {
	q := newFakeQueue()
	c := newTestCoordinator(q, Listeners{})

	c.handleStorePaymentPrompt(storePaymentEvent("badge_pack", nil))

	outcome := c.HandleCachedPayments()
	require.NotNil(t, outcome)
	require.Len(t, q.submittedPayments(), 1)
	assert.Equal(t, "badge_pack", q.submittedPayments()[0].ProductID)
	assert.Nil(t, c.CachedStorePayment(), "cache is cleared after resubmission")

	t.Run("SecondCallIsNoop", func(t *testing.T) {
		assert.Nil(t, c.HandleCachedPayments())
		assert.Len(t, q.submittedPayments(), 1, "no second submission")
	})
}

func TestClearCachedPaymentsDiscards(t *testing.T) {
	q := newFakeQueue()
	c := newTestCoordinator(q, Listeners{})

	c.handleStorePaymentPrompt(storePaymentEvent("badge_pack", nil))
	c.ClearCachedPayments()

	assert.Nil(t, c.CachedStorePayment())
	assert.Nil(t, c.HandleCachedPayments())
	assert.Empty(t, q.submittedPayments())
}

func TestCachedPaymentOutcomeResolves(t *testing.T) {
	q := newFakeQueue()
	c := newTestCoordinator(q, Listeners{})

	c.handleStorePaymentPrompt(storePaymentEvent("badge_pack", nil))
	outcome := c.HandleCachedPayments()
	require.NotNil(t, outcome)

	c.handleEvent(context.Background(), types.Event{
		Type: types.EventTransactionsUpdated,
		Transactions: []types.Transaction{
			{ID: "tx-store", ProductID: "badge_pack", State: types.TxPurchased},
		},
	})

	result := <-outcome.Done()
	require.Nil(t, result.Err)
	assert.Equal(t, "R3c31ptStr1ng==", result.Receipt)
	require.Len(t, q.finishedTransactions(), 1)
}

// fakeSnapshotStore records the sequence of persisted snapshot values. Save
// can be made to block so a test can try to interleave another mutation.
type fakeSnapshotStore struct {
	mu          sync.Mutex
	persisted   []*types.PendingStorePayment
	blockSave   chan struct{}
	saveEntered chan struct{}
}

func (s *fakeSnapshotStore) SavePendingStorePayment(pending *types.PendingStorePayment) error {
	if s.blockSave != nil {
		if s.saveEntered != nil {
			close(s.saveEntered)
		}
		<-s.blockSave
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = append(s.persisted, pending)
	return nil
}

func (s *fakeSnapshotStore) LoadPendingStorePayment() (*types.PendingStorePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.persisted) == 0 {
		return nil, nil
	}
	return s.persisted[len(s.persisted)-1], nil
}

func (s *fakeSnapshotStore) ClearPendingStorePayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = append(s.persisted, nil)
	return nil
}

func (s *fakeSnapshotStore) lastPersisted() *types.PendingStorePayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.persisted) == 0 {
		return nil
	}
	return s.persisted[len(s.persisted)-1]
}

func TestSnapshotPersistsInMutationOrder(t *testing.T) {
	q := newFakeQueue()
	store := &fakeSnapshotStore{
		blockSave:   make(chan struct{}),
		saveEntered: make(chan struct{}),
	}
	c := New(Options{
		Queue:      q,
		Catalog:    &fakeCatalog{},
		Receipts:   &fakeReceipts{},
		StateStore: store,
	})

	// The prompt's snapshot write is still in flight when the application
	// clears the cache; the clear must not reach the store first.
	promptDone := make(chan struct{})
	go func() {
		c.handleStorePaymentPrompt(storePaymentEvent("badge_pack", nil))
		close(promptDone)
	}()

	// Wait until the prompt's save is in flight (c.mu is held at that
	// point) before racing the clear against it.
	<-store.saveEntered

	cleared := make(chan struct{})
	go func() {
		c.ClearCachedPayments()
		close(cleared)
	}()

	select {
	case <-cleared:
		t.Fatal("clear overtook the pending snapshot write")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.blockSave)
	<-promptDone
	<-cleared

	assert.Nil(t, store.lastPersisted(), "store must end on the cleared state")
	assert.Nil(t, c.CachedStorePayment())
}

func TestSnapshotRestoredOnConstruction(t *testing.T) {
	q := newFakeQueue()
	store := &fakeSnapshotStore{}
	require.NoError(t, store.SavePendingStorePayment(&types.PendingStorePayment{
		Payment: types.Payment{ProductID: "badge_pack", Quantity: 1},
		Product: types.ProductDescriptor{ID: "badge_pack"},
	}))

	c := New(Options{
		Queue:      q,
		Catalog:    &fakeCatalog{},
		Receipts:   &fakeReceipts{},
		StateStore: store,
	})

	cached := c.CachedStorePayment()
	require.NotNil(t, cached)
	assert.Equal(t, "badge_pack", cached.Payment.ProductID)
}
