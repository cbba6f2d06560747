package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"purchasekit/internal/settings"
	"purchasekit/internal/types"
)

const (
	canSubmitTimeout = 2 * time.Second
	// How long the queue waits for the application's answer to a
	// store-initiated payment prompt before telling the platform "no".
	promptReplyTimeout = 5 * time.Second

	eventBufferSize = 64

	// Close waits this long for drain to finish; must exceed
	// promptReplyTimeout so a blocked prompt handler can run out first.
	closeDrainTimeout = 10 * time.Second
)

// NATSQueue talks to the platform payment queue over NATS. Requests publish
// to derived subjects; the event stream arrives on the configured subject and
// is re-delivered serially on the Events channel.
type NATSQueue struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
	events  chan types.Event
	// closed fires from the connection's ClosedHandler once drain finished
	// and no message handler can still be sending on events.
	closed    chan struct{}
	closeOnce sync.Once
}

// NewNATSQueue connects to NATS and subscribes to the payment event stream.
func NewNATSQueue(cfg settings.NATSConfig) (*NATSQueue, error) {
	natsURL := fmt.Sprintf("nats://%s:%s@%s:%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port)
	if cfg.Username == "" {
		natsURL = fmt.Sprintf("nats://%s:%s", cfg.Host, cfg.Port)
	}

	closed := make(chan struct{})
	conn, err := nats.Connect(natsURL,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			close(closed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q := &NATSQueue{
		conn:    conn,
		subject: cfg.Subject,
		events:  make(chan types.Event, eventBufferSize),
		closed:  closed,
	}

	// A single subscription keeps NATS callback delivery serial, which is
	// what gives the coordinator its one ordered delivery context.
	sub, err := conn.Subscribe(cfg.Subject, q.handleMessage)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Subject, err)
	}
	q.sub = sub

	log.Printf("Connected to payment queue at %s:%s, subject %s", cfg.Host, cfg.Port, cfg.Subject)

	return q, nil
}

func (q *NATSQueue) Events() <-chan types.Event {
	return q.events
}

// CanSubmitPayments asks the platform whether payments are possible. Any
// transport failure is treated as unavailable.
func (q *NATSQueue) CanSubmitPayments() bool {
	msg, err := q.conn.Request(q.subject+".can-submit", nil, canSubmitTimeout)
	if err != nil {
		log.Printf("can-submit request failed, treating payments as unavailable: %v", err)
		return false
	}
	var resp canSubmitResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		log.Printf("can-submit response malformed: %v", err)
		return false
	}
	return resp.Allowed
}

func (q *NATSQueue) Submit(payment types.Payment) error {
	return q.publish(q.subject+".submit", payment)
}

func (q *NATSQueue) Restore() error {
	if err := q.conn.Publish(q.subject+".restore", nil); err != nil {
		return fmt.Errorf("failed to publish restore request: %w", err)
	}
	return nil
}

func (q *NATSQueue) Finish(tx types.Transaction) error {
	return q.publish(q.subject+".finish", tx)
}

func (q *NATSQueue) publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", subject, err)
	}
	if err := q.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// handleMessage decodes one stream envelope and forwards it on the events
// channel. Store-payment prompts block the subscription until the consumer
// answers; that is intentional, the platform's delivery contract is serial.
func (q *NATSQueue) handleMessage(msg *nats.Msg) {
	var em eventMessage
	if err := json.Unmarshal(msg.Data, &em); err != nil {
		log.Printf("Dropping malformed queue event: %v", err)
		return
	}

	switch types.EventType(em.Type) {
	case types.EventTransactionsUpdated:
		q.events <- types.Event{
			Type:         types.EventTransactionsUpdated,
			Transactions: em.Transactions,
		}
	case types.EventRestoreCompleted:
		q.events <- types.Event{Type: types.EventRestoreCompleted}
	case types.EventRestoreFailed:
		q.events <- types.Event{
			Type:  types.EventRestoreFailed,
			Cause: errors.New(em.Cause),
		}
	case types.EventStorePaymentRequested:
		q.handleStorePaymentPrompt(msg, em)
	default:
		log.Printf("Dropping queue event with unknown type %q", em.Type)
	}
}

func (q *NATSQueue) handleStorePaymentPrompt(msg *nats.Msg, em eventMessage) {
	if em.Payment == nil || em.Product == nil {
		log.Printf("Dropping store payment prompt without payment/product")
		return
	}

	reply := make(chan bool, 1)
	q.events <- types.Event{
		Type:    types.EventStorePaymentRequested,
		Payment: *em.Payment,
		Product: *em.Product,
		Reply:   reply,
	}

	add := false
	select {
	case add = <-reply:
	case <-time.After(promptReplyTimeout):
		log.Printf("Store payment prompt for %s timed out, answering no", em.Payment.ProductID)
	}

	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(storePaymentReply{Add: add})
	if err != nil {
		log.Printf("Failed to marshal store payment reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Printf("Failed to respond to store payment prompt: %v", err)
	}
}

// Close drains the connection and closes the event stream. Drain waits for
// the in-flight message handler to return, including a store payment prompt
// sitting out its reply timeout, so no handler can send on events after the
// channel closes.
func (q *NATSQueue) Close() {
	q.closeOnce.Do(func() {
		if err := q.conn.Drain(); err != nil {
			log.Printf("Failed to drain payment queue connection: %v", err)
			q.conn.Close()
		}

		select {
		case <-q.closed:
		case <-time.After(closeDrainTimeout):
			log.Printf("Payment queue drain timed out after %s", closeDrainTimeout)
			q.conn.Close()
			<-q.closed
		}

		log.Println("Payment queue connection closed")
		close(q.events)
	})
}
