package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/code-lock/internal/logic"
)

// bufferCapacity is the number of messages kept while the broker is unreachable.
const bufferCapacity = 256

// queueCapacity is the number of messages waiting for the publisher goroutine.
const queueCapacity = 64

// publishTimeout bounds the wait for a broker acknowledgement.
const publishTimeout = 5 * time.Second

// DefaultClientID is the MQTT client id used when none is configured.
const DefaultClientID = "code-lock"

var errClosed = errors.New("publisher closed")

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed, oldest first, on reconnect.
//
// Publish and PublishSystem never wait on the broker: connected sends are
// queued and a single goroutine waits for the acknowledgements.
type RealPublisher struct {
	client  paho.Client
	topic   string
	timeout time.Duration

	mu  sync.Mutex
	buf *ringBuffer

	queue     chan bufferedMsg
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewRealPublisher creates a publisher for the given broker. Connection is
// established in the background; the lock never waits on the broker.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	return newRealPublisher(broker, clientID, publishTimeout)
}

func newRealPublisher(broker, clientID string, timeout time.Duration) *RealPublisher {
	if clientID == "" {
		clientID = DefaultClientID
	}

	p := &RealPublisher{
		topic:   Topic,
		timeout: timeout,
		buf:     newRingBuffer(bufferCapacity),
		queue:   make(chan bufferedMsg, queueCapacity),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	go p.run()
	p.client.Connect()

	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	log.Printf("mqtt: connected")

	payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	c.Publish(TopicSystem, 1, true, payload)

	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(p.timeout) || token.Error() != nil {
			log.Printf("mqtt: replay to %s failed", m.topic)
		}
	}
}

// run delivers queued messages until Close, then flushes what is left.
func (p *RealPublisher) run() {
	defer close(p.stopped)
	for {
		select {
		case m := <-p.queue:
			p.deliver(m)
		case <-p.done:
			for {
				select {
				case m := <-p.queue:
					p.deliver(m)
				default:
					return
				}
			}
		}
	}
}

func (p *RealPublisher) deliver(m bufferedMsg) {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(p.timeout) {
		log.Printf("mqtt: publish to %s timed out", m.topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: publish to %s failed: %v", m.topic, err)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	m := bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained}

	select {
	case <-p.done:
		return errClosed
	default:
	}

	if p.client.IsConnectionOpen() {
		select {
		case p.queue <- m:
			return nil
		default:
			log.Printf("mqtt: publish queue full, buffering message for %s", topic)
		}
	}

	p.mu.Lock()
	p.buf.push(m)
	p.mu.Unlock()
	return nil
}

// Publish sends a lock event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1: alarm and code-change events must not be lost.
	return p.send(p.topic, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	if err := p.send(TopicSystem, 1, event.Retained, payload); err != nil {
		return fmt.Errorf("system: %w", err)
	}
	return nil
}

// Close flushes queued messages, waiting at most one publish timeout, and
// disconnects from the broker. Later publishes return an error.
func (p *RealPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		select {
		case <-p.stopped:
		case <-time.After(p.timeout):
			log.Printf("mqtt: gave up flushing publish queue")
		}
		p.client.Disconnect(1000) // 1 second timeout
	})
	return nil
}
