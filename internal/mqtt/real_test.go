package mqtt

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sweeney/code-lock/internal/logic"
)

// silentBroker accepts MQTT connections and acknowledges CONNECT, but never
// acknowledges a PUBLISH. The topic of every PUBLISH seen is sent on
// published.
type silentBroker struct {
	ln        net.Listener
	published chan string
}

func newSilentBroker(t *testing.T) *silentBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	b := &silentBroker{ln: ln, published: make(chan string, 16)}
	t.Cleanup(func() { ln.Close() })
	go b.serve()
	return b
}

func (b *silentBroker) url() string { return "tcp://" + b.ln.Addr().String() }

func (b *silentBroker) serve() {
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		go b.handle(conn)
	}
}

func (b *silentBroker) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		kind, body, err := readPacket(r)
		if err != nil {
			return
		}
		switch kind >> 4 {
		case 1: // CONNECT
			if _, err := conn.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
				return
			}
		case 3: // PUBLISH
			if len(body) < 2 {
				continue
			}
			n := int(body[0])<<8 | int(body[1])
			if len(body) < 2+n {
				continue
			}
			select {
			case b.published <- string(body[2 : 2+n]):
			default:
			}
		}
	}
}

// readPacket reads one MQTT control packet and returns its first header byte
// and its variable header plus payload.
func readPacket(r *bufio.Reader) (byte, []byte, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	length, shift := 0, 0
	for {
		c, err := r.ReadByte()
		if err != nil {
			return 0, nil, err
		}
		length |= int(c&0x7f) << shift
		if c&0x80 == 0 {
			break
		}
		shift += 7
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return kind, body, nil
}

func connectedPublisher(t *testing.T, b *silentBroker, timeout time.Duration) *RealPublisher {
	t.Helper()
	p := newRealPublisher(b.url(), "code-lock-test", timeout)
	t.Cleanup(func() { p.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for !p.IsConnected() {
		if time.Now().After(deadline) {
			t.Fatal("publisher never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return p
}

func TestRealPublisherDoesNotWaitForAck(t *testing.T) {
	b := newSilentBroker(t)
	p := connectedPublisher(t, b, 2*time.Second)

	event := logic.Event{Type: logic.EventAlarm, State: logic.StateAlarm, Failures: 3, Timestamp: time.Now()}

	start := time.Now()
	if err := p.Publish(event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Errorf("Publish blocked for %v", d)
	}

	start = time.Now()
	if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Errorf("PublishSystem blocked for %v", d)
	}

	// The queued lock event still reaches the broker.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case topic := <-b.published:
			if topic == Topic {
				return
			}
		case <-deadline:
			t.Fatalf("no publish on %s reached the broker", Topic)
		}
	}
}

func TestRealPublisherBurstDoesNotBlock(t *testing.T) {
	b := newSilentBroker(t)
	p := connectedPublisher(t, b, 2*time.Second)

	event := logic.Event{Type: logic.EventWrongCode, State: logic.StateClosed, Failures: 1, Timestamp: time.Now()}

	// More than the queue holds: the overflow goes to the offline buffer.
	start := time.Now()
	for i := 0; i < queueCapacity*2; i++ {
		if err := p.Publish(event); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Errorf("burst of publishes blocked for %v", d)
	}
}

func TestRealPublisherCloseIsBounded(t *testing.T) {
	b := newSilentBroker(t)
	p := connectedPublisher(t, b, 200*time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN", Retained: true}); err != nil {
			t.Fatalf("PublishSystem: %v", err)
		}
	}

	start := time.Now()
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d := time.Since(start); d > 3*time.Second {
		t.Errorf("Close took %v", d)
	}

	if err := p.Publish(logic.Event{Type: logic.EventOpened, State: logic.StateOpened}); err == nil {
		t.Error("expected error publishing after Close")
	}
	// Closing twice is harmless.
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
