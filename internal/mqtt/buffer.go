package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the most recent messages published while disconnected.
// When full, the oldest message is dropped. Not safe for concurrent use.
type ringBuffer struct {
	buf     []bufferedMsg
	start   int // oldest message
	count   int
	dropped int // messages lost since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	n := len(r.buf)
	if r.count == n {
		r.buf[r.start] = msg
		r.start = (r.start + 1) % n
		r.dropped++
		return
	}
	r.buf[(r.start+r.count)%n] = msg
	r.count++
}

// drainAll returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	if r.dropped > 0 {
		log.Printf("mqtt: buffer overflowed, %d oldest messages dropped", r.dropped)
	}

	n := len(r.buf)
	out := make([]bufferedMsg, r.count)
	for i := range out {
		out[i] = r.buf[(r.start+i)%n]
	}

	r.start, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
