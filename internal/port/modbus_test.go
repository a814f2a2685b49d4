package port

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/code-lock/internal/logic"
)

// ioModule is a minimal Modbus TCP slave with 8 discrete inputs and 8 coils.
type ioModule struct {
	mu     sync.Mutex
	inputs byte
	coils  byte
	ln     net.Listener
}

func startIOModule(t *testing.T, inputs byte) *ioModule {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	m := &ioModule{inputs: inputs, ln: ln}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go m.serve(conn)
		}
	}()
	return m
}

func (m *ioModule) serve(conn net.Conn) {
	defer conn.Close()
	for {
		header := make([]byte, 7)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		length := binary.BigEndian.Uint16(header[4:6])
		pdu := make([]byte, length-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		var resp []byte
		m.mu.Lock()
		switch pdu[0] {
		case 2: // read discrete inputs
			resp = []byte{2, 1, m.inputs}
		case 15: // write multiple coils
			m.coils = pdu[6]
			resp = append([]byte{15}, pdu[1:5]...)
		default:
			resp = []byte{pdu[0] | 0x80, 1}
		}
		m.mu.Unlock()

		out := make([]byte, 7+len(resp))
		copy(out[0:4], header[0:4])
		binary.BigEndian.PutUint16(out[4:6], uint16(1+len(resp)))
		out[6] = header[6]
		copy(out[7:], resp)
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func (m *ioModule) coilWord() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coils
}

func TestModbusPortRoundTrip(t *testing.T) {
	m := startIOModule(t, 0xA5)

	p, err := NewModbusPort(ModbusConfig{
		Endpoint: m.ln.Addr().String(),
		UnitID:   1,
		Timeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewModbusPort: %v", err)
	}

	got, err := p.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != 0xA5 {
		t.Errorf("Read: got %08b, want 10100101", got)
	}

	word := logic.Encode(logic.OutputFlags{Opened: true, Programming: true})
	if err := p.Write(word); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.coilWord() != 0x81 {
		t.Errorf("coils: got %08b, want 10000001", m.coilWord())
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if m.coilWord() != 0 {
		t.Errorf("coils after close: got %08b, want 0", m.coilWord())
	}
}

func TestModbusPortEndpointRequired(t *testing.T) {
	if _, err := NewModbusPort(ModbusConfig{}); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestModbusPortConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := NewModbusPort(ModbusConfig{Endpoint: addr, Timeout: 200 * time.Millisecond}); err == nil {
		t.Error("expected connect error")
	}
}
