package port

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sweeney/code-lock/internal/logic"
)

// ModbusConfig describes a remote I/O module.
type ModbusConfig struct {
	// Endpoint is host:port for Modbus TCP, or a serial device for RTU.
	Endpoint string
	RTU      bool
	UnitID   uint8
	Timeout  time.Duration

	// InputAddress is the first of 8 discrete inputs forming the input word.
	InputAddress uint16
	// OutputAddress is the first of 8 coils forming the output word.
	OutputAddress uint16

	// Serial settings (RTU only).
	BaudRate int
	Parity   string
}

// handler is implemented by both the TCP and RTU client handlers.
type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// ModbusPort exchanges the port words with a remote I/O module:
// bit n of the input word is discrete input InputAddress+n, bit n of the
// output word is coil OutputAddress+n.
type ModbusPort struct {
	mu      sync.Mutex
	handler handler
	client  modbus.Client
	cfg     ModbusConfig
}

// NewModbusPort connects to the module.
func NewModbusPort(cfg ModbusConfig) (*ModbusPort, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus port: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	var h handler
	if cfg.RTU {
		rtu := modbus.NewRTUClientHandler(cfg.Endpoint)
		rtu.BaudRate = cfg.BaudRate
		if rtu.BaudRate == 0 {
			rtu.BaudRate = 19200
		}
		rtu.DataBits = 8
		rtu.Parity = cfg.Parity
		if rtu.Parity == "" {
			rtu.Parity = "E"
		}
		rtu.StopBits = 1
		rtu.SlaveId = cfg.UnitID
		rtu.Timeout = cfg.Timeout
		h = rtu
	} else {
		tcp := modbus.NewTCPClientHandler(cfg.Endpoint)
		tcp.SlaveId = cfg.UnitID
		tcp.Timeout = cfg.Timeout
		h = tcp
	}

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus connect %s: %w", cfg.Endpoint, err)
	}

	return &ModbusPort{
		handler: h,
		client:  modbus.NewClient(h),
		cfg:     cfg,
	}, nil
}

// Read fetches 8 discrete inputs as one word.
func (p *ModbusPort) Read() (logic.RawBits, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.client.ReadDiscreteInputs(p.cfg.InputAddress, 8)
	if err != nil {
		return 0, fmt.Errorf("read discrete inputs: %w", err)
	}
	if len(res) < 1 {
		return 0, errors.New("read discrete inputs: empty response")
	}
	return logic.RawBits(res[0]), nil
}

// Write sets 8 coils from the word.
func (p *ModbusPort) Write(w logic.RawBits) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.client.WriteMultipleCoils(p.cfg.OutputAddress, 8, []byte{byte(w)}); err != nil {
		return fmt.Errorf("write coils: %w", err)
	}
	return nil
}

// Close clears the outputs and disconnects.
func (p *ModbusPort) Close() error {
	var errs []error
	if err := p.Write(0); err != nil {
		errs = append(errs, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.handler.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close modbus: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
