// Command code-lock runs the electronic code lock controller: it polls the
// input port, drives the indicator outputs and publishes lock events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/code-lock/internal/config"
	"github.com/sweeney/code-lock/internal/control"
	"github.com/sweeney/code-lock/internal/logic"
	"github.com/sweeney/code-lock/internal/mqtt"
	"github.com/sweeney/code-lock/internal/port"
	"github.com/sweeney/code-lock/internal/status"
	"github.com/sweeney/code-lock/internal/web"
)

// options holds the command-line flags. Only flags set explicitly
// override the configuration file.
type options struct {
	configPath string
	poll       time.Duration
	heartbeat  time.Duration
	broker     string
	httpAddr   string
	backend    string
	endpoint   string
	printState bool
}

func main() {
	opts, set, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	cfg, err := resolveConfig(opts, set)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, opts.printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (options, map[string]bool, error) {
	def := config.Default()
	var o options
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.DurationVar(&o.poll, "poll", def.Poll(), "Control loop period")
	fs.DurationVar(&o.heartbeat, "heartbeat", def.Heartbeat(), "Heartbeat interval (0 to disable)")
	fs.StringVar(&o.broker, "broker", def.MQTT.Broker, "MQTT broker address")
	fs.StringVar(&o.httpAddr, "http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	fs.StringVar(&o.backend, "backend", def.Backend, "Port backend: gpio, modbus-tcp or modbus-rtu")
	fs.StringVar(&o.endpoint, "endpoint", "", "Modbus endpoint (host:port or serial device)")
	fs.BoolVar(&o.printState, "print-state", false, "Print the input port and exit")

	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// resolveConfig loads the config file (if any), applies explicitly set
// flags on top, then normalizes and validates the result.
func resolveConfig(o options, set map[string]bool) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if set["poll"] {
		cfg.PollMs = int(o.poll.Milliseconds())
	}
	if set["heartbeat"] {
		cfg.HeartbeatMs = int(o.heartbeat.Milliseconds())
	}
	if set["broker"] {
		cfg.MQTT.Broker = o.broker
	}
	if set["http"] {
		cfg.HTTP.Addr = o.httpAddr
	}
	if set["backend"] {
		cfg.Backend = o.backend
	}
	if set["endpoint"] {
		cfg.Modbus.Endpoint = o.endpoint
	}

	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openPort(cfg *config.Config) (port.Port, error) {
	switch cfg.Backend {
	case config.BackendGPIO:
		p, err := port.NewGPIOPort(cfg.PortGPIO())
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendModbusTCP, config.BackendModbusRTU:
		p, err := port.NewModbusPort(cfg.PortModbus())
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func run(cfg *config.Config, printState bool) error {
	p, err := openPort(cfg)
	if err != nil {
		return fmt.Errorf("init port: %w", err)
	}
	defer p.Close()

	// Print state mode
	if printState {
		w, err := p.Read()
		if err != nil {
			return fmt.Errorf("read port: %w", err)
		}
		fmt.Println(describeInputs(w))
		return nil
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      int64(cfg.PollMs),
		HeartbeatMs: int64(cfg.HeartbeatMs),
		Backend:     cfg.Backend,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: backend=%s poll=%v broker=%s heartbeat=%v",
		cfg.Backend, cfg.Poll(), cfg.MQTT.Broker, cfg.Heartbeat())

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(p, publisher, publisher, tracker, cfg.Heartbeat(), time.Now, ticker.C, sigCh)
}

// runLoop owns the controller. Every tick runs exactly one iteration;
// port errors are logged and counted but never stop the loop.
func runLoop(p port.Port, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	// The blink timer reads the time of the iteration it runs in.
	current := now()
	loop := control.New(p, func() time.Time { return current })

	lastHeartbeat := current
	var counts logic.EventCounts

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			current = now()
			res, err := loop.Iterate(current)
			if err != nil {
				log.Printf("port error: %v", err)
				if tracker != nil {
					tracker.RecordIOError()
				}
			}

			for _, event := range res.Events {
				log.Printf("event: %s (state=%s failures=%d)", event.Type, event.State, event.Failures)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}
			counts.Add(res.Events)

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(res.State, res.Input, res.Output, counts)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if heartbeat <= 0 || current.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = current

			log.Printf("heartbeat: state=%s opened=%d closed=%d wrong_code=%d alarm=%d",
				res.State.State, counts.Opened, counts.Closed, counts.WrongCode, counts.Alarm)

			hbEvent := mqtt.SystemEvent{
				Timestamp: current,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// describeInputs renders an input word for print-state mode.
// The code switches are shown because this is a bench tool.
func describeInputs(w logic.RawBits) string {
	return fmt.Sprintf("WORD: %08b, READ_CODE: %s, PROGRAMMING: %s, CODE: %d",
		uint8(w), stateString(w&logic.BitReadCode != 0), stateString(w&logic.BitProgramming != 0), logic.CodeOf(w))
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
