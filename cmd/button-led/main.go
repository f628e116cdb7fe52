// Command button-led debounces a push button and drives an LED: three quick
// blinks when the button goes active, a half-second hold when it is released.
// Settled button states are also published to MQTT and a local status page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/button-led/internal/bus"
	"github.com/sweeney/button-led/internal/config"
	"github.com/sweeney/button-led/internal/debounce"
	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/mqtt"
	"github.com/sweeney/button-led/internal/sched"
	"github.com/sweeney/button-led/internal/status"
	"github.com/sweeney/button-led/internal/web"
)

// statusInterval is how often MQTT connectivity is sampled for the tracker.
const statusInterval = 5 * time.Second

func main() {
	cfg, printState, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags loads the config file named by -config (plus environment
// overrides) and then applies any flags given explicitly.
func parseFlags(args []string) (config.Config, bool, error) {
	fs := flag.NewFlagSet("button-led", flag.ContinueOnError)
	path := fs.String("config", "", "YAML config file")
	broker := fs.String("broker", "", "MQTT broker address (empty to disable)")
	httpAddr := fs.String("http", "", "HTTP status address (empty to disable)")
	window := fs.Duration("debounce", debounce.DefaultWindow, "Debounce window")
	chip := fs.String("chip", gpio.DefaultChip, "GPIO chip")
	pinButton := fs.Int("pin-button", gpio.DefaultPinButton, "Line offset of the button input")
	pinLED := fs.Int("pin-led", gpio.DefaultPinLED, "Line offset of the LED output")
	printState := fs.Bool("print-state", false, "Print current button state and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return cfg, false, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "debounce":
			cfg.Debounce = *window
		case "chip":
			cfg.GPIO.Chip = *chip
		case "pin-button":
			cfg.GPIO.Button = *pinButton
		case "pin-led":
			cfg.GPIO.LED = *pinLED
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, *printState, nil
}

// pipeline is the wired button to LED path.
type pipeline struct {
	worker     *sched.Scheduler
	channel    *bus.Channel
	debouncer  *debounce.Debouncer
	controller *logic.Controller
}

// newPipeline wires dev to a debouncer, event channel and controller on
// worker, then brings the hardware up.
func newPipeline(dev gpio.Device, worker *sched.Scheduler, window time.Duration) (*pipeline, error) {
	ch := bus.New()
	p := &pipeline{
		worker:     worker,
		channel:    ch,
		debouncer:  debounce.New(dev, ch, worker, window),
		controller: logic.NewController(dev, worker),
	}
	if err := bringUp(dev, p.debouncer, ch, p.controller); err != nil {
		return nil, err
	}
	return p, nil
}

// bringUp configures the lines in order and subscribes the controller.
// The first failure aborts the sequence.
func bringUp(dev gpio.Device, deb *debounce.Debouncer, ch *bus.Channel, ctrl *logic.Controller) error {
	if err := dev.ConfigureInput(); err != nil {
		return fmt.Errorf("configure input: %w", err)
	}
	if err := dev.ConfigureInputInterrupt(gpio.EdgeBoth); err != nil {
		return fmt.Errorf("configure input interrupt: %w", err)
	}
	if err := dev.RegisterEdgeCallback(deb.OnEdge); err != nil {
		return fmt.Errorf("register edge callback: %w", err)
	}
	if err := dev.ConfigureOutput(); err != nil {
		return fmt.Errorf("configure output: %w", err)
	}
	if err := ch.Subscribe(ctrl); err != nil {
		return fmt.Errorf("subscribe controller: %w", err)
	}
	return nil
}

// counts gathers pipeline counters for the status tracker.
func (p *pipeline) counts(bridge *mqtt.Bridge) func() status.Counts {
	return func() status.Counts {
		ds := p.debouncer.Stats()
		ss := p.worker.Stats()
		c := status.Counts{
			Edges:        ds.Edges,
			Settles:      ds.Settles,
			ReadFailures: ds.ReadFailures,
			Fired:        ss.Fired,
			Skipped:      ss.Skipped,
			StaleFirings: p.controller.StaleFirings(),
		}
		if bridge != nil {
			c.MQTTSent = bridge.Sent()
			c.MQTTFailed = bridge.Failed()
			c.MQTTDropped = bridge.Dropped()
		}
		return c
	}
}

func run(cfg config.Config, printState bool) error {
	dev := gpio.NewRealDevice(cfg.GPIODevice())
	defer dev.Close()

	// Print state mode
	if printState {
		if err := dev.ConfigureInput(); err != nil {
			return fmt.Errorf("configure input: %w", err)
		}
		level, err := dev.ReadInput()
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		fmt.Printf("button: %s\n", logic.InputState{Active: level})
		return nil
	}

	worker := sched.New(time.Now)
	p, err := newPipeline(dev, worker, cfg.Debounce)
	if err != nil {
		return fmt.Errorf("bring-up: %w", err)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:       cfg.GPIO.Chip,
		ButtonPin:  cfg.GPIO.Button,
		LEDPin:     cfg.GPIO.LED,
		DebounceMs: cfg.Debounce.Milliseconds(),
		Broker:     cfg.MQTT.Broker,
		HTTPAddr:   cfg.HTTPAddr,
	})

	// Initialize MQTT
	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
		bridge     *mqtt.Bridge
	)
	if cfg.MQTT.Broker != "" {
		rp, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			OnConnect:   func() { tracker.SetMQTTConnected(true) },
		})
		if err != nil {
			log.Printf("mqtt disabled: %v", err)
		} else {
			defer rp.Close()
			publisher, mqttStatus = rp, rp
			bridge = mqtt.NewBridge(rp, cfg.MQTT.BufferSize, time.Now)
		}
	}

	var srv *web.Server
	if cfg.HTTPAddr != "" {
		srv = web.New(cfg.HTTPAddr, tracker)
	}

	if err := subscribeObservers(p, tracker, bridge, srv); err != nil {
		return err
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
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
	}

	// Start HTTP status server
	if srv != nil {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: chip=%s button=%d led=%d debounce=%v broker=%s",
		cfg.GPIO.Chip, cfg.GPIO.Button, cfg.GPIO.LED, cfg.Debounce, cfg.MQTT.Broker)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(worker, bridge, publisher, mqttStatus, tracker, time.Now, ticker.C, sigCh)
}

// subscribeObservers adds the status tracker, MQTT bridge and live feed
// after the controller. It must run before the worker starts.
func subscribeObservers(p *pipeline, tracker *status.Tracker, bridge *mqtt.Bridge, srv *web.Server) error {
	if err := p.channel.Subscribe(tracker); err != nil {
		return fmt.Errorf("subscribe status: %w", err)
	}
	if bridge != nil {
		if err := p.channel.Subscribe(bridge); err != nil {
			return fmt.Errorf("subscribe mqtt: %w", err)
		}
	}

	var hub *web.Hub
	if srv != nil {
		hub = srv.Hub()
		if err := p.channel.Subscribe(hub); err != nil {
			return fmt.Errorf("subscribe web: %w", err)
		}
	}

	p.controller.OnChange = func(cs logic.ControllerState) {
		tracker.SetController(cs)
		if hub != nil {
			hub.ControllerChanged(cs)
		}
	}
	tracker.SetCountsFunc(p.counts(bridge))
	return nil
}

// runLoop starts the scheduler worker (and the MQTT bridge, if any) and
// blocks until a signal arrives or the worker fails. On a signal it stops
// the worker, flushes buffered events and publishes SHUTDOWN.
func runLoop(worker *sched.Scheduler, bridge *mqtt.Bridge, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerErr := make(chan error, 1)
	go func() { workerErr <- worker.Run(ctx) }()

	bridgeDone := make(chan struct{})
	if bridge != nil {
		go func() {
			defer close(bridgeDone)
			bridge.Run(ctx)
		}()
	} else {
		close(bridgeDone)
	}

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

			cancel()
			<-workerErr
			<-bridgeDone
			if bridge != nil {
				bridge.Flush()
			}

			if publisher == nil {
				return nil
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

		case err := <-workerErr:
			cancel()
			<-bridgeDone
			if err == nil {
				err = errors.New("stopped unexpectedly")
			}
			return fmt.Errorf("scheduler worker: %w", err)

		case <-tick:
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}
	}
}
