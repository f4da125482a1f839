// Command dimmer drives a phase-angle triac dimmer from a zero-cross input
// and exposes it over MQTT and HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/dimmer/internal/config"
	"github.com/sweeney/dimmer/internal/dimmer"
	"github.com/sweeney/dimmer/internal/gpio"
	"github.com/sweeney/dimmer/internal/hwtimer"
	"github.com/sweeney/dimmer/internal/logic"
	"github.com/sweeney/dimmer/internal/mathx"
	"github.com/sweeney/dimmer/internal/mqtt"
	"github.com/sweeney/dimmer/internal/rt"
	"github.com/sweeney/dimmer/internal/status"
	"github.com/sweeney/dimmer/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/dimmer/config.yaml", "Settings file (created on first change)")
	broker := flag.String("broker", "", "MQTT broker address (overrides the settings file)")
	httpAddr := flag.String("http", "", `HTTP status address (overrides the settings file, "off" disables)`)
	printConfig := flag.Bool("print-config", false, "Print the effective settings and exit")

	flag.Parse()

	if err := run(*configPath, *broker, *httpAddr, *printConfig); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath, broker, httpAddr string, printConfig bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, broker, httpAddr)

	if printConfig {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		os.Stdout.Write(data)
		return nil
	}

	if err := rt.LockMemory(); err != nil {
		log.Printf("rt: %v (continuing without locked memory)", err)
	}

	// Gate output first so the triac is held off before anything else runs
	out, err := gpio.NewRealOutput(cfg.GPIO.Chip, cfg.GPIO.TriggerPin)
	if err != nil {
		return fmt.Errorf("init gate output: %w", err)
	}
	defer out.Close()

	clock := hwtimer.MonotonicClock{}
	timer := hwtimer.NewReal(clock, cfg.GPIO.RTPriority)
	defer timer.Close()

	d := dimmer.New(timer, clock, out, dimmerConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Init(ctx)
	defer d.Shutdown()

	in, err := gpio.NewRealEdgeInput(cfg.GPIO.Chip, cfg.GPIO.ZeroCrossPin, cfg.GPIO.Edge(), d.ZeroCross)
	if err != nil {
		return fmt.Errorf("init zero-cross input: %w", err)
	}
	defer in.Close()

	d.OnChange(saveOnChange(d, cfg, configPath))

	var client mqtt.Client
	if cfg.MQTT.Enabled {
		rc, err := mqtt.NewRealClient(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topics:   mqtt.NewTopics(cfg.MQTT.MainTopic),
			QoS:      cfg.MQTT.QoS,
			Retain:   cfg.MQTT.Retain,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer rc.Close()
		if err := rc.Subscribe(mqtt.NewCommandHandler(d)); err != nil {
			log.Printf("mqtt: subscribe: %v", err)
		}
		client = rc
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:      cfg.MQTT.Broker,
		MainTopic:   cfg.MQTT.MainTopic,
		HTTPAddr:    cfg.HTTP.Addr,
		PublishMs:   cfg.MQTT.PublishInterval.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		ConfigPath:  configPath,
	})
	tracker.SetDimmer(d.Status())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if client != nil {
		tracker.SetMQTTConnected(client.IsConnected())
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := client.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, 0)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: zero-cross=%s/%d trigger=%s/%d firing=%s mode=%s broker=%s publish=%v heartbeat=%v",
		cfg.GPIO.Chip, cfg.GPIO.ZeroCrossPin, cfg.GPIO.Chip, cfg.GPIO.TriggerPin,
		d.FiringMode(), d.Mode(), cfg.MQTT.Broker, cfg.MQTT.PublishInterval, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(cfg.MQTT.PublishInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(d, client, tracker, loopConfig{
		debounce:  cfg.MQTT.EventDebounce,
		heartbeat: cfg.MQTT.Heartbeat,
	}, time.Now, ticker.C, sigCh)
}

// applyFlags lets command line flags override the settings file.
func applyFlags(cfg *config.Config, broker, httpAddr string) {
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = httpAddr
	}
}

func dimmerConfig(cfg *config.Config) dimmer.Config {
	return dimmer.Config{
		Triac:    cfg.Triac.ControllerConfig(),
		Waveform: cfg.Waveform.EngineConfig(),
		Levels: dimmer.Levels{
			Off:    mathx.ClampPercent(cfg.Levels.Off),
			On:     mathx.ClampPercent(cfg.Levels.On),
			Lounge: mathx.ClampPercent(cfg.Levels.Lounge),
		},
		Startup: mathx.ClampPercent(cfg.Levels.Startup),
	}
}

// saveOnChange returns a callback that writes changed dimmer settings back
// to the settings file.
func saveOnChange(d *dimmer.Dimmer, cfg *config.Config, path string) func() {
	var mu sync.Mutex
	return func() {
		mu.Lock()
		defer mu.Unlock()
		cfg.SetRuntime(d.Mode(), d.Mode100(), d.Effect(), d.FiringMode())
		if err := cfg.Save(path); err != nil {
			log.Printf("config: save %s: %v", path, err)
		}
	}
}

// statusSource is the part of the dimmer the loop samples.
type statusSource interface {
	Status() dimmer.Status
}

type loopConfig struct {
	debounce  time.Duration
	heartbeat time.Duration
	// maxAge is the republish interval of unchanged status values, in ticks.
	maxAge int
}

func runLoop(src statusSource, client mqtt.Client, tracker *status.Tracker, lc loopConfig, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(lc.debounce, startTime)
	values := mqtt.NewValueCache(lc.maxAge)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if client == nil {
				return nil
			}
			reason := signalName(s)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    reason,
				Retained:  true,
			}
			if tracker != nil {
				tracker.SetDimmer(src.Status())
				tracker.SetMQTTConnected(client.IsConnected())
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
			}
			if err := client.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			st := src.Status()

			events := detector.Process(logic.Input{
				Output:     st.Output,
				Calibrated: st.Calibrated,
				MainsHz:    st.MainsHz,
				Time:       t,
			})

			for _, event := range events {
				log.Printf("event: %s (light=%s mains=%s output=%d)", event.Type, event.Light, event.Mains, event.Output)
				if client == nil {
					continue
				}
				if err := client.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if client != nil {
				sv := mqtt.StatusValues{Dim: st.Output, FreqHz: st.MainsHz, Mode: st.Mode, Effect: st.Effect.Kind}
				for _, v := range values.Due(sv.Values()) {
					if err := client.PublishValue(v.Tag, v.Payload); err != nil {
						log.Printf("publish %s error: %v", v.Tag, err)
					}
				}
			}

			light, mains := detector.CurrentState()

			// Check for heartbeat
			if hbData := detector.CheckHeartbeat(t, lc.heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v light_on=%d light_off=%d mains_ok=%d mains_lost=%d",
					hbData.Uptime, hbData.Counts.LightOn, hbData.Counts.LightOff, hbData.Counts.MainsOK, hbData.Counts.MainsLost)

				if client != nil {
					hbEvent := mqtt.SystemEvent{
						Timestamp: hbData.Timestamp,
						Event:     "HEARTBEAT",
					}
					if tracker != nil {
						tracker.SetMQTTConnected(client.IsConnected())
						// Refresh network info for heartbeat
						if net := readNetworkInfo(); net != nil {
							tracker.SetNetwork(net)
						}
						tracker.Update(st, light, mains, detector.IsBaselined(), detector.Counts())
						snap := tracker.Snapshot()
						hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
					}
					if err := client.PublishSystem(hbEvent); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(st, light, mains, detector.IsBaselined(), detector.Counts())
				if client != nil {
					tracker.SetMQTTConnected(client.IsConnected())
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
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
