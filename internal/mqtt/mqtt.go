// Package mqtt bridges the dimmer to an MQTT broker: it receives commands on
// <main>/<tag> topics and publishes status values, dimmer events and system
// lifecycle events. The Client interface abstracts the broker for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/dimmer/internal/logic"
)

// DefaultMainTopic prefixes every topic when none is configured.
const DefaultMainTopic = "myhome/iotdimmer"

// Command tags, subscribed under the main topic.
const (
	TagOffOn  = "offon"
	TagOff    = "off"
	TagOn     = "on"
	TagLounge = "lounge"
	TagDim    = "dim"
	TagMode   = "mode"
	TagEffect = "effect"
	TagInput  = "input"
)

// Status tags, published under the main topic.
const (
	TagDimStatus    = "dim_status"
	TagFreqStatus   = "freq_status"
	TagModeStatus   = "mode_status"
	TagEffectStatus = "effect_status"
)

// Event tags.
const (
	TagEvent  = "event"
	TagSystem = "system"
)

// CommandTags lists every tag the dimmer subscribes to.
var CommandTags = []string{TagOffOn, TagOff, TagOn, TagLounge, TagDim, TagMode, TagEffect, TagInput}

// Topics builds and parses topics below a main topic.
type Topics struct {
	Main string
}

// NewTopics normalises main, dropping surrounding slashes.
func NewTopics(main string) Topics {
	main = strings.Trim(strings.TrimSpace(main), "/")
	if main == "" {
		main = DefaultMainTopic
	}
	return Topics{Main: main}
}

// Topic returns <main>/<tag>.
func (t Topics) Topic(tag string) string {
	return t.Main + "/" + tag
}

// Tag returns the tag of a topic below the main topic.
func (t Topics) Tag(topic string) (string, bool) {
	tag, ok := strings.CutPrefix(topic, t.Main+"/")
	if !ok || tag == "" || strings.Contains(tag, "/") {
		return "", false
	}
	return tag, true
}

// Command is a message received on a command topic.
type Command struct {
	Tag     string
	Payload string
}

// CommandHandler is called for every command received. It runs on the
// client's receive goroutine.
type CommandHandler func(Command)

// Publisher publishes dimmer state to MQTT.
type Publisher interface {
	// PublishValue sends a status value to <main>/<tag>.
	// Returns error if publishing fails (should not crash the process).
	PublishValue(tag, value string) error

	// Publish sends a dimmer event to <main>/event.
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to <main>/system.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers commands.
type Subscriber interface {
	// Subscribe installs h and subscribes to every command tag. The
	// subscription survives reconnects.
	Subscribe(h CommandHandler) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Client is the full broker connection used by the daemon.
type Client interface {
	Publisher
	Subscriber
	ConnectionStatus
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for dimmer events.
type Payload struct {
	Dimmer DimmerPayload `json:"dimmer"`
}

// DimmerPayload contains the dimmer event details.
type DimmerPayload struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	Light     string  `json:"light"`
	Mains     string  `json:"mains"`
	Output    uint8   `json:"output"`
	MainsHz   float64 `json:"mains_hz"`
}

// FormatPayload creates the JSON payload for a dimmer event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Dimmer: DimmerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Light:     string(event.Light),
			Mains:     string(event.Mains),
			Output:    event.Output,
			MainsHz:   roundTenth(event.MainsHz),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes on <main>/system
// when the connection drops without a clean disconnect.
func WillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: "OFFLINE", Reason: "LWT"}})
	return data
}

func roundTenth(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
