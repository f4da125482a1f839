package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Light         string       `json:"light"`
	Mains         string       `json:"mains"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Dimmer        DimmerJSON   `json:"dimmer"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// DimmerJSON is the JSON representation of the dimmer state.
type DimmerJSON struct {
	Target     uint8      `json:"target"`
	Output     uint8      `json:"output"`
	Moving     bool       `json:"moving"`
	Mode       string     `json:"mode"`
	Mode100Ms  int64      `json:"mode100_ms"`
	Effect     EffectJSON `json:"effect"`
	FiringMode string     `json:"firing_mode"`
	State      string     `json:"state"`
	Calibrated bool       `json:"calibrated"`
	MainsHz    float64    `json:"mains_hz"`
	DelayUs    uint32     `json:"delay_us"`
	Triac      TriacJSON  `json:"triac"`
	Levels     LevelsJSON `json:"levels"`
}

// EffectJSON is the JSON representation of the active effect.
type EffectJSON struct {
	Kind      string  `json:"kind"`
	Magnitude uint8   `json:"magnitude"`
	Gain      float32 `json:"gain"`
	PeriodMs  int64   `json:"period_ms"`
	Input     int     `json:"input"`
}

// TriacJSON carries the controller counters.
type TriacJSON struct {
	Fired        uint64 `json:"fired"`
	Skipped      uint64 `json:"skipped"`
	OutputErrors uint64 `json:"output_errors"`
	Rejected     uint64 `json:"rejected"`
}

// LevelsJSON lists the preset levels.
type LevelsJSON struct {
	Off    uint8 `json:"off"`
	On     uint8 `json:"on"`
	Lounge uint8 `json:"lounge"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	LightOn   int `json:"light_on"`
	LightOff  int `json:"light_off"`
	MainsOK   int `json:"mains_ok"`
	MainsLost int `json:"mains_lost"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker      string `json:"broker"`
	MainTopic   string `json:"main_topic"`
	HTTPAddr    string `json:"http_addr"`
	PublishMs   int64  `json:"publish_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	ConfigPath  string `json:"config_path,omitempty"`
}

func stateString(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildDimmer(snap Snapshot) DimmerJSON {
	d := snap.Dimmer
	return DimmerJSON{
		Target:    d.Target,
		Output:    d.Output,
		Moving:    d.Moving,
		Mode:      d.Mode.String(),
		Mode100Ms: d.Mode100.Milliseconds(),
		Effect: EffectJSON{
			Kind:      d.Effect.Kind.String(),
			Magnitude: d.Effect.Magnitude,
			Gain:      d.Effect.Gain,
			PeriodMs:  d.Effect.Period.Milliseconds(),
			Input:     d.EffectInput,
		},
		FiringMode: d.FiringMode.String(),
		State:      d.State.String(),
		Calibrated: d.Calibrated,
		MainsHz:    float64(int64(d.MainsHz*10+0.5)) / 10,
		DelayUs:    d.LastDelayUs,
		Triac: TriacJSON{
			Fired:        d.Stats.Fired,
			Skipped:      d.Stats.Skipped,
			OutputErrors: d.Stats.OutputErrors,
			Rejected:     d.Stats.Rejected,
		},
		Levels: LevelsJSON{
			Off:    d.Levels.Off,
			On:     d.Levels.On,
			Lounge: d.Levels.Lounge,
		},
	}
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Light:         stateString(string(snap.Light)),
		Mains:         stateString(string(snap.Mains)),
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Dimmer:        buildDimmer(snap),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Topic:     snap.Config.MainTopic,
		},
		Counts: CountsJSON{
			LightOn:   snap.Counts.LightOn,
			LightOff:  snap.Counts.LightOff,
			MainsOK:   snap.Counts.MainsOK,
			MainsLost: snap.Counts.MainsLost,
		},
		Config: ConfigJSON{
			Broker:      snap.Config.Broker,
			MainTopic:   snap.Config.MainTopic,
			HTTPAddr:    snap.Config.HTTPAddr,
			PublishMs:   snap.Config.PublishMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			ConfigPath:  snap.Config.ConfigPath,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
