package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/dimmer/internal/dimmer"
	"github.com/sweeney/dimmer/internal/logic"
	"github.com/sweeney/dimmer/internal/triac"
	"github.com/sweeney/dimmer/internal/waveform"
)

func testDimmerStatus() dimmer.Status {
	return dimmer.Status{
		Target:  60,
		Output:  45,
		Current: 45.2,
		Moving:  true,
		Mode:    waveform.Linear,
		Mode100: 2 * time.Second,
		Effect: waveform.Effect{
			Kind:      waveform.EffectSine,
			Magnitude: 20,
			Gain:      1,
			Period:    10 * time.Second,
		},
		EffectInput: -3,
		FiringMode:  triac.PowerEquivalent,
		State:       triac.AwaitingZero,
		Calibrated:  true,
		MainsHz:     49.96,
		LastDelayUs: 5312,
		Stats:       triac.Stats{Fired: 1200, Skipped: 2, Rejected: 7},
		Levels:      dimmer.Levels{Off: 0, On: 100, Lounge: 30},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Broker: "tcp://localhost:1883", MainTopic: "myhome/iotdimmer", HTTPAddr: ":80", PublishMs: 1000}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PublishMs != 1000 {
		t.Errorf("Config.PublishMs: got %d, want 1000", snap.Config.PublishMs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.Baselined {
		t.Error("expected Baselined=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(testDimmerStatus(), logic.StateOn, logic.StateOn, true, logic.EventCounts{LightOn: 3, MainsOK: 1})

	snap := tr.Snapshot()
	if snap.Light != logic.StateOn {
		t.Errorf("Light: got %q, want ON", snap.Light)
	}
	if snap.Mains != logic.StateOn {
		t.Errorf("Mains: got %q, want ON", snap.Mains)
	}
	if !snap.Baselined {
		t.Error("expected Baselined=true")
	}
	if snap.Counts.LightOn != 3 {
		t.Errorf("Counts.LightOn: got %d, want 3", snap.Counts.LightOn)
	}
	if snap.Dimmer.Target != 60 {
		t.Errorf("Dimmer.Target: got %d, want 60", snap.Dimmer.Target)
	}
}

func TestSetDimmer(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(dimmer.Status{}, logic.StateOff, logic.StateOn, true, logic.EventCounts{MainsOK: 1})

	tr.SetDimmer(testDimmerStatus())

	snap := tr.Snapshot()
	if snap.Dimmer.Output != 45 {
		t.Errorf("Dimmer.Output: got %d, want 45", snap.Dimmer.Output)
	}
	// Other fields untouched
	if snap.Mains != logic.StateOn || snap.Counts.MainsOK != 1 {
		t.Error("SetDimmer should not change channel state or counts")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})
	fixed := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	if got := tr.Snapshot().Now; !got.Equal(fixed) {
		t.Errorf("Now: got %v, want %v", got, fixed)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(testDimmerStatus(), logic.StateOn, logic.StateOn, true, logic.EventCounts{LightOn: 1})

	snap1 := tr.Snapshot()

	tr.Update(dimmer.Status{}, logic.StateOff, logic.StateOff, true, logic.EventCounts{LightOn: 1, LightOff: 1})

	// snap1 should still reflect old state
	if snap1.Light != logic.StateOn {
		t.Error("snapshot should be a copy; Light was modified")
	}
	if snap1.Dimmer.Target != 60 {
		t.Error("snapshot should be a copy; Dimmer was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Dimmer:        testDimmerStatus(),
		Light:         logic.StateOn,
		Mains:         logic.StateOn,
		Baselined:     true,
		Counts:        logic.EventCounts{LightOn: 5, LightOff: 2, MainsOK: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883", MainTopic: "myhome/iotdimmer", HTTPAddr: ":80", PublishMs: 1000, HeartbeatMs: 900000},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Light != "ON" || s.Mains != "ON" {
		t.Errorf("Light/Mains: got %q/%q, want ON/ON", s.Light, s.Mains)
	}
	if !s.Ready {
		t.Error("expected Ready=true")
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.MQTT.Topic != "myhome/iotdimmer" {
		t.Errorf("unexpected MQTT status: %+v", s.MQTT)
	}
	if s.Counts.LightOn != 5 || s.Counts.LightOff != 2 || s.Counts.MainsOK != 1 {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty Event/Reason for web format, got %q/%q", s.Event, s.Reason)
	}

	d := s.Dimmer
	if d.Target != 60 || d.Output != 45 || !d.Moving {
		t.Errorf("unexpected levels: %+v", d)
	}
	if d.Mode != "linear" || d.Mode100Ms != 2000 {
		t.Errorf("mode: got %q/%d", d.Mode, d.Mode100Ms)
	}
	if d.Effect.Kind != "sine" || d.Effect.Magnitude != 20 || d.Effect.PeriodMs != 10000 || d.Effect.Input != -3 {
		t.Errorf("unexpected effect: %+v", d.Effect)
	}
	if d.FiringMode != triac.PowerEquivalent.String() {
		t.Errorf("FiringMode: got %q", d.FiringMode)
	}
	if d.State != triac.AwaitingZero.String() || !d.Calibrated {
		t.Errorf("unexpected state: %q calibrated=%v", d.State, d.Calibrated)
	}
	if d.MainsHz != 50.0 {
		t.Errorf("MainsHz: got %v, want 50.0", d.MainsHz)
	}
	if d.DelayUs != 5312 || d.Triac.Fired != 1200 || d.Triac.Rejected != 7 {
		t.Errorf("unexpected triac fields: delay=%d %+v", d.DelayUs, d.Triac)
	}
	if d.Levels.Lounge != 30 || d.Levels.On != 100 {
		t.Errorf("unexpected levels: %+v", d.Levels)
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Light != "UNKNOWN" {
		t.Errorf("Light: got %q, want UNKNOWN", parsed.Status.Light)
	}
	if parsed.Status.Mains != "UNKNOWN" {
		t.Errorf("Mains: got %q, want UNKNOWN", parsed.Status.Mains)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Dimmer:        testDimmerStatus(),
		Light:         logic.StateOn,
		Mains:         logic.StateOn,
		Baselined:     true,
		Counts:        logic.EventCounts{LightOn: 3},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Light != "ON" {
		t.Errorf("Light: got %q, want ON", parsed.Status.Light)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Light:     logic.StateOff,
		Mains:     logic.StateOn,
		Baselined: true,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		Light:     logic.StateOn,
		Mains:     logic.StateOn,
		Baselined: true,
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(dimmer.Status{Output: uint8(i % 101)}, logic.StateOn, logic.StateOn, true, logic.EventCounts{LightOn: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
