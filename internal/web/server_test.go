package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/dimmer/internal/dimmer"
	"github.com/sweeney/dimmer/internal/logic"
	"github.com/sweeney/dimmer/internal/status"
	"github.com/sweeney/dimmer/internal/triac"
	"github.com/sweeney/dimmer/internal/waveform"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Broker:      "tcp://192.168.1.200:1883",
		MainTopic:   "myhome/iotdimmer",
		HTTPAddr:    ":80",
		PublishMs:   1000,
		HeartbeatMs: 900000,
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, 0)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func calibratedStatus(output uint8) dimmer.Status {
	return dimmer.Status{
		Target:     output,
		Output:     output,
		Mode:       waveform.Sine,
		Mode100:    2 * time.Second,
		Effect:     waveform.DefaultEffect(),
		FiringMode: triac.Timed,
		State:      triac.AwaitingZero,
		Calibrated: true,
		MainsHz:    50.02,
		Levels:     dimmer.DefaultLevels(),
	}
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(calibratedStatus(40), logic.StateOn, logic.StateOn, true, logic.EventCounts{LightOn: 5, LightOff: 2, MainsOK: 1})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Light != "ON" {
		t.Errorf("Light: got %q, want ON", sj.Status.Light)
	}
	if sj.Status.Mains != "ON" {
		t.Errorf("Mains: got %q, want ON", sj.Status.Mains)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.LightOn != 5 {
		t.Errorf("Counts.LightOn: got %d, want 5", sj.Status.Counts.LightOn)
	}
	if sj.Status.Counts.LightOff != 2 {
		t.Errorf("Counts.LightOff: got %d, want 2", sj.Status.Counts.LightOff)
	}
	if sj.Status.Dimmer.Output != 40 {
		t.Errorf("Dimmer.Output: got %d, want 40", sj.Status.Dimmer.Output)
	}
	if sj.Status.Dimmer.Mode != "sine" {
		t.Errorf("Dimmer.Mode: got %q, want sine", sj.Status.Dimmer.Mode)
	}
	if sj.Status.Config.PublishMs != 1000 {
		t.Errorf("Config.PublishMs: got %d, want 1000", sj.Status.Config.PublishMs)
	}
}

func TestJSONUnknownStateBeforeBaseline(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Light != "UNKNOWN" {
		t.Errorf("Light: got %q, want UNKNOWN", sj.Status.Light)
	}
	if sj.Status.Mains != "UNKNOWN" {
		t.Errorf("Mains: got %q, want UNKNOWN", sj.Status.Mains)
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false before baseline")
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected network info")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(calibratedStatus(30), logic.StateOn, logic.StateOn, true, logic.EventCounts{LightOn: 1})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	for _, want := range []string{"<title>Dimmer</title>", "30%", "sine", "50.0 Hz", "AWAITING_ZERO", "myhome/iotdimmer", `http-equiv="refresh" content="5"`} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestHTMLNoRefreshWhenDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, -1).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "http-equiv") {
		t.Error("expected no refresh meta tag")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestPostNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts, tr := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("uncalibrated: got %d, want 503", resp.StatusCode)
	}

	tr.SetDimmer(calibratedStatus(0))

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("calibrated: got %d, want 200", resp.StatusCode)
	}
	if string(body) != "ok 50.0Hz\n" {
		t.Errorf("body: got %q", body)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	// Initially not baselined
	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	// Update state
	tr.Update(calibratedStatus(75), logic.StateOn, logic.StateOn, true, logic.EventCounts{LightOn: 1})
	tr.SetMQTTConnected(true)

	// Should reflect new state
	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if sj2.Status.Dimmer.Output != 75 {
		t.Errorf("Dimmer.Output: got %d, want 75", sj2.Status.Dimmer.Output)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
