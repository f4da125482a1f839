package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/dimmer/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"stateClass": func(s string) string {
		switch s {
		case "ON":
			return "on"
		case "OFF":
			return "off"
		}
		return "unknown"
	},
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
	"hz": func(f float64) string { return fmt.Sprintf("%.1f", f) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if gt .RefreshSeconds 0}}<meta http-equiv="refresh" content="{{.RefreshSeconds}}">{{end}}
<title>Dimmer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.bar { background: #eee; height: 10px; width: 100%; }
.bar div { background: #e8a400; height: 10px; }
</style>
</head>
<body>
<h1>Dimmer</h1>

<h2>Output</h2>
<table>
<tr><th>Light</th><td class="{{stateClass (stateOrUnknown (printf "%s" .Light))}}">{{stateOrUnknown (printf "%s" .Light)}}</td></tr>
<tr><th>Output</th><td>{{.Dimmer.Output}}% <div class="bar"><div style="width: {{.Dimmer.Output}}%"></div></div></td></tr>
<tr><th>Target</th><td>{{.Dimmer.Target}}%{{if .Dimmer.Moving}} (moving){{end}}</td></tr>
<tr><th>Mode</th><td>{{.Dimmer.Mode}} ({{ms .Dimmer.Mode100}}ms per 100%)</td></tr>
<tr><th>Effect</th><td>{{.Dimmer.Effect.Kind}}{{if ne .Dimmer.Effect.Kind.String "none"}} &plusmn;{{.Dimmer.Effect.Magnitude}}%, {{ms .Dimmer.Effect.Period}}ms, input {{.Dimmer.EffectInput}}{{end}}</td></tr>
<tr><th>Presets</th><td>off {{.Dimmer.Levels.Off}}% / on {{.Dimmer.Levels.On}}% / lounge {{.Dimmer.Levels.Lounge}}%</td></tr>
</table>

<h2>Mains</h2>
<table>
<tr><th>Mains</th><td class="{{stateClass (stateOrUnknown (printf "%s" .Mains))}}">{{stateOrUnknown (printf "%s" .Mains)}}</td></tr>
<tr><th>Frequency</th><td>{{if .Dimmer.Calibrated}}{{hz .Dimmer.MainsHz}} Hz{{else}}-{{end}}</td></tr>
<tr><th>Controller</th><td>{{.Dimmer.State}}</td></tr>
<tr><th>Firing</th><td>{{.Dimmer.FiringMode}}, delay {{.Dimmer.LastDelayUs}}&micro;s</td></tr>
<tr><th>Pulses</th><td>{{.Dimmer.Stats.Fired}} fired, {{.Dimmer.Stats.Skipped}} skipped, {{.Dimmer.Stats.OutputErrors}} errors</td></tr>
<tr><th>Rejected edges</th><td>{{.Dimmer.Stats.Rejected}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.MainTopic}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Light ON</th><td>{{.Counts.LightOn}}</td></tr>
<tr><th>Light OFF</th><td>{{.Counts.LightOff}}</td></tr>
<tr><th>Mains OK</th><td>{{.Counts.MainsOK}}</td></tr>
<tr><th>Mains lost</th><td>{{.Counts.MainsLost}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Publish</th><td>{{.Config.PublishMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
{{if .Config.ConfigPath}}<tr><th>Config</th><td>{{.Config.ConfigPath}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/healthz">health</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, refresh time.Duration) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime         time.Duration
		RefreshSeconds int
	}{
		Snapshot:       snap,
		Uptime:         snap.Uptime(),
		RefreshSeconds: int(refresh / time.Second),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render: %v", err)
	}
}
