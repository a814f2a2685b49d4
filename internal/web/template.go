package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/code-lock/internal/status"
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
	"word": func(w interface{}) string {
		return fmt.Sprintf("%08b", w)
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Code Lock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.state-CLOSED { color: #888; font-weight: bold; }
.state-OPENED { color: green; font-weight: bold; }
.state-PROGRAMMING { color: blue; font-weight: bold; }
.state-ALARM { color: red; font-weight: bold; }
.state-UNKNOWN { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Code Lock</h1>

<h2>Lock</h2>
<table>
<tr><th>State</th><td class="state-{{.State}}">{{.State}}</td></tr>
<tr><th>Wrong codes</th><td>{{.Failures}}</td></tr>
<tr><th>Opened LED</th><td>{{onOff .Flags.Opened}}</td></tr>
<tr><th>Alarm LED</th><td>{{onOff .Flags.Alarm}}</td></tr>
<tr><th>Programming LED</th><td>{{onOff .Flags.Programming}}</td></tr>
</table>

<h2>Ports</h2>
<table>
<tr><th>Input word</th><td>{{word .Input}}</td></tr>
<tr><th>Output word</th><td>{{word .Output}}</td></tr>
<tr><th>Iterations</th><td>{{.Iterations}}</td></tr>
<tr><th>I/O errors</th><td>{{.IOErrors}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Opened</th><td>{{.Counts.Opened}}</td></tr>
<tr><th>Closed</th><td>{{.Counts.Closed}}</td></tr>
<tr><th>Programming</th><td>{{.Counts.Programming}}</td></tr>
<tr><th>Code changed</th><td>{{.Counts.CodeChanged}}</td></tr>
<tr><th>Wrong code</th><td>{{.Counts.WrongCode}}</td></tr>
<tr><th>Alarm</th><td>{{.Counts.Alarm}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Flags() methods but the template needs fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		State  string
		Flags  interface{}
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		State:    snap.State.String(),
		Flags:    snap.Flags(),
	}
	indexTmpl.Execute(w, data)
}
