package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
	"github.com/sweeney/knob-sensor/internal/status"
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
	"value": func(v int) string {
		if !knob.ValueDefined(v) {
			return "-"
		}
		return fmt.Sprint(v)
	},
	"level": func(l int) string {
		if !knob.LevelDefined(l) {
			return "-"
		}
		return fmt.Sprint(l)
	},
	"mib": func(b uint64) string {
		return fmt.Sprintf("%.1f MiB", float64(b)/(1<<20))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Knob Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
meter { width: 100%; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Knob Sensor<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Reading</h2>
<table>
<tr><th>Value</th><td id="value">{{value .Reading.Value}}</td></tr>
<tr><th>Previous</th><td id="prev-value">{{value .Reading.PrevValue}}</td></tr>
<tr><th></th><td><meter id="meter" min="0" max="{{.Config.MaxRawValue}}" value="{{if ge .Reading.Value 0}}{{if le .Reading.Value .Config.MaxRawValue}}{{.Reading.Value}}{{end}}{{end}}"></meter></td></tr>
{{if gt .Reading.Levels 0}}<tr><th>Level</th><td id="level">{{level .Reading.Level}} / {{.Reading.Levels}}</td></tr>{{end}}
{{if .Reading.Centered}}<tr><th>Centered value</th><td id="centered-value">{{value .Reading.CenteredValue}}</td></tr>
<tr><th>Centered level</th><td id="centered-level">{{level .Reading.CenteredLevel}}</td></tr>{{end}}
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Config.WSBroker}}<tr><th>Websocket broker</th><td>{{.Config.WSBroker}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Initial</th><td>{{.Counts.Initial}}</td></tr>
<tr><th>Changed</th><td>{{.Counts.Changed}}</td></tr>
<tr><th>Reset</th><td>{{.Counts.Reset}}</td></tr>
<tr><th>Read errors</th><td>{{.ReadErrors}}</td></tr>
</table>

<h2>Pipeline</h2>
<table>
<tr><th>Stage</th><td>{{.Config.Stage}}</td></tr>
<tr><th>Channel</th><td>{{.Config.Channel}}</td></tr>
<tr><th>Cycle</th><td>{{.Config.CycleMillis}}ms</td></tr>
<tr><th>Weight</th><td>{{.Config.WeightPrev}}</td></tr>
<tr><th>Extra samples</th><td>{{.Config.ExtraSamples}}</td></tr>
{{if gt .Config.Levels 0}}<tr><th>Stretch</th><td>{{.Config.Stretch}}</td></tr>{{end}}
{{if .Config.CenterHigh}}<tr><th>Center band</th><td>{{.Config.CenterLow}} - {{.Config.CenterHigh}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
{{if .Host}}<tr><th>Host</th><td>{{.Host.Hostname}} ({{.Host.Platform}} {{.Host.KernelVersion}})</td></tr>
<tr><th>Memory</th><td>{{mib .Host.RSSBytes}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">Metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var valueEl = document.getElementById("value");
  var prevEl = document.getElementById("prev-value");
  var meterEl = document.getElementById("meter");
  var levelEl = document.getElementById("level");

  function show(v) { return v === null || v === undefined ? "-" : String(v); }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function render(k) {
    valueEl.textContent = show(k.value);
    prevEl.textContent = show(k.prev_value);
    meterEl.value = k.value === null ? 0 : k.value;
    if (levelEl && k.mapping) {
      levelEl.textContent = show(k.mapping.level) + " / " + k.mapping.levels;
    }
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(e) {
      try {
        var msg = JSON.parse(e.data);
        if (msg.knob) { render(msg.knob); }
        else if (msg.status) { render(msg.status.knob); }
      } catch (err) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
