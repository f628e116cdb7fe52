package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/button-led/internal/status"
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
	"modeOrIdle": func(s string) string {
		if s == "" {
			return "IDLE"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Button LED</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Button LED<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Button</th><td id="button-state" class="{{if .Input.Active}}on{{else}}off{{end}}">{{.Input}}</td></tr>
<tr><th>LED</th><td id="led-mode" class="{{if eq (modeOrIdle (printf "%s" .Controller.Mode)) "IDLE"}}off{{else}}on{{end}}">{{modeOrIdle (printf "%s" .Controller.Mode)}}</td></tr>
<tr><th>Toggles</th><td id="led-toggles">{{.Controller.Toggles}}</td></tr>
<tr><th>Generation</th><td id="led-gen">{{.Controller.Generation}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Edges</th><td>{{.Counts.Edges}}</td></tr>
<tr><th>Settles</th><td>{{.Counts.Settles}}</td></tr>
<tr><th>Read failures</th><td>{{.Counts.ReadFailures}}</td></tr>
<tr><th>Publishes</th><td id="publishes">{{.Counts.Publishes}}</td></tr>
<tr><th>Stale firings</th><td>{{.Counts.StaleFirings}}</td></tr>
<tr><th>MQTT sent</th><td>{{.Counts.MQTTSent}}</td></tr>
<tr><th>MQTT dropped</th><td>{{.Counts.MQTTDropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Pins</th><td>button {{.Config.ButtonPin}}, led {{.Config.LEDPin}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var buttonEl = document.getElementById("button-state");
  var modeEl = document.getElementById("led-mode");
  var togglesEl = document.getElementById("led-toggles");
  var genEl = document.getElementById("led-gen");
  var publishesEl = document.getElementById("publishes");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setButton(state, active) {
    buttonEl.textContent = state;
    buttonEl.className = active ? "on" : "off";
  }

  function setLED(led) {
    modeEl.textContent = led.mode;
    modeEl.className = led.mode === "IDLE" ? "off" : "on";
    togglesEl.textContent = led.toggles;
    genEl.textContent = led.generation;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type === "snapshot") {
          setButton(msg.payload.status.button.state, msg.payload.status.button.active);
          setLED(msg.payload.status.led);
          publishesEl.textContent = msg.payload.status.counts.publishes;
        } else if (msg.type === "input") {
          setButton(msg.payload.state, msg.payload.active);
          publishesEl.textContent = Number(publishesEl.textContent) + 1;
        } else if (msg.type === "controller") {
          setLED(msg.payload);
        }
      } catch (e) {}
    };
  }

  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
