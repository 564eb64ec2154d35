package web

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/status"
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
	"css": func(c color.Color) template.CSS {
		return template.CSS(fmt.Sprintf("rgb(%d, %d, %d)", c.Red, c.Green, c.Blue))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Friendship Lamp</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.swatch { display: inline-block; width: 1em; height: 1em; border: 1px solid #888; vertical-align: middle; }
.connected { color: green; }
.fault { color: red; }
</style>
</head>
<body>
<h1>{{.Config.Name}} &amp; {{.Config.Friend}}</h1>

<h2>Lamp</h2>
<table>
<tr><th>This lamp</th><td>{{.Local}}</td></tr>
<tr><th>{{.Config.Friend}}</th><td>{{.Peer}} <span class="swatch" style="background: {{css .PeerColor}}"></span></td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Phase</th><td class="{{if eq .Phase "connected"}}connected{{else if .FaultCode}}fault{{end}}">{{.Phase}}</td></tr>
{{if .FaultCode}}<tr><th>Fault</th><td>{{.FaultCode}}{{if not .RetryAt.IsZero}}, retry at {{.RetryAt.UTC.Format "15:04:05Z"}}{{end}}</td></tr>{{end}}
{{if .FaultMessage}}<tr><th>Error</th><td>{{.FaultMessage}}</td></tr>{{end}}
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Config</th><td>{{.Config.ConfigPath}}</td></tr>
{{if .RebootPending}}<tr><th>Reboot pending</th><td>{{.RebootReason}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
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
	if err := indexTmpl.Execute(w, data); err != nil {
		slog.Warn("web: render index", "error", err)
	}
}
