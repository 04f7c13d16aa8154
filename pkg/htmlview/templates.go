package htmlview

import "html/template"

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.Refresh}}">
<title>{{.Title}} - msx-debugd</title>
<style>{{template "css"}}</style>
</head>
<body>
<nav class="topnav">
{{range .Nav}}<a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Label}}</a>{{end}}
</nav>
<main>
<h1>{{.Title}}</h1>
{{.Body}}
</main>
</body>
</html>
`

const cssHTML = `
body { font-family: monospace; background: #111; color: #ddd; margin: 0; }
.topnav { background: #222; padding: 0.5em 1em; }
.topnav a { color: #8cf; text-decoration: none; margin-right: 1.5em; }
.topnav a.active { color: #fff; font-weight: bold; }
main { padding: 1em 2em; }
h1 { font-size: 1.2em; color: #fff; }
table.regs { border-collapse: collapse; }
table.regs td { padding: 0.2em 0.8em; border: 1px solid #333; }
.reg-label { color: #8cf; }
.reg-val { color: #fff; }
.flag-set { color: #6f6; font-weight: bold; }
.flag-clear { color: #555; }
.dot { display: inline-block; width: 0.8em; height: 0.8em; border-radius: 50%; margin-right: 0.4em; }
.dot-on { background: #6f6; }
.dot-off { background: #f66; }
.memdump { white-space: pre; font-size: 0.9em; line-height: 1.4em; }
.truncated { color: #fa6; }
`

var machineTemplate = template.Must(template.New("machine").Parse(`
<p><span class="dot {{if eq .Status "running"}}dot-on{{else}}dot-off{{end}}"></span>{{.Status}}</p>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .MachineID}}
<table class="regs">
<tr><td class="reg-label">id</td><td class="reg-val">{{.MachineID}}</td></tr>
<tr><td class="reg-label">name</td><td class="reg-val">{{.MachineName}}</td></tr>
<tr><td class="reg-label">type</td><td class="reg-val">{{.MachineType}}</td></tr>
<tr><td class="reg-label">cpu</td><td class="reg-val">{{.CPUType}}</td></tr>
</table>
<h2>Slots</h2>
<table class="regs">
<tr><th>page</th><th>address</th><th>primary</th><th>secondary</th><th>expanded</th><th>device</th></tr>
{{range $k, $v := .Slots}}<tr><td>{{$k}}</td><td>{{$v.Address}}</td><td>{{$v.Primary}}</td><td>{{$v.Secondary}}</td><td>{{$v.Expanded}}</td><td>{{$v.Device}}</td></tr>
{{end}}</table>
<h2>Extensions</h2>
<ul>{{range .Extensions}}<li>{{.}}</li>{{end}}</ul>
{{end}}
`))

var ioTemplate = template.Must(template.New("io").Parse(`
<p>{{.Status}}</p>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .PrimarySlots}}
<table class="regs">
<tr><th>page</th><th>primary</th><th>secondary</th><th>expanded</th></tr>
{{range $k, $v := .PrimarySlots}}<tr><td>{{$k}}</td><td>{{$v}}</td><td>{{index $.SecondarySlots $k}}</td><td>{{index $.Expanded $v}}</td></tr>
{{end}}</table>
{{end}}
`))

var cpuTemplate = template.Must(template.New("cpu").Parse(`
<p>{{.Status}}</p>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .Registers}}
<h2>Registers</h2>
<table class="regs">
<tr><td class="reg-label">AF</td><td class="reg-val">{{.Registers.AF}}</td><td class="reg-label">AF'</td><td class="reg-val">{{.Registers.AF2}}</td></tr>
<tr><td class="reg-label">BC</td><td class="reg-val">{{.Registers.BC}}</td><td class="reg-label">BC'</td><td class="reg-val">{{.Registers.BC2}}</td></tr>
<tr><td class="reg-label">DE</td><td class="reg-val">{{.Registers.DE}}</td><td class="reg-label">DE'</td><td class="reg-val">{{.Registers.DE2}}</td></tr>
<tr><td class="reg-label">HL</td><td class="reg-val">{{.Registers.HL}}</td><td class="reg-label">HL'</td><td class="reg-val">{{.Registers.HL2}}</td></tr>
<tr><td class="reg-label">IX</td><td class="reg-val">{{.Registers.IX}}</td><td class="reg-label">IY</td><td class="reg-val">{{.Registers.IY}}</td></tr>
<tr><td class="reg-label">SP</td><td class="reg-val">{{.Registers.SP}}</td><td class="reg-label">PC</td><td class="reg-val">{{.Registers.PC}}</td></tr>
<tr><td class="reg-label">I</td><td class="reg-val">{{.Registers.I}}</td><td class="reg-label">R</td><td class="reg-val">{{.Registers.R}}</td></tr>
</table>
<h2>Flags</h2>
<p>
<span class="{{if .Flags.S}}flag-set{{else}}flag-clear{{end}}">S</span>
<span class="{{if .Flags.Z}}flag-set{{else}}flag-clear{{end}}">Z</span>
<span class="{{if .Flags.H}}flag-set{{else}}flag-clear{{end}}">H</span>
<span class="{{if .Flags.PV}}flag-set{{else}}flag-clear{{end}}">PV</span>
<span class="{{if .Flags.N}}flag-set{{else}}flag-clear{{end}}">N</span>
<span class="{{if .Flags.C}}flag-set{{else}}flag-clear{{end}}">C</span>
</p>
<h2>Interrupts</h2>
<p>IFF1={{.Interrupts.IFF1}} IFF2={{.Interrupts.IFF2}} IM={{.Interrupts.IM}} HALT={{.Interrupts.Halted}}</p>
{{end}}
`))

var memoryTemplate = template.Must(template.New("memory").Parse(`
<p>{{.Status}}</p>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .Data}}
<p>start={{.Start}} size={{.Size}}{{if .Truncated}} <span class="truncated">(truncated to {{.Size}} bytes for display)</span>{{end}}</p>
<div class="memdump">{{.Data}}</div>
{{end}}
`))

func init() {
	template.Must(pageTemplate.New("css").Parse(cssHTML))
}
