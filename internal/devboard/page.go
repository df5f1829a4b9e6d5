package devboard

import (
	"html/template"
	"io"
)

var pageTemplate = template.Must(template.New("board").Funcs(template.FuncMap{ //nolint:gochecknoglobals // parsed once
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!doctype html>
<html>
<head>
  <title>Weekly Standings</title>
  <script>window.analytics = { page: "standings" };</script>
  <style>td { padding: 4px 8px; }</style>
</head>
<body>
  <h1>Weekly Standings</h1>
  <p>Round {{.Round}}</p>
  <table>
    <thead><tr><th>Rank</th><th>Player</th><th>Points</th></tr></thead>
    <tbody>
    {{- range $i, $p := .Rows}}
      <tr><td>{{inc $i}}</td><td>{{$p.Name}}</td><td>{{$p.Score}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  <noscript>Enable JavaScript for live updates.</noscript>
</body>
</html>
`))

type pageData struct {
	Round int
	Rows  []Player
}

// RenderPage writes the board as an HTML page.
func RenderPage(w io.Writer, round int, rows []Player) error {
	return pageTemplate.Execute(w, pageData{Round: round, Rows: rows})
}
