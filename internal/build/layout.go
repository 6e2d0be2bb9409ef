package build

import (
	"bytes"
	"html/template"
)

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Title}}{{.Title}} · {{end}}{{.Project}}</title>
{{- if .LiveReload}}
<script>new EventSource("/api/events").addEventListener("reload", () => location.reload());</script>
{{- end}}
</head>
<body>
{{- if .Title}}
<header>
<h1 class="title">{{.Title}}</h1>
{{- with .Subtitle}}
<p class="subtitle">{{.}}</p>
{{- end}}
</header>
{{- end}}
<main>
{{.Body}}</main>
</body>
</html>
`))

type pageData struct {
	Project    string
	Title      string
	Subtitle   string
	Body       template.HTML
	LiveReload bool
}

func renderLayout(d pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
