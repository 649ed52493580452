package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/zombar/humanscore/internal/models"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"highlight": func(flag models.FlagCategory) template.CSS {
		return template.CSS("background-color: " + colorFor(htmlColors, flag, "#ffffff") +
			"; padding: 3px 5px; border-radius: 4px;")
	},
	"tooltip": tooltip,
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p><b>Overall Human-Likeness Score:</b> {{printf "%.1f" .Result.HumanScore}}%</p>
<p><b>Analysis Date:</b> {{.Generated.Format "2006-01-02 15:04:05"}}</p>
{{- if .Result.Error}}
<p><i>{{.Result.Error}}</i></p>
{{- end}}
<hr>
<h2>Highlighted Text</h2>
<div style="font-size: 1.1em; line-height: 2.0; padding: 15px; border: 1px solid #e0e0e0; border-radius: 8px;">
{{- range .Result.Sentences}}
<span style="{{highlight .Flag}}" title="{{tooltip .}}">{{.Sentence}}</span>
{{- end}}
</div>
</body>
</html>
`))

// WriteHTML writes a standalone HTML page with sentences shaded by flag
func WriteHTML(w io.Writer, result models.AnalysisResult, generated time.Time) error {
	data := struct {
		Title     string
		Generated time.Time
		Result    models.AnalysisResult
	}{Title, generated, result}

	if err := htmlTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}
