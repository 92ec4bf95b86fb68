package render

import "html/template"

const chapterTemplate = `<section id="{{.ID}}" class="glass-card chapter" data-chapter="{{.Key}}">
  <header>
    <span class="chapter-label">{{.Label}}</span>
    <h2>{{.Title}}</h2>
  </header>
  <div class="chapter-description">{{.DescriptionHTML}}</div>
  <div class="chapter-body">
    <div>
      <h3>Mathematical development</h3>
      <div class="formula-container">{{if .FormulaHTML}}{{.FormulaHTML}}{{else}}<p class="no-formulas">No formulas for this chapter.</p>{{end}}</div>
      <h3>Key results</h3>
      <dl class="results-grid">{{range .Results}}
        <div class="result"><dt>{{.Name}}</dt><dd>{{.Value}}</dd></div>{{end}}
      </dl>
    </div>{{if .ChartTarget}}
    <div class="chart-column">
      <h3>Visual evidence</h3>
      <div id="{{.ChartTarget}}" class="chart-target"></div>
    </div>{{end}}
  </div>
</section>`

const errorTemplate = `<section id="{{.ID}}" class="glass-card chapter chapter-error" data-chapter="{{.Key}}" data-status="{{.Status}}">
  <span class="chapter-label">{{.Label}}</span>
  <p class="error-message">{{.Message}}</p>
</section>`

const placeholderTemplate = `<section class="glass-card report-error" data-status="placeholder">
  <h2>{{.Title}}</h2>
  <p class="error-message">{{.Message}}</p>
</section>`

var templates = template.Must(template.New("chapter").Parse(chapterTemplate))

func init() {
	template.Must(templates.New("error").Parse(errorTemplate))
	template.Must(templates.New("placeholder").Parse(placeholderTemplate))
}
