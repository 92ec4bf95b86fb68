// Package render turns chapter outcomes into display blocks.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"requiem/domain/chart"
	"requiem/domain/report"
)

// ChartJob is a chart to draw once its block is attached to the document
type ChartJob struct {
	TargetID string
	Key      report.ChapterKey
	Spec     chart.Spec
}

// Renderer renders one chapter outcome at a time. Rendering a chapter
// depends only on its own outcome and index.
type Renderer struct{}

// NewRenderer creates a chapter renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

type chapterView struct {
	ID              string
	Key             report.ChapterKey
	Label           string
	Title           string
	DescriptionHTML template.HTML
	FormulaHTML     template.HTML
	Results         []report.DisplayResult
	ChartTarget     string
	Status          report.BlockStatus
	Message         string
}

// Render produces the block for the chapter at index. The returned job is
// nil unless the chapter carries a chart descriptor.
func (r *Renderer) Render(key report.ChapterKey, outcome report.Outcome, index int) (report.Block, *ChartJob) {
	switch o := outcome.(type) {
	case *report.ChapterResult:
		if o == nil {
			return r.renderMissing(key, index), nil
		}
		return r.renderResult(key, o, index)
	case report.ChapterError:
		return r.renderError(key, o, index), nil
	default:
		return r.renderMissing(key, index), nil
	}
}

// RenderPlaceholder produces the block shown when a whole run failed
func (r *Renderer) RenderPlaceholder(title, message string) report.Block {
	block := report.Block{
		ID:      "report-error",
		Index:   -1,
		Status:  report.BlockPlaceholder,
		Title:   title,
		Message: message,
	}
	block.HTML = execute("placeholder", block)
	return block
}

func (r *Renderer) renderResult(key report.ChapterKey, res *report.ChapterResult, index int) (report.Block, *ChartJob) {
	title := strings.TrimSpace(res.Title)
	if title == "" {
		title = fmt.Sprintf("Chapter %d", index+1)
	}

	results := make([]report.DisplayResult, 0, len(res.Results))
	for _, item := range res.Results {
		results = append(results, report.DisplayResult{
			Name:  Deslug(item.Name),
			Value: FormatValue(item.Value),
		})
	}

	block := report.Block{
		ID:          BlockID(index),
		Index:       index,
		Key:         key,
		Status:      report.BlockRendered,
		Label:       positionLabel(index),
		Title:       title,
		Description: res.Description,
		Formula:     res.FormulaMarkup,
		Results:     results,
	}

	var job *ChartJob
	if res.Chart != nil {
		block.ChartTarget = ChartTargetID(index)
		job = &ChartJob{TargetID: block.ChartTarget, Key: key, Spec: res.Chart}
	}

	formula := sanitizeFormula(res.FormulaMarkup)
	block.Formula = string(formula)
	view := chapterView{
		ID:              block.ID,
		Key:             key,
		Label:           block.Label,
		Title:           block.Title,
		DescriptionHTML: renderMarkdown(res.Description),
		FormulaHTML:     formula,
		Results:         results,
		ChartTarget:     block.ChartTarget,
		Status:          block.Status,
	}
	block.HTML = execute("chapter", view)
	return block, job
}

func (r *Renderer) renderError(key report.ChapterKey, ce report.ChapterError, index int) report.Block {
	msg := strings.TrimSpace(ce.Error)
	if msg == "" {
		msg = "the chapter could not be computed"
	}
	block := report.Block{
		ID:      BlockID(index),
		Index:   index,
		Key:     key,
		Status:  report.BlockFailed,
		Label:   fmt.Sprintf("%s · error", positionLabel(index)),
		Message: msg,
	}
	block.HTML = execute("error", chapterView{ID: block.ID, Key: key, Label: block.Label, Status: block.Status, Message: msg})
	return block
}

func (r *Renderer) renderMissing(key report.ChapterKey, index int) report.Block {
	block := report.Block{
		ID:      BlockID(index),
		Index:   index,
		Key:     key,
		Status:  report.BlockMissing,
		Label:   fmt.Sprintf("%s · not produced", positionLabel(index)),
		Message: fmt.Sprintf("The service returned no %s chapter.", key.Label()),
	}
	block.HTML = execute("error", chapterView{ID: block.ID, Key: key, Label: block.Label, Status: block.Status, Message: block.Message})
	return block
}

func positionLabel(index int) string {
	return fmt.Sprintf("Statistical module %d", index+1)
}

// renderMarkdown converts description text to HTML. Raw HTML in the source is
// dropped. A parser cannot be reused, so one is built per call.
func renderMarkdown(text string) template.HTML {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	return template.HTML(bytes.TrimSpace(markdown.ToHTML([]byte(text), p, renderer)))
}

func execute(name string, data interface{}) template.HTML {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[Render] Template %s failed: %v", name, err)
		return template.HTML(template.HTMLEscapeString(fmt.Sprintf("%v", data)))
	}
	return template.HTML(buf.String())
}
