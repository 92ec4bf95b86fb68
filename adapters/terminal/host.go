// Package terminal renders the progressive report as styled text blocks.
package terminal

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"requiem/domain/chart"
	"requiem/domain/report"
	"requiem/ports"
)

var (
	colorAccent  = lipgloss.Color("#38BDF8")
	colorSuccess = lipgloss.Color("#4ADE80")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#64748B")
)

// Styles used by the host
var Styles = struct {
	Label    lipgloss.Style
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Name     lipgloss.Style
	Value    lipgloss.Style
	Chapter  lipgloss.Style
	ErrorBox lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Info     lipgloss.Style
}{
	Label:   lipgloss.NewStyle().Foreground(colorAccent),
	Title:   lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Name:    lipgloss.NewStyle().Foreground(colorMuted).Width(22),
	Value:   lipgloss.NewStyle().Bold(true),
	Chapter: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorError).
		Padding(0, 1),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Info:    lipgloss.NewStyle().Foreground(colorAccent),
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Host writes the report to a terminal. Blocks and charts are buffered and
// written out on Flush, so each chapter appears in one piece.
type Host struct {
	mu      sync.Mutex
	out     io.Writer
	pending bytes.Buffer
	width   int
	// plain disables styling, used for pipes and tests
	plain bool
}

var _ ports.ReportHost = (*Host)(nil)

// Option configures a Host
type Option func(*Host)

// WithWidth sets the block width
func WithWidth(width int) Option {
	return func(h *Host) { h.width = width }
}

// WithPlainText disables colors and borders
func WithPlainText() Option {
	return func(h *Host) { h.plain = true }
}

// NewHost creates a host writing to out
func NewHost(out io.Writer, opts ...Option) *Host {
	h := &Host{out: out, width: 78}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) render(style lipgloss.Style, s string) string {
	if h.plain {
		return s
	}
	return style.Render(s)
}

func (h *Host) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending.Reset()
	fmt.Fprintln(&h.pending, h.render(Styles.Muted, strings.Repeat("─", h.width)))
	return nil
}

func (h *Host) Append(ctx context.Context, block report.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(&h.pending, h.renderBlock(block))
	return nil
}

func (h *Host) renderBlock(b report.Block) string {
	var sb strings.Builder
	switch b.Status {
	case report.BlockRendered:
		sb.WriteString(h.render(Styles.Label, b.Label) + "\n")
		sb.WriteString(h.render(Styles.Title, b.Title) + "\n")
		if desc := plainText(b.Description); desc != "" {
			sb.WriteString(desc + "\n")
		}
		if formula := plainText(b.Formula); formula != "" {
			sb.WriteString("\n" + h.render(Styles.Muted, formula) + "\n")
		}
		if len(b.Results) > 0 {
			sb.WriteString("\n")
			for _, r := range b.Results {
				sb.WriteString(h.render(Styles.Name, r.Name) + " " + h.render(Styles.Value, r.Value) + "\n")
			}
		}
	default:
		title := b.Label
		if b.Title != "" {
			title = b.Title
		}
		sb.WriteString(h.render(Styles.Error, title) + "\n")
		sb.WriteString(b.Message)
	}

	body := strings.TrimRight(sb.String(), "\n")
	if h.plain {
		return body
	}
	style := Styles.Chapter
	if !b.Succeeded() {
		style = Styles.ErrorBox
	}
	return style.Width(h.width).Render(body)
}

// PlotChart prints a compact text summary of the figure, one line per trace
func (h *Host) PlotChart(ctx context.Context, targetID string, fig chart.Figure) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if fig.IsEmpty() {
		fmt.Fprintln(&h.pending, h.render(Styles.Muted, "  (no chart)"))
		return nil
	}
	for _, tr := range fig.Data {
		fmt.Fprintln(&h.pending, "  "+h.render(Styles.Label, traceLine(tr)))
	}
	for _, sh := range fig.Layout.Shapes {
		fmt.Fprintln(&h.pending, "  "+h.render(Styles.Muted, fmt.Sprintf("%s [%s] y=%.2f", sh.Name, sh.Type, sh.Y0)))
	}
	return nil
}

func traceLine(tr chart.Trace) string {
	name := tr.Name
	if name == "" {
		name = tr.Type
	}
	values := tr.Y
	if len(values) == 0 {
		values = tr.X
	}
	if len(values) == 0 {
		return fmt.Sprintf("%s [%s]", name, tr.Type)
	}
	if tr.Type == "histogram" {
		return fmt.Sprintf("%s [%s] %s", name, tr.Type, sparkline(histogramCounts(values, 16)))
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return fmt.Sprintf("%s [%s] n=%d range %.2f..%.2f", name, tr.Type, len(values), lo, hi)
}

var sparks = []rune("▁▂▃▄▅▆▇█")

func histogramCounts(values []float64, bins int) []int {
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	counts := make([]int, bins)
	span := hi - lo
	for _, v := range values {
		i := 0
		if span > 0 {
			i = int((v - lo) / span * float64(bins))
		}
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	return counts
}

func sparkline(counts []int) string {
	top := 0
	for _, c := range counts {
		top = max(top, c)
	}
	var sb strings.Builder
	for _, c := range counts {
		if top == 0 {
			sb.WriteRune(sparks[0])
			continue
		}
		sb.WriteRune(sparks[c*(len(sparks)-1)/top])
	}
	return sb.String()
}

// Flush writes the buffered output
func (h *Host) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending.Len() == 0 {
		return nil
	}
	_, err := h.out.Write(h.pending.Bytes())
	h.pending.Reset()
	return err
}

// Typeset has nothing to lay out in a terminal; it only writes what is left
func (h *Host) Typeset(ctx context.Context, regionID string) error {
	return h.Flush(ctx)
}

func (h *Host) Notify(ctx context.Context, level ports.NotifyLevel, message string) {
	style := Styles.Info
	icon := "•"
	switch level {
	case ports.NotifySuccess:
		style, icon = Styles.Success, "✓"
	case ports.NotifyWarning:
		style, icon = Styles.Warning, "⚠"
	case ports.NotifyError:
		style, icon = Styles.Error, "✗"
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.out, h.render(style, icon+" "+message))
}

// SetLoading prints nothing; the CLI blocks while loading
func (h *Host) SetLoading(ctx context.Context, on bool) {}

func (h *Host) ShowSummary(ctx context.Context, summary report.SampleSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.out, h.render(Styles.Muted, summary.Preview()))
}

// plainText strips markup and unescapes entities
func plainText(markup string) string {
	text := tagPattern.ReplaceAllString(markup, " ")
	text = html.UnescapeString(text)
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
