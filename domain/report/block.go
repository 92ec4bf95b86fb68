package report

import "html/template"

// BlockStatus tells a display block apart by the outcome it renders
type BlockStatus string

const (
	BlockRendered    BlockStatus = "rendered"
	BlockFailed      BlockStatus = "failed"
	BlockMissing     BlockStatus = "missing"
	BlockPlaceholder BlockStatus = "placeholder"
)

// DisplayResult is a result already formatted for display
type DisplayResult struct {
	Name  string
	Value string
}

// Block is one rendered report section. HTML is the markup for browser hosts;
// the other fields carry the same content for text hosts.
type Block struct {
	ID          string
	Index       int
	Key         ChapterKey
	Status      BlockStatus
	Label       string
	Title       string
	Description string
	Formula     string
	Results     []DisplayResult
	ChartTarget string
	Message     string
	HTML        template.HTML
}

// Succeeded reports whether the block renders a computed chapter
func (b Block) Succeeded() bool {
	return b.Status == BlockRendered
}
