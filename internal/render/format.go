package render

import (
	"strconv"
	"strings"

	"requiem/domain/report"
)

// FormatValue renders numbers with four decimals and strings verbatim
func FormatValue(v report.Value) string {
	if v.IsNumber() {
		return strconv.FormatFloat(v.Float(), 'f', 4, 64)
	}
	return v.Str()
}

var slugReplacer = strings.NewReplacer("_", " ", "-", " ")

// Deslug turns a result key into a display label
func Deslug(key string) string {
	return strings.TrimSpace(slugReplacer.Replace(key))
}

// ChartTargetID is the document region a chapter's chart is drawn into
func ChartTargetID(index int) string {
	return "grafico-cap-" + strconv.Itoa(index)
}

// BlockID is the document id of a chapter block
func BlockID(index int) string {
	return "capitulo-" + strconv.Itoa(index)
}
