package report

// ChapterKey identifies one section of the analysis report on the wire
type ChapterKey string

const (
	KeyDescriptive ChapterKey = "capitulo1_descriptiva"
	KeyEstimation  ChapterKey = "capitulo2_estimacion"
	KeyIntervals   ChapterKey = "capitulo3_intervalos"
	KeyHypothesis  ChapterKey = "capitulo4_hipotesis"
	KeyComparison  ChapterKey = "capitulo5_comparacion"
)

// chapterOrder is the fixed rendering order of the report
var chapterOrder = [...]ChapterKey{
	KeyDescriptive,
	KeyEstimation,
	KeyIntervals,
	KeyHypothesis,
	KeyComparison,
}

// ChapterOrder returns the chapter keys in rendering order
func ChapterOrder() []ChapterKey {
	keys := make([]ChapterKey, len(chapterOrder))
	copy(keys, chapterOrder[:])
	return keys
}

// ChapterCount is the number of chapters in a full report
const ChapterCount = len(chapterOrder)

// Position returns the zero-based rendering position of the key, or -1
func (k ChapterKey) Position() int {
	for i, key := range chapterOrder {
		if key == k {
			return i
		}
	}
	return -1
}

// IsKnown reports whether the key is one of the report chapters
func (k ChapterKey) IsKnown() bool {
	return k.Position() >= 0
}

// Label returns a short English name for logs and metrics
func (k ChapterKey) Label() string {
	switch k {
	case KeyDescriptive:
		return "descriptive"
	case KeyEstimation:
		return "estimation"
	case KeyIntervals:
		return "interval-estimation"
	case KeyHypothesis:
		return "hypothesis-test"
	case KeyComparison:
		return "comparison"
	default:
		return string(k)
	}
}
