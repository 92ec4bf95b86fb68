package excel

// Table is a parsed spreadsheet: a header row and raw string cells
type Table struct {
	Headers []string   // Column headers
	Rows    [][]string // Data rows, one cell per header at most
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}
