package latex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/FocuswithJustin/texforge/core/errors"
)

const (
	cellSeparator = " & "
	rowTerminator = ` \\`
	tabularEnv    = "tabular"
)

// MultiColumnCell is a table cell spanning several column slots.
type MultiColumnCell struct {
	Span    int
	Align   string
	Content Node
}

// MultiColumn returns a cell spanning span columns with its own alignment
// (for example "c" or "|l|"). A span below 1 is treated as 1.
func MultiColumn(span int, align string, content any) *MultiColumnCell {
	if span < 1 {
		span = 1
	}
	return &MultiColumnCell{Span: span, Align: align, Content: toNode(content)}
}

// Render returns the \multicolumn command.
func (m *MultiColumnCell) Render() string {
	return `\multicolumn{` + strconv.Itoa(m.Span) + `}{` + m.Align + `}{` + m.Content.Render() + `}`
}

// Children returns the cell content.
func (m *MultiColumnCell) Children() []Node {
	return []Node{m.Content}
}

// tableEntry is either a data row or a rule marker.
type tableEntry struct {
	cells []Node
	rule  string
}

// Table is a tabular environment. Rows and rules are rendered in the order
// they were added.
type Table struct {
	spec     ColumnSpec
	position string
	aligned  bool
	entries  []tableEntry
	rows     int
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithPosition sets the vertical alignment argument of the tabular
// environment: "t", "b" or "c".
func WithPosition(pos string) TableOption {
	return func(t *Table) {
		t.position = pos
	}
}

// WithAlignedSource pads cells in the emitted source so the column
// separators of plain rows line up. The typeset result is unchanged.
func WithAlignedSource() TableOption {
	return func(t *Table) {
		t.aligned = true
	}
}

// NewTable returns an empty table for the given column spec.
func NewTable(spec string, opts ...TableOption) (*Table, error) {
	parsed, err := ParseColumnSpec(spec)
	if err != nil {
		return nil, err
	}
	t := &Table{spec: parsed}
	for _, opt := range opts {
		opt(t)
	}
	switch t.position {
	case "", "t", "b", "c":
	default:
		return nil, errors.NewParse("table position", "", fmt.Sprintf("%q is not one of t, b, c", t.position))
	}
	return t, nil
}

// Columns returns the column arity.
func (t *Table) Columns() int {
	return t.spec.Len()
}

// Rows returns the number of data rows added so far.
func (t *Table) Rows() int {
	return t.rows
}

// Spec returns the parsed column spec.
func (t *Table) Spec() ColumnSpec {
	return t.spec
}

// AddRow appends a data row. The number of cells, counting multicolumn
// cells by their span, must equal the column arity; otherwise a ShapeError
// is returned and the table is left unchanged. String cells are escaped.
func (t *Table) AddRow(cells ...any) error {
	row := make([]Node, 0, len(cells))
	width := 0
	for _, c := range cells {
		n := toNode(c)
		if mc, ok := n.(*MultiColumnCell); ok {
			width += mc.Span
		} else {
			width++
		}
		row = append(row, n)
	}
	if width != t.Columns() {
		return errors.NewShape("table row", t.Columns(), width)
	}
	t.entries = append(t.entries, tableEntry{cells: row})
	t.rows++
	return nil
}

// AddEmptyRow appends a row of empty cells.
func (t *Table) AddEmptyRow() {
	row := make([]Node, t.Columns())
	for i := range row {
		row[i] = Text("")
	}
	t.entries = append(t.entries, tableEntry{cells: row})
	t.rows++
}

// AddHline inserts a full-width rule before the next row.
func (t *Table) AddHline() {
	t.entries = append(t.entries, tableEntry{rule: `\hline`})
}

// AddPartialHline inserts a rule spanning columns start through end
// (1-based, inclusive) before the next row. It returns a RangeError if the
// span falls outside the table or start is after end.
func (t *Table) AddPartialHline(start, end int) error {
	if start > end || start < 1 || end > t.Columns() {
		return errors.NewRange(start, end, 1, t.Columns())
	}
	t.entries = append(t.entries, tableEntry{rule: fmt.Sprintf(`\cline{%d-%d}`, start, end)})
	return nil
}

// Render returns the tabular environment.
func (t *Table) Render() string {
	rendered := make([][]string, len(t.entries))
	for i, e := range t.entries {
		if e.cells == nil {
			continue
		}
		cells := make([]string, len(e.cells))
		for j, c := range e.cells {
			cells[j] = c.Render()
		}
		rendered[i] = cells
	}
	if t.aligned {
		t.padColumns(rendered)
	}

	var sb strings.Builder
	sb.WriteString(`\begin{` + tabularEnv + `}`)
	if t.position != "" {
		sb.WriteString("[" + t.position + "]")
	}
	sb.WriteString("{" + t.spec.String() + "}\n")
	for i, e := range t.entries {
		if e.cells == nil {
			sb.WriteString(e.rule)
		} else {
			sb.WriteString(strings.Join(rendered[i], cellSeparator))
			sb.WriteString(rowTerminator)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`\end{` + tabularEnv + `}`)
	return sb.String()
}

// padColumns right-pads cells of rows without multicolumn cells to the
// widest display width in their column. The last column is never padded.
func (t *Table) padColumns(rendered [][]string) {
	n := t.Columns()
	widths := make([]int, n)
	plain := func(i int) bool {
		return rendered[i] != nil && len(rendered[i]) == n
	}
	for i := range rendered {
		if !plain(i) {
			continue
		}
		for j, cell := range rendered[i] {
			if w := runewidth.StringWidth(cell); w > widths[j] {
				widths[j] = w
			}
		}
	}
	for i := range rendered {
		if !plain(i) {
			continue
		}
		for j := 0; j < n-1; j++ {
			rendered[i][j] = runewidth.FillRight(rendered[i][j], widths[j])
		}
	}
}

// Children returns every cell of every row.
func (t *Table) Children() []Node {
	var out []Node
	for _, e := range t.entries {
		out = append(out, e.cells...)
	}
	return out
}
