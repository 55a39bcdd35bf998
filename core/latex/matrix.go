package latex

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/texforge/core/errors"
)

// MatrixStyle selects the delimiters drawn around a matrix.
type MatrixStyle int

const (
	MatrixPlain      MatrixStyle = iota // matrix: no delimiters
	MatrixParen                         // pmatrix: ( )
	MatrixBracket                       // bmatrix: [ ]
	MatrixBrace                         // Bmatrix: { }
	MatrixVert                          // vmatrix: | |
	MatrixDoubleVert                    // Vmatrix: || ||
)

var matrixEnvironments = [...]string{
	MatrixPlain:      "matrix",
	MatrixParen:      "pmatrix",
	MatrixBracket:    "bmatrix",
	MatrixBrace:      "Bmatrix",
	MatrixVert:       "vmatrix",
	MatrixDoubleVert: "Vmatrix",
}

// Environment returns the amsmath environment name for s.
func (s MatrixStyle) Environment() string {
	if s < MatrixPlain || s > MatrixDoubleVert {
		return matrixEnvironments[MatrixPlain]
	}
	return matrixEnvironments[s]
}

// ParseMatrixStyle maps an environment name ("pmatrix") or short name
// ("paren", "bracket", ...) to a MatrixStyle.
func ParseMatrixStyle(name string) (MatrixStyle, error) {
	switch strings.TrimSpace(name) {
	case "", "plain", "matrix":
		return MatrixPlain, nil
	case "paren", "pmatrix":
		return MatrixParen, nil
	case "bracket", "bmatrix":
		return MatrixBracket, nil
	case "brace", "Bmatrix":
		return MatrixBrace, nil
	case "vert", "vmatrix":
		return MatrixVert, nil
	case "doublevert", "Vmatrix":
		return MatrixDoubleVert, nil
	}
	return 0, fmt.Errorf("%w: unknown matrix style %q", errors.ErrInvalidInput, name)
}

// Cell is the set of element types a Matrix can be built from.
type Cell interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string
}

// Dense is a two-dimensional numeric array of known extents. It matches
// the read-only method set of common numeric array libraries, so their
// values can be rendered directly.
type Dense interface {
	Dims() (r, c int)
	At(i, j int) float64
}

// Matrix renders a rectangular array as an amsmath matrix. It performs no
// arithmetic; callers compute with their own numeric library and render
// the result.
type Matrix struct {
	cells [][]string
	style MatrixStyle
}

// NewMatrix returns a matrix of rows. It fails with a ShapeError when there
// are no rows, the first row is empty, or the rows differ in length.
// Numbers are formatted with their shortest exact representation and
// strings are used verbatim as math source.
func NewMatrix[T Cell](rows [][]T, style MatrixStyle) (*Matrix, error) {
	if err := checkRectangular(len(rows), func(i int) int { return len(rows[i]) }); err != nil {
		return nil, err
	}
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = formatCell(v)
		}
	}
	return &Matrix{cells: cells, style: style}, nil
}

// MatrixFrom returns a matrix holding the values of a.
func MatrixFrom(a Dense, style MatrixStyle) (*Matrix, error) {
	r, c := a.Dims()
	if r < 1 {
		return nil, errors.NewShape("matrix rows", 1, r)
	}
	if c < 1 {
		return nil, errors.NewShape("matrix row 1", 1, c)
	}
	cells := make([][]string, r)
	for i := 0; i < r; i++ {
		cells[i] = make([]string, c)
		for j := 0; j < c; j++ {
			cells[i][j] = formatFloat(a.At(i, j), 64)
		}
	}
	return &Matrix{cells: cells, style: style}, nil
}

func checkRectangular(rows int, rowLen func(int) int) error {
	if rows < 1 {
		return errors.NewShape("matrix rows", 1, rows)
	}
	cols := rowLen(0)
	if cols < 1 {
		return errors.NewShape("matrix row 1", 1, cols)
	}
	for i := 1; i < rows; i++ {
		if n := rowLen(i); n != cols {
			return errors.NewShape(fmt.Sprintf("matrix row %d", i+1), cols, n)
		}
	}
	return nil
}

func formatCell[T Cell](v T) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float64:
		return formatFloat(rv.Float(), 64)
	case reflect.Float32:
		return formatFloat(rv.Float(), 32)
	}
	s, _ := formatScalar(v)
	return s
}

// formatFloat writes non-finite values as math symbols.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return `\mathrm{NaN}`
	case math.IsInf(f, 1):
		return `\infty`
	case math.IsInf(f, -1):
		return `-\infty`
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// Dims returns the row and column counts.
func (m *Matrix) Dims() (r, c int) {
	if len(m.cells) == 0 {
		return 0, 0
	}
	return len(m.cells), len(m.cells[0])
}

// Style returns the delimiter style.
func (m *Matrix) Style() MatrixStyle {
	return m.style
}

// Render returns the matrix environment.
func (m *Matrix) Render() string {
	env := m.style.Environment()
	var sb strings.Builder
	sb.WriteString(`\begin{` + env + "}\n")
	for i, row := range m.cells {
		sb.WriteString(strings.Join(row, cellSeparator))
		if i < len(m.cells)-1 {
			sb.WriteString(rowTerminator)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`\end{` + env + "}")
	return sb.String()
}

// RequiredPackages reports the amsmath dependency of the matrix
// environments.
func (m *Matrix) RequiredPackages() []Package {
	return []Package{{Name: "amsmath"}}
}
