package latex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/texforge/core/errors"
)

// Column is one column slot of a tabular column spec.
type Column struct {
	Type  string // Column type letter: l, c, r, p, m, b, X or a user-defined type
	Width string // Width argument for p, m and b columns; first argument otherwise
}

// ColumnSpec is a parsed tabular column specification such as "l|c|r" or
// "|p{3cm}*{2}{c}|".
type ColumnSpec struct {
	source  string
	columns []Column
}

// Len returns the number of columns, which is the arity of every row.
func (s ColumnSpec) Len() int {
	return len(s.columns)
}

// Columns returns the column slots in order, with repetitions expanded.
func (s ColumnSpec) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// String returns the spec as written.
func (s ColumnSpec) String() string {
	return s.source
}

// columnSpecLexer tokenizes column specs. Brace groups nest up to three
// levels deep, enough for width expressions like p{\dimexpr\linewidth-2cm}.
var columnSpecLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Group", Pattern: `\{(?:[^{}]|\{(?:[^{}]|\{[^{}]*\})*\})*\}`},
	{Name: "Letter", Pattern: `[A-Za-z]`},
	{Name: "Rule", Pattern: `\|`},
	{Name: "Punct", Pattern: `[@!<>*]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type specGrammar struct {
	Items []*specItem `parser:"@@*"`
}

type specItem struct {
	Pos    lexer.Position
	Rule   bool        `parser:"(  @Rule"`
	Insert *specInsert `parser:" | @@"`
	Repeat *specRepeat `parser:" | @@"`
	Column *specColumn `parser:" | @@ )"`
}

type specInsert struct {
	Kind string `parser:"@( \"@\" | \"!\" | \">\" | \"<\" )"`
	Body string `parser:"@Group"`
}

type specRepeat struct {
	Count string `parser:"\"*\" @Group"`
	Body  string `parser:"@Group"`
}

type specColumn struct {
	Type string   `parser:"@Letter"`
	Args []string `parser:"@Group*"`
}

var columnSpecParser = participle.MustBuild[specGrammar](
	participle.Lexer(columnSpecLexer),
	participle.Elide("Whitespace"),
)

// maxSpecDepth bounds nested *{n}{...} repetitions.
const maxSpecDepth = 8

// ParseColumnSpec parses a tabular column spec and returns its columns.
// It fails with a ParseError when the spec is malformed or has no columns.
func ParseColumnSpec(spec string) (ColumnSpec, error) {
	columns, err := parseColumns(spec, 0)
	if err != nil {
		return ColumnSpec{}, err
	}
	if len(columns) == 0 {
		return ColumnSpec{}, specError(spec, "no columns", nil)
	}
	return ColumnSpec{source: spec, columns: columns}, nil
}

func parseColumns(spec string, depth int) ([]Column, error) {
	if depth > maxSpecDepth {
		return nil, specError(spec, "repetitions nested too deeply", nil)
	}

	tree, err := columnSpecParser.ParseString("", spec)
	if err != nil {
		return nil, specError(spec, err.Error(), err)
	}

	var columns []Column
	for _, item := range tree.Items {
		switch {
		case item.Column != nil:
			col, err := item.Column.toColumn()
			if err != nil {
				return nil, specError(spec, fmt.Sprintf("column %d: %v", item.Pos.Column, err), nil)
			}
			columns = append(columns, col)

		case item.Repeat != nil:
			n, err := strconv.Atoi(strings.TrimSpace(unbrace(item.Repeat.Count)))
			if err != nil || n < 1 {
				return nil, specError(spec, fmt.Sprintf("column %d: invalid repeat count %s", item.Pos.Column, item.Repeat.Count), nil)
			}
			body, err := parseColumns(unbrace(item.Repeat.Body), depth+1)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				columns = append(columns, body...)
			}
		}
	}
	return columns, nil
}

func (c *specColumn) toColumn() (Column, error) {
	col := Column{Type: c.Type}
	switch c.Type {
	case "l", "c", "r":
		if len(c.Args) > 0 {
			return Column{}, fmt.Errorf("%q column takes no argument", c.Type)
		}
	case "p", "m", "b":
		if len(c.Args) != 1 || strings.TrimSpace(unbrace(c.Args[0])) == "" {
			return Column{}, fmt.Errorf("%q column requires a single width", c.Type)
		}
		col.Width = unbrace(c.Args[0])
	default:
		// User-defined types such as dcolumn's D{.}{.}{2} take any number
		// of arguments.
		if len(c.Args) > 0 {
			col.Width = unbrace(c.Args[0])
		}
	}
	return col, nil
}

func unbrace(group string) string {
	return strings.TrimSuffix(strings.TrimPrefix(group, "{"), "}")
}

func specError(spec, message string, cause error) error {
	return &errors.ParseError{
		Format:  "column spec",
		Path:    strconv.Quote(spec),
		Message: message,
		Err:     cause,
	}
}
