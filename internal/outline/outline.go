// Package outline loads document outlines written in YAML or XML and builds
// them into LaTeX document trees.
//
// An outline names the document class, preamble metadata and packages, and
// a body of blocks. Each block holds exactly one of text, raw, section,
// table, math or matrix. Sections nest further blocks.
package outline

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/FocuswithJustin/texforge/core/errors"
	"github.com/FocuswithJustin/texforge/core/latex"
)

// Outline is the decoded form shared by the YAML and XML loaders.
type Outline struct {
	Class             string        `yaml:"class"`
	ClassOptions      []string      `yaml:"options"`
	Title             string        `yaml:"title"`
	Author            string        `yaml:"author"`
	Date              string        `yaml:"date"`
	MakeTitle         bool          `yaml:"maketitle"`
	NoDefaultPackages bool          `yaml:"no_default_packages"`
	Packages          []PackageDecl `yaml:"packages"`
	Body              []Block       `yaml:"body"`
}

// PackageDecl declares a \usepackage.
type PackageDecl struct {
	Name    string   `yaml:"name"`
	Options []string `yaml:"options"`
}

// Block is one body element. Exactly one field must be set.
type Block struct {
	Text    *string       `yaml:"text"`
	Raw     *string       `yaml:"raw"`
	Section *SectionBlock `yaml:"section"`
	Table   *TableBlock   `yaml:"table"`
	Math    *MathBlock    `yaml:"math"`
	Matrix  *MatrixBlock  `yaml:"matrix"`
}

// SectionBlock is a heading with nested blocks. An empty Level means one
// level below the enclosing section, or "section" at the top.
type SectionBlock struct {
	Title      string  `yaml:"title"`
	Level      string  `yaml:"level"`
	Unnumbered bool    `yaml:"unnumbered"`
	Label      string  `yaml:"label"`
	Body       []Block `yaml:"body"`
}

// TableBlock is a tabular environment.
type TableBlock struct {
	Spec     string     `yaml:"spec"`
	Position string     `yaml:"position"`
	Aligned  bool       `yaml:"aligned"`
	Rows     []RowBlock `yaml:"rows"`
}

// RowBlock is a data row or a rule. Cline is a 1-based inclusive column
// range such as "2-3".
type RowBlock struct {
	Cells []string `yaml:"cells"`
	Hline bool     `yaml:"hline"`
	Cline string   `yaml:"cline"`
	Empty bool     `yaml:"empty"`
}

// MathBlock is math source in display, inline or equation mode.
type MathBlock struct {
	Mode   string `yaml:"mode"`
	Source string `yaml:"source"`
}

// MatrixBlock is a matrix set in display math. Cells may be numbers or
// math source strings.
type MatrixBlock struct {
	Style string  `yaml:"style"`
	Mode  string  `yaml:"mode"`
	Rows  [][]any `yaml:"rows"`
}

// BlockCount returns the number of blocks in the body, counting nested
// section content.
func (o *Outline) BlockCount() int {
	return countBlocks(o.Body)
}

func countBlocks(blocks []Block) int {
	n := len(blocks)
	for _, b := range blocks {
		if b.Section != nil {
			n += countBlocks(b.Section.Body)
		}
	}
	return n
}

// Build converts the outline into a document. Errors from the document
// model keep their kind and are prefixed with the failing block's path,
// for example "body[2].section.body[0].table row 3".
func (o *Outline) Build() (*latex.Document, error) {
	var opts []latex.DocumentOption
	if o.Class != "" {
		opts = append(opts, latex.WithClass(o.Class, o.ClassOptions...))
	} else if len(o.ClassOptions) > 0 {
		opts = append(opts, latex.WithClass("article", o.ClassOptions...))
	}
	if o.Title != "" {
		opts = append(opts, latex.WithTitle(nfc(o.Title)))
	}
	if o.Author != "" {
		opts = append(opts, latex.WithAuthor(nfc(o.Author)))
	}
	if o.Date != "" {
		opts = append(opts, latex.WithDate(dateNode(o.Date)))
	}
	if o.MakeTitle {
		opts = append(opts, latex.WithMakeTitle())
	}
	if o.NoDefaultPackages {
		opts = append(opts, latex.WithoutDefaultPackages())
	}
	doc := latex.NewDocument(opts...)

	for i, p := range o.Packages {
		if err := doc.AddPackage(p.Name, p.Options...); err != nil {
			return nil, fmt.Errorf("packages[%d]: %w", i, err)
		}
	}

	nodes, err := buildBlocks(o.Body, "body", latex.LevelSection)
	if err != nil {
		return nil, err
	}
	doc.Extend(nodes)
	return doc, nil
}

func buildBlocks(blocks []Block, path string, level latex.Level) ([]latex.Node, error) {
	nodes := make([]latex.Node, 0, len(blocks))
	for i, b := range blocks {
		n, err := buildBlock(b, fmt.Sprintf("%s[%d]", path, i), level)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func buildBlock(b Block, path string, level latex.Level) (latex.Node, error) {
	if kinds := b.kinds(); len(kinds) != 1 {
		msg := "block has no content"
		if len(kinds) > 1 {
			msg = "block sets more than one of " + strings.Join(kinds, ", ")
		}
		return nil, errors.NewParse("outline", "", path+": "+msg)
	}

	switch {
	case b.Text != nil:
		return latex.Text(nfc(*b.Text)), nil
	case b.Raw != nil:
		return latex.Raw(*b.Raw), nil
	case b.Section != nil:
		return buildSection(b.Section, path+".section", level)
	case b.Table != nil:
		return buildTable(b.Table, path+".table")
	case b.Math != nil:
		mode, err := parseMathMode(b.Math.Mode, path+".math")
		if err != nil {
			return nil, err
		}
		return newMath(mode, b.Math.Source), nil
	default:
		return buildMatrix(b.Matrix, path+".matrix")
	}
}

func (b Block) kinds() []string {
	var kinds []string
	if b.Text != nil {
		kinds = append(kinds, "text")
	}
	if b.Raw != nil {
		kinds = append(kinds, "raw")
	}
	if b.Section != nil {
		kinds = append(kinds, "section")
	}
	if b.Table != nil {
		kinds = append(kinds, "table")
	}
	if b.Math != nil {
		kinds = append(kinds, "math")
	}
	if b.Matrix != nil {
		kinds = append(kinds, "matrix")
	}
	return kinds
}

func buildSection(s *SectionBlock, path string, level latex.Level) (latex.Node, error) {
	if s.Level != "" {
		parsed, err := latex.ParseLevel(s.Level)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		level = parsed
	}
	sec := latex.NewHeading(level, nfc(s.Title))
	sec.Numbered = !s.Unnumbered
	sec.Label = s.Label

	next := level + 1
	if next > latex.LevelSubparagraph {
		next = latex.LevelSubparagraph
	}
	children, err := buildBlocks(s.Body, path+".body", next)
	if err != nil {
		return nil, err
	}
	sec.Extend(children)
	return sec, nil
}

func buildTable(tb *TableBlock, path string) (latex.Node, error) {
	var opts []latex.TableOption
	if tb.Position != "" {
		opts = append(opts, latex.WithPosition(tb.Position))
	}
	if tb.Aligned {
		opts = append(opts, latex.WithAlignedSource())
	}
	table, err := latex.NewTable(tb.Spec, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rowNum := 0
	for i, r := range tb.Rows {
		if kinds := r.kinds(); len(kinds) > 1 {
			return nil, errors.NewParse("outline", "", fmt.Sprintf("%s.rows[%d]: row sets more than one of %s", path, i, strings.Join(kinds, ", ")))
		}
		switch {
		case r.Hline:
			table.AddHline()
		case r.Cline != "":
			start, end, err := parseRange(r.Cline)
			if err != nil {
				return nil, errors.NewParse("outline", "", fmt.Sprintf("%s.rows[%d]: %v", path, i, err))
			}
			if err := table.AddPartialHline(start, end); err != nil {
				return nil, fmt.Errorf("%s.rows[%d]: %w", path, i, err)
			}
		case r.Empty:
			table.AddEmptyRow()
			rowNum++
		default:
			rowNum++
			cells := make([]any, len(r.Cells))
			for j, c := range r.Cells {
				cells[j] = nfc(c)
			}
			if err := table.AddRow(cells...); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", path, rowNum, err)
			}
		}
	}
	return table, nil
}

func (r RowBlock) kinds() []string {
	var kinds []string
	if r.Cells != nil {
		kinds = append(kinds, "cells")
	}
	if r.Hline {
		kinds = append(kinds, "hline")
	}
	if r.Cline != "" {
		kinds = append(kinds, "cline")
	}
	if r.Empty {
		kinds = append(kinds, "empty")
	}
	return kinds
}

func buildMatrix(mb *MatrixBlock, path string) (latex.Node, error) {
	style, err := latex.ParseMatrixStyle(mb.Style)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	mode, err := parseMathMode(mb.Mode, path)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(mb.Rows))
	for i, row := range mb.Rows {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			cell, err := formatCell(v)
			if err != nil {
				return nil, errors.NewParse("outline", "", fmt.Sprintf("%s.rows[%d][%d]: %v", path, i, j, err))
			}
			rows[i][j] = cell
		}
	}
	m, err := latex.NewMatrix(rows, style)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return newMath(mode, m), nil
}

func newMath(mode latex.MathMode, item any) *latex.Math {
	switch mode {
	case latex.MathInline:
		return latex.NewInlineMath(item)
	case latex.MathEquation:
		return latex.NewEquation(item)
	default:
		return latex.NewMath(item)
	}
}

func parseMathMode(mode, path string) (latex.MathMode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "display":
		return latex.MathDisplay, nil
	case "inline":
		return latex.MathInline, nil
	case "equation":
		return latex.MathEquation, nil
	}
	return 0, errors.NewParse("outline", "", fmt.Sprintf("%s: unknown math mode %q", path, mode))
}

// formatCell turns a decoded scalar into matrix cell source.
func formatCell(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("unsupported cell value %v (%T)", v, v)
}

// parseRange parses "start-end".
func parseRange(s string) (int, int, error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("cline %q is not of the form start-end", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, fmt.Errorf("cline %q: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, fmt.Errorf("cline %q: %w", s, err)
	}
	return start, end, nil
}

// dateNode keeps \today as a command and escapes everything else.
func dateNode(date string) latex.Node {
	if strings.TrimSpace(date) == `\today` {
		return latex.Raw(`\today`)
	}
	return latex.Text(nfc(date))
}

func nfc(s string) string {
	return norm.NFC.String(s)
}
