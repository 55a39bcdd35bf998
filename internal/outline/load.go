package outline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/FocuswithJustin/texforge/core/errors"
	"github.com/FocuswithJustin/texforge/core/latex"
	"github.com/FocuswithJustin/texforge/core/xml"
	"github.com/FocuswithJustin/texforge/internal/logging"
)

// Format identifies an outline encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatXML  Format = "xml"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xml":
		return FormatXML, nil
	}
	return "", fmt.Errorf("%w: cannot tell outline format of %q (want .yaml, .yml or .xml)", errors.ErrInvalidInput, path)
}

// Load reads the outline at path and builds its document.
func Load(path string) (*latex.Document, error) {
	o, format, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := o.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.OutlineLoaded(path, string(format), o.BlockCount())
	return doc, nil
}

// ReadFile reads and decodes the outline at path without building it.
func ReadFile(path string) (*Outline, Format, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.NewIO("read", path, err)
	}
	o, err := Parse(data, format)
	if err != nil {
		var perr *errors.ParseError
		if errors.As(err, &perr) && perr.Path == "" {
			perr.Path = path
		}
		return nil, "", err
	}
	return o, format, nil
}

// Parse decodes outline data in the given format.
func Parse(data []byte, format Format) (*Outline, error) {
	switch format {
	case FormatYAML:
		return ParseYAML(data)
	case FormatXML:
		return ParseXML(data)
	}
	return nil, fmt.Errorf("%w: unknown outline format %q", errors.ErrInvalidInput, format)
}

// ParseYAML decodes a YAML outline. Unknown keys are rejected.
func ParseYAML(data []byte) (*Outline, error) {
	var o Outline
	if len(bytes.TrimSpace(data)) == 0 {
		return &o, nil
	}
	if err := yaml.UnmarshalWithOptions(data, &o, yaml.DisallowUnknownField()); err != nil {
		return nil, &errors.ParseError{Format: "YAML outline", Message: err.Error(), Err: err}
	}
	return &o, nil
}

// ParseXML decodes an XML outline rooted at a <document> element.
func ParseXML(data []byte) (*Outline, error) {
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "XML outline", Message: err.Error(), Err: err}
	}
	root := doc.Root()
	if root == nil || root.Name() != "document" {
		return nil, errors.NewParse("XML outline", "", "root element must be <document>")
	}

	o := &Outline{
		Class:        root.Attr("class"),
		ClassOptions: splitList(root.Attr("options")),
	}
	if o.MakeTitle, err = boolAttr(root, "maketitle"); err != nil {
		return nil, err
	}
	if o.NoDefaultPackages, err = boolAttr(root, "no-default-packages"); err != nil {
		return nil, err
	}

	for _, field := range []struct {
		name string
		dst  *string
	}{
		{"title", &o.Title},
		{"author", &o.Author},
		{"date", &o.Date},
	} {
		n, err := doc.XPathFirst("/document/" + field.name)
		if err != nil {
			return nil, err
		}
		*field.dst = n.TrimmedText()
	}

	packages, err := doc.XPath("/document/package")
	if err != nil {
		return nil, err
	}
	for _, p := range packages {
		o.Packages = append(o.Packages, PackageDecl{
			Name:    p.Attr("name"),
			Options: splitList(p.Attr("options")),
		})
	}

	body, err := doc.XPathFirst("/document/body")
	if err != nil {
		return nil, err
	}
	if o.Body, err = xmlBlocks(body.Children(), "body"); err != nil {
		return nil, err
	}
	return o, nil
}

func xmlBlocks(nodes []*xml.Node, path string) ([]Block, error) {
	blocks := make([]Block, 0, len(nodes))
	for i, n := range nodes {
		b, err := xmlBlock(n, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func xmlBlock(n *xml.Node, path string) (Block, error) {
	switch n.Name() {
	case "text":
		s := n.TrimmedText()
		return Block{Text: &s}, nil
	case "raw":
		s := n.TrimmedText()
		return Block{Raw: &s}, nil
	case "section":
		unnumbered, err := boolAttr(n, "unnumbered")
		if err != nil {
			return Block{}, err
		}
		body, err := xmlBlocks(n.Children(), path+".section.body")
		if err != nil {
			return Block{}, err
		}
		return Block{Section: &SectionBlock{
			Title:      n.Attr("title"),
			Level:      n.Attr("level"),
			Unnumbered: unnumbered,
			Label:      n.Attr("label"),
			Body:       body,
		}}, nil
	case "table":
		return xmlTable(n, path+".table")
	case "math":
		return Block{Math: &MathBlock{Mode: n.Attr("mode"), Source: n.TrimmedText()}}, nil
	case "matrix":
		rows, err := n.XPath("row")
		if err != nil {
			return Block{}, err
		}
		mb := &MatrixBlock{Style: n.Attr("style"), Mode: n.Attr("mode")}
		for _, r := range rows {
			var row []any
			for _, c := range cells(r) {
				row = append(row, c)
			}
			mb.Rows = append(mb.Rows, row)
		}
		return Block{Matrix: mb}, nil
	}
	return Block{}, errors.NewParse("XML outline", "", fmt.Sprintf("%s: unknown element <%s>", path, n.Name()))
}

func xmlTable(n *xml.Node, path string) (Block, error) {
	aligned, err := boolAttr(n, "aligned")
	if err != nil {
		return Block{}, err
	}
	tb := &TableBlock{
		Spec:     n.Attr("spec"),
		Position: n.Attr("position"),
		Aligned:  aligned,
	}
	for i, c := range n.Children() {
		switch c.Name() {
		case "row":
			tb.Rows = append(tb.Rows, RowBlock{Cells: cells(c)})
		case "hline":
			tb.Rows = append(tb.Rows, RowBlock{Hline: true})
		case "cline":
			tb.Rows = append(tb.Rows, RowBlock{Cline: c.Attr("range")})
		case "emptyrow":
			tb.Rows = append(tb.Rows, RowBlock{Empty: true})
		default:
			return Block{}, errors.NewParse("XML outline", "", fmt.Sprintf("%s.rows[%d]: unknown element <%s>", path, i, c.Name()))
		}
	}
	return Block{Table: tb}, nil
}

func cells(row *xml.Node) []string {
	var out []string
	for _, c := range row.Children() {
		if c.Name() == "cell" {
			out = append(out, c.TrimmedText())
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func boolAttr(n *xml.Node, name string) (bool, error) {
	v := n.Attr(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.NewParse("XML outline", "", fmt.Sprintf("<%s %s=%q>: not a boolean", n.Name(), name, v))
	}
	return b, nil
}

// splitList splits a comma-separated attribute, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
