package latex

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/FocuswithJustin/texforge/core/errors"
)

// defaultPackages are loaded unless WithoutDefaultPackages is given: UTF-8
// input, T1 font encoding and Latin Modern fonts.
var defaultPackages = []Package{
	{Name: "inputenc", Options: []string{"utf8"}},
	{Name: "fontenc", Options: []string{"T1"}},
	{Name: "lmodern"},
}

// Document is the root of a tree. It owns the preamble (class, packages,
// metadata) and the body.
type Document struct {
	root         Container
	class        string
	classOptions []string
	packages     []Package
	packageIndex map[string]int

	title     Node
	author    Node
	date      Node
	makeTitle bool
	defaults  bool
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithClass sets the document class and its options. The default is
// article with no options.
func WithClass(name string, options ...string) DocumentOption {
	return func(d *Document) {
		d.class = name
		d.classOptions = options
	}
}

// WithTitle sets the \title. A string is escaped.
func WithTitle(title any) DocumentOption {
	return func(d *Document) {
		d.title = toNode(title)
	}
}

// WithAuthor sets the \author. A string is escaped.
func WithAuthor(author any) DocumentOption {
	return func(d *Document) {
		d.author = toNode(author)
	}
}

// WithDate sets the \date. Use Raw(`\today`) for the compile date.
func WithDate(date any) DocumentOption {
	return func(d *Document) {
		d.date = toNode(date)
	}
}

// WithMakeTitle emits \maketitle at the start of the body.
func WithMakeTitle() DocumentOption {
	return func(d *Document) {
		d.makeTitle = true
	}
}

// WithoutDefaultPackages skips the inputenc, fontenc and lmodern packages.
func WithoutDefaultPackages() DocumentOption {
	return func(d *Document) {
		d.defaults = false
	}
}

// NewDocument returns an empty document.
func NewDocument(opts ...DocumentOption) *Document {
	d := &Document{
		class:        "article",
		packageIndex: make(map[string]int),
		defaults:     true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.defaults {
		for _, p := range defaultPackages {
			d.addPackage(p)
		}
	}
	return d
}

// AddPackage declares a package. Declaring a package again with the same
// options is a no-op; declaring it with different options returns a
// ConflictError and keeps the first declaration.
func (d *Document) AddPackage(name string, options ...string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty package name", errors.ErrInvalidInput)
	}
	if i, ok := d.packageIndex[name]; ok {
		existing := d.packages[i].Options
		if !slices.Equal(existing, options) {
			return errors.NewConflict(name, slices.Clone(existing), slices.Clone(options))
		}
		return nil
	}
	d.addPackage(Package{Name: name, Options: slices.Clone(options)})
	return nil
}

func (d *Document) addPackage(p Package) {
	d.packageIndex[p.Name] = len(d.packages)
	d.packages = append(d.packages, p)
}

// Packages returns the declared packages in declaration order.
func (d *Document) Packages() []Package {
	out := make([]Package, len(d.packages))
	for i, p := range d.packages {
		out[i] = Package{Name: p.Name, Options: slices.Clone(p.Options)}
	}
	return out
}

// Append adds items to the document body.
func (d *Document) Append(items ...any) {
	d.root.Append(items...)
}

// Extend adds nodes to the document body.
func (d *Document) Extend(nodes []Node) {
	d.root.Extend(nodes)
}

// Children returns the metadata nodes followed by the body.
func (d *Document) Children() []Node {
	var out []Node
	for _, n := range []Node{d.title, d.author, d.date} {
		if n != nil {
			out = append(out, n)
		}
	}
	return append(out, d.root.Children()...)
}

// requiredPackages collects packages requested by nodes in the tree that
// are not already declared, in first-seen order.
func (d *Document) requiredPackages() []Package {
	var out []Package
	seen := make(map[string]bool)
	for _, child := range d.Children() {
		Walk(child, func(n Node) {
			r, ok := n.(PackageRequirer)
			if !ok {
				return
			}
			for _, p := range r.RequiredPackages() {
				if _, declared := d.packageIndex[p.Name]; declared || seen[p.Name] {
					continue
				}
				seen[p.Name] = true
				out = append(out, p)
			}
		})
	}
	return out
}

// Render returns the complete LaTeX source.
func (d *Document) Render() string {
	var sb strings.Builder
	sb.WriteString(`\documentclass`)
	writeOptions(&sb, d.classOptions)
	sb.WriteString("{" + d.class + "}\n")

	for _, p := range d.packages {
		sb.WriteString(p.Render())
		sb.WriteString("\n")
	}
	for _, p := range d.requiredPackages() {
		sb.WriteString(p.Render())
		sb.WriteString("\n")
	}

	writeMeta := func(cmd string, n Node) {
		if n != nil {
			sb.WriteString(`\` + cmd + "{" + n.Render() + "}\n")
		}
	}
	writeMeta("title", d.title)
	writeMeta("author", d.author)
	writeMeta("date", d.date)

	sb.WriteString("\\begin{document}\n")
	if d.makeTitle {
		sb.WriteString("\\maketitle\n")
	}
	if body := d.root.Render(); body != "" {
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	sb.WriteString("\\end{document}\n")
	return sb.String()
}

// WriteTo writes the rendered source to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.Render())
	return int64(n), err
}
